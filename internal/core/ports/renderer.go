package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation, so the same span
// stream drives either the interactive view or plain CI logs.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting events and flush output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once the install plan is known.
	// nodes: node labels in topological order
	// deps: node label -> labels of the dependencies it waits for
	// roots: the requested root labels
	OnPlanEmit(nodes []string, deps map[string][]string, roots []string)

	// OnTaskStart is called when a span begins.
	// parentID is empty for top-level spans.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a span emits output. data may hold partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a span finishes; err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
