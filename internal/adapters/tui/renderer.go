package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/sprig/internal/adapters/telemetry"
)

// Renderer runs the Model in a bubbletea program as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	errCh   chan error
}

// NewRenderer creates a renderer for model.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		errCh:   make(chan error, 1),
	}
}

// Start runs the program in the background.
func (r *Renderer) Start(context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	return nil
}

// Stop asks the program to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the program has exited.
func (r *Renderer) Wait() error {
	return <-r.errCh
}

// OnPlanEmit sends the plan to the program.
func (r *Renderer) OnPlanEmit(nodes []string, deps map[string][]string, roots []string) {
	r.program.Send(telemetry.MsgPlan{Nodes: nodes, Dependencies: deps, Roots: roots})
}

// OnTaskStart sends a span start to the program.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(telemetry.MsgTaskStart{SpanID: spanID, ParentID: parentID, Name: name, StartTime: startTime})
}

// OnTaskLog sends span output to the program.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(telemetry.MsgTaskLog{SpanID: spanID, Data: data})
}

// OnTaskComplete sends a span end to the program.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(telemetry.MsgTaskComplete{SpanID: spanID, EndTime: endTime, Err: err})
}
