package telemetry

import (
	"context"
	"sync"
	"time"

	"go.trai.ch/sprig/internal/core/ports"
)

// QueueSize is the number of renderer events buffered between installs and
// the renderer.
const QueueSize = 4096

// Queue is a ports.Renderer that hands events from install goroutines to
// another renderer on a single goroutine, in the order they were sent. Log
// chunks are dropped while the queue is full; plan and task events wait for
// room.
type Queue struct {
	renderer ports.Renderer
	events   chan func()
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts forwarding events to r.
func NewQueue(r ports.Renderer) *Queue {
	q := &Queue{
		renderer: r,
		events:   make(chan func(), QueueSize),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for ev := range q.events {
		ev()
	}
}

// Close delivers the queued events and stops accepting new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) send(ev func(), drop bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	if !drop {
		q.events <- ev
		return
	}
	select {
	case q.events <- ev:
	default:
	}
}

// Start starts the underlying renderer.
func (q *Queue) Start(ctx context.Context) error {
	return q.renderer.Start(ctx)
}

// Stop drains the queue, then stops the underlying renderer.
func (q *Queue) Stop() error {
	q.Close()
	return q.renderer.Stop()
}

// Wait waits for the underlying renderer.
func (q *Queue) Wait() error {
	return q.renderer.Wait()
}

// OnPlanEmit queues the plan.
func (q *Queue) OnPlanEmit(nodes []string, deps map[string][]string, roots []string) {
	q.send(func() { q.renderer.OnPlanEmit(nodes, deps, roots) }, false)
}

// OnTaskStart queues a span start.
func (q *Queue) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	q.send(func() { q.renderer.OnTaskStart(spanID, parentID, name, startTime) }, false)
}

// OnTaskLog queues span output, dropping it when the queue is full.
func (q *Queue) OnTaskLog(spanID string, data []byte) {
	q.send(func() { q.renderer.OnTaskLog(spanID, data) }, true)
}

// OnTaskComplete queues a span end.
func (q *Queue) OnTaskComplete(spanID string, endTime time.Time, err error) {
	q.send(func() { q.renderer.OnTaskComplete(spanID, endTime, err) }, false)
}
