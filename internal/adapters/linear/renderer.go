// Package linear provides a line-oriented renderer for CI and piped output.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/sprig/internal/ui/output"
	"go.trai.ch/sprig/internal/ui/style"
)

// Renderer implements ports.Renderer with chronological, prefixed log lines.
// Build output goes to stdout; progress goes to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu       sync.Mutex
	spans    map[string]*spanState
	total    int
	finished int
}

type spanState struct {
	// node is the label of the install node the span belongs to.
	node   string
	isNode bool
	start  time.Time
	buf    bytes.Buffer
	phases int
}

// NewRenderer creates a Renderer. Nil writers mean stdout and stderr.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.NewWithProfile(stderr, output.ColorProfileANSI),
		spans:  make(map[string]*spanState),
	}
}

// Start does nothing; the renderer writes synchronously.
func (r *Renderer) Start(context.Context) error {
	return nil
}

// Stop flushes partial lines of spans that never completed.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spans {
		r.flushLocked(s)
	}
	return nil
}

// Wait does nothing.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints how many nodes will be processed.
func (r *Renderer) OnPlanEmit(nodes []string, _ map[string][]string, roots []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = len(nodes)
	_, _ = fmt.Fprintf(r.stderr, "==> Installing %d package(s) for %s\n", len(nodes), strings.Join(roots, ", "))
}

// OnTaskStart tracks a node or phase span.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if parent, ok := r.spans[parentID]; ok {
		parent.phases++
		r.spans[spanID] = &spanState{node: parent.node, start: startTime}
		return
	}
	r.spans[spanID] = &spanState{node: name, isNode: true, start: startTime}
}

// OnTaskLog prints complete lines prefixed with the node label.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.spans[spanID]
	if !ok {
		return
	}
	s.buf.Write(data)
	for {
		i := bytes.IndexByte(s.buf.Bytes(), '\n')
		if i < 0 {
			return
		}
		r.printLineLocked(s.node, s.buf.Next(i+1))
	}
}

// OnTaskComplete prints the result of node spans. Phase failures are
// reported through their node.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.spans[spanID]
	if !ok {
		return
	}
	r.flushLocked(s)
	delete(r.spans, spanID)
	if !s.isNode {
		return
	}

	r.finished++
	prefix := r.output.String(fmt.Sprintf("[%s]", s.node)).Faint().String()
	progress := fmt.Sprintf("(%d/%d)", r.finished, r.total)
	duration := endTime.Sub(s.start).Round(time.Millisecond)
	switch {
	case err != nil:
		icon := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s failed after %v: %v\n", prefix, icon, progress, duration, err)
	case s.phases == 0:
		icon := r.output.String(style.Check).Faint().String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s already installed\n", prefix, icon, progress)
	default:
		icon := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s installed in %v\n", prefix, icon, progress, duration)
	}
}

// flushLocked prints a remaining partial line. Must be called with mu held.
func (r *Renderer) flushLocked(s *spanState) {
	if s.buf.Len() > 0 {
		r.printLineLocked(s.node, s.buf.Bytes())
		s.buf.Reset()
	}
}

// printLineLocked must be called with mu held.
func (r *Renderer) printLineLocked(node string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", node, line)
}
