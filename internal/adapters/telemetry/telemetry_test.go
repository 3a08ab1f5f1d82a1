package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/sprig/internal/adapters/telemetry"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/sprig/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type started struct {
	spanID, parentID, name string
}

// recordingRenderer keeps every event it receives.
type recordingRenderer struct {
	mu        sync.Mutex
	events    []string
	starts    []started
	logs      map[string]*strings.Builder
	completed map[string]error
	plan      []string
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{logs: map[string]*strings.Builder{}, completed: map[string]error{}}
}

func (r *recordingRenderer) Start(context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                 { return nil }
func (r *recordingRenderer) Wait() error                 { return nil }

func (r *recordingRenderer) OnPlanEmit(nodes []string, _ map[string][]string, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plan = nodes
	r.events = append(r.events, "plan")
}

func (r *recordingRenderer) OnTaskStart(spanID, parentID, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, started{spanID, parentID, name})
	r.events = append(r.events, "start "+name)
}

func (r *recordingRenderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logs[spanID] == nil {
		r.logs[spanID] = &strings.Builder{}
	}
	r.logs[spanID].Write(data)
	r.events = append(r.events, "log "+string(data))
}

func (r *recordingRenderer) OnTaskComplete(spanID string, _ time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[spanID] = err
	r.events = append(r.events, "complete")
}

func (r *recordingRenderer) log(spanID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.logs[spanID]; b != nil {
		return b.String()
	}
	return ""
}

func TestOTelTracer_SpansReachRenderer(t *testing.T) {
	rec := newRecordingRenderer()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(telemetry.NewBridge(rec)),
		sdktrace.WithSpanProcessor(spans),
	)
	tracer := telemetry.NewOTelTracerWithProvider(tp, "test").WithRenderer(rec)

	ctx, node := tracer.Start(context.Background(), "zlib@1.3/abcdefg",
		ports.WithAttribute("sprig.hash", "abcdefg"),
		ports.WithAttribute("sprig.jobs", 4),
	)
	_, phase := tracer.Start(ctx, "install")
	_, err := fmt.Fprint(phase, "make install\npartial")
	require.NoError(t, err)
	phase.RecordError(errors.New("exit status 2"))
	phase.End()
	node.SetAttribute("sprig.outcome", "failed")
	node.End()

	require.Len(t, rec.starts, 2)
	nodeStart, phaseStart := rec.starts[0], rec.starts[1]
	assert.Equal(t, "zlib@1.3/abcdefg", nodeStart.name)
	assert.Empty(t, nodeStart.parentID)
	assert.Equal(t, nodeStart.spanID, phaseStart.parentID)

	assert.Equal(t, "make install\npartial", rec.log(phaseStart.spanID))

	require.ErrorIs(t, rec.completed[phaseStart.spanID], domain.ErrTaskFailed)
	assert.Contains(t, rec.completed[phaseStart.spanID].Error(), "exit status 2")
	assert.NoError(t, rec.completed[nodeStart.spanID])

	ended := spans.Ended()
	require.Len(t, ended, 2)
	attrs := ended[1].Attributes()
	assert.Contains(t, attrs, attribute.String("sprig.hash", "abcdefg"))
	assert.Contains(t, attrs, attribute.Int("sprig.jobs", 4))
	assert.Contains(t, attrs, attribute.String("sprig.outcome", "failed"))
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	rec := newRecordingRenderer()
	tracer := telemetry.NewOTelTracerWithProvider(sdktrace.NewTracerProvider(), "test").WithRenderer(rec)

	tracer.EmitPlan(context.Background(), []string{"zlib", "app"}, map[string][]string{"app": {"zlib"}}, []string{"app"})
	assert.Equal(t, []string{"zlib", "app"}, rec.plan)
}

func TestOTelSpan_WriteWithoutRenderer(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tracer := telemetry.NewOTelTracerWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)), "test")

	_, span := tracer.Start(context.Background(), "fetch")
	n, err := span.Write([]byte("downloading"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	span.End()

	events := spans.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "log", events[0].Name)
}

func TestQueue_PreservesOrder(t *testing.T) {
	rec := newRecordingRenderer()
	q := telemetry.NewQueue(rec)

	q.OnPlanEmit([]string{"zlib"}, nil, []string{"zlib"})
	q.OnTaskStart("1", "", "zlib", time.Now())
	q.OnTaskLog("1", []byte("a\n"))
	q.OnTaskLog("1", []byte("b\n"))
	q.OnTaskComplete("1", time.Now(), nil)
	q.Close()

	assert.Equal(t, []string{"plan", "start zlib", "log a\n", "log b\n", "complete"}, rec.events)

	q.OnTaskLog("1", []byte("late"))
	q.Close()
	assert.Len(t, rec.events, 5)
}

func TestQueue_StopDrainsThenStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockRenderer(ctrl)
	gomock.InOrder(
		r.EXPECT().Start(gomock.Any()).Return(nil),
		r.EXPECT().OnTaskStart("1", "", "zlib", gomock.Any()),
		r.EXPECT().Stop().Return(nil),
		r.EXPECT().Wait().Return(nil),
	)

	q := telemetry.NewQueue(r)
	require.NoError(t, q.Start(context.Background()))
	q.OnTaskStart("1", "", "zlib", time.Now())
	require.NoError(t, q.Stop())
	require.NoError(t, q.Wait())
}

func TestBridge_NilRenderer(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(nil)))
	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
}
