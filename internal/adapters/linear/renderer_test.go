package linear_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/adapters/linear"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

func newRenderer(t *testing.T) (*linear.Renderer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	return linear.NewRenderer(&stdout, &stderr), &stdout, &stderr
}

func TestRenderer_NodeLifecycle(t *testing.T) {
	r, stdout, stderr := newRenderer(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r.OnPlanEmit([]string{"zlib@1.3/aaaaaaa", "app@1.0/bbbbbbb"}, nil, []string{"app@1.0/bbbbbbb"})
	r.OnTaskStart("n1", "", "zlib@1.3/aaaaaaa", start)
	r.OnTaskStart("p1", "n1", "install", start)
	r.OnTaskLog("p1", []byte("==> install zlib\nmake ins"))
	r.OnTaskLog("p1", []byte("tall\n"))
	r.OnTaskComplete("p1", start.Add(time.Second), nil)
	r.OnTaskComplete("n1", start.Add(1500*time.Millisecond), nil)

	assert.Equal(t, "[zlib@1.3/aaaaaaa] ==> install zlib\n[zlib@1.3/aaaaaaa] make install\n", stdout.String())
	assert.Equal(t,
		"==> Installing 2 package(s) for app@1.0/bbbbbbb\n"+
			"[zlib@1.3/aaaaaaa] ✓ (1/2) installed in 1.5s\n",
		stderr.String())
}

func TestRenderer_ReusedNode(t *testing.T) {
	r, _, stderr := newRenderer(t)
	now := time.Now()

	r.OnPlanEmit([]string{"zlib@1.3/aaaaaaa"}, nil, []string{"zlib@1.3/aaaaaaa"})
	r.OnTaskStart("n1", "", "zlib@1.3/aaaaaaa", now)
	r.OnTaskComplete("n1", now, nil)

	assert.Contains(t, stderr.String(), "[zlib@1.3/aaaaaaa] ✓ (1/1) already installed\n")
}

func TestRenderer_FailedNode(t *testing.T) {
	r, stdout, stderr := newRenderer(t)
	now := time.Now()

	r.OnPlanEmit([]string{"app@1.0/bbbbbbb"}, nil, []string{"app@1.0/bbbbbbb"})
	r.OnTaskStart("n1", "", "app@1.0/bbbbbbb", now)
	r.OnTaskStart("p1", "n1", "build", now)
	r.OnTaskLog("p1", []byte("error: no such file"))
	r.OnTaskComplete("p1", now, zerr.Wrap(domain.ErrTaskFailed, "exit status 2"))
	r.OnTaskComplete("n1", now.Add(2*time.Second), zerr.Wrap(domain.ErrTaskFailed, "build failed"))

	assert.Equal(t, "[app@1.0/bbbbbbb] error: no such file\n", stdout.String(), "a partial line is flushed on completion")
	assert.Contains(t, stderr.String(), "[app@1.0/bbbbbbb] ✗ (1/1) failed after 2s: build failed")
}

func TestRenderer_StopFlushesOpenSpans(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnTaskStart("n1", "", "zlib@1.3/aaaaaaa", time.Now())
	r.OnTaskLog("n1", []byte("interrupted"))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())

	assert.Equal(t, "[zlib@1.3/aaaaaaa] interrupted\n", stdout.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	r.OnTaskLog("missing", []byte("x\n"))
	r.OnTaskComplete("missing", time.Now(), nil)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}
