package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sprig/internal/adapters/detector"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		tty  bool
		env  map[string]string
		want detector.OutputMode
	}{
		{name: "terminal", tty: true, want: detector.ModeTUI},
		{name: "pipe", tty: false, want: detector.ModeLinear},
		{name: "ci true", tty: true, env: map[string]string{"CI": "true"}, want: detector.ModeLinear},
		{name: "ci one", tty: true, env: map[string]string{"CI": "1"}, want: detector.ModeLinear},
		{name: "ci false", tty: true, env: map[string]string{"CI": "false"}, want: detector.ModeTUI},
		{name: "dumb terminal", tty: true, env: map[string]string{"TERM": "dumb"}, want: detector.ModeLinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			assert.Equal(t, tt.want, detector.Detect(tt.tty, getenv))
		})
	}
}

func TestResolveMode(t *testing.T) {
	assert.Equal(t, detector.ModeTUI, detector.ResolveMode(detector.ModeLinear, "tui"))
	assert.Equal(t, detector.ModeLinear, detector.ResolveMode(detector.ModeTUI, "linear"))
	assert.Equal(t, detector.ModeLinear, detector.ResolveMode(detector.ModeTUI, "ci"))
	assert.Equal(t, detector.ModeTUI, detector.ResolveMode(detector.ModeTUI, "auto"))
	assert.Equal(t, detector.ModeLinear, detector.ResolveMode(detector.ModeLinear, ""))
	assert.Equal(t, detector.ModeTUI, detector.ResolveMode(detector.ModeTUI, "fancy"))
}
