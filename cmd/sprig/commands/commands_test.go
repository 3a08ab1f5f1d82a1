package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/cmd/sprig/commands"
	"go.trai.ch/sprig/internal/app"
	"go.trai.ch/sprig/internal/build"
)

// mockApp records the last call made through the Application interface.
type mockApp struct {
	method string
	exprs  []string
	opts   any
	err    error
}

func (m *mockApp) record(method string, exprs []string, opts any) error {
	m.method, m.exprs, m.opts = method, exprs, opts
	return m.err
}

func (m *mockApp) Spec(_ context.Context, exprs []string, opts app.SpecOptions, _ io.Writer) error {
	return m.record("spec", exprs, opts)
}

func (m *mockApp) Install(_ context.Context, exprs []string, opts app.InstallOptions) error {
	return m.record("install", exprs, opts)
}

func (m *mockApp) Find(_ context.Context, exprs []string, opts app.FindOptions, _ io.Writer) error {
	return m.record("find", exprs, opts)
}

func (m *mockApp) Uninstall(_ context.Context, exprs []string, opts app.UninstallOptions) error {
	return m.record("uninstall", exprs, opts)
}

func (m *mockApp) Verify(_ context.Context, exprs []string, _ io.Writer) error {
	return m.record("verify", exprs, nil)
}

func (m *mockApp) Providers(_ context.Context, virtual string, _ io.Writer) error {
	return m.record("providers", []string{virtual}, nil)
}

func (m *mockApp) Clean(_ context.Context, opts app.CleanOptions) error {
	return m.record("clean", nil, opts)
}

// jsonRecorder is a logger that remembers SetJSON calls.
type jsonRecorder struct {
	json bool
}

func (*jsonRecorder) Info(string)         {}
func (*jsonRecorder) Warn(string)         {}
func (*jsonRecorder) Error(error)         {}
func (l *jsonRecorder) SetJSON(json bool) { l.json = json }

func execute(t *testing.T, m *mockApp, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(m, nil)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Flags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		method string
		exprs  []string
		opts   any
	}{
		{
			name:   "spec",
			args:   []string{"spec", "hdf5", "+mpi", "--fresh"},
			method: "spec",
			exprs:  []string{"hdf5", "+mpi"},
			opts:   app.SpecOptions{ConcretizeOptions: app.ConcretizeOptions{Fresh: true}},
		},
		{
			name:   "concretize alias",
			args:   []string{"concretize", "zlib"},
			method: "spec",
			exprs:  []string{"zlib"},
			opts:   app.SpecOptions{},
		},
		{
			name:   "install",
			args:   []string{"install", "zlib", "-j", "3", "--keep-stage", "-o", "tui"},
			method: "install",
			exprs:  []string{"zlib"},
			opts:   app.InstallOptions{OutputMode: "tui", Jobs: 3, KeepStage: true},
		},
		{
			name:   "install ci",
			args:   []string{"install", "--ci", "--fresh"},
			method: "install",
			exprs:  []string{},
			opts: app.InstallOptions{
				ConcretizeOptions: app.ConcretizeOptions{Fresh: true},
				OutputMode:        "linear",
			},
		},
		{
			name:   "find",
			args:   []string{"find", "-x", "--failed", "zlib"},
			method: "find",
			exprs:  []string{"zlib"},
			opts:   app.FindOptions{Explicit: true, Failed: true},
		},
		{
			name:   "find json",
			args:   []string{"--json", "find", "--installing"},
			method: "find",
			exprs:  []string{},
			opts:   app.FindOptions{Installing: true, JSON: true},
		},
		{
			name:   "uninstall",
			args:   []string{"uninstall", "-f", "--all", "zlib@1.3"},
			method: "uninstall",
			exprs:  []string{"zlib@1.3"},
			opts:   app.UninstallOptions{Force: true, All: true},
		},
		{
			name:   "verify",
			args:   []string{"verify"},
			method: "verify",
			exprs:  []string{},
		},
		{
			name:   "providers",
			args:   []string{"providers", "mpi"},
			method: "providers",
			exprs:  []string{"mpi"},
		},
		{
			name:   "clean default",
			args:   []string{"clean"},
			method: "clean",
			opts:   app.CleanOptions{Stage: true},
		},
		{
			name:   "clean sources",
			args:   []string{"clean", "-s"},
			method: "clean",
			opts:   app.CleanOptions{Sources: true},
		},
		{
			name:   "clean all",
			args:   []string{"clean", "--all"},
			method: "clean",
			opts:   app.CleanOptions{Stage: true, Sources: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockApp{}
			_, err := execute(t, m, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.method, m.method)
			assert.Equal(t, tt.exprs, m.exprs)
			assert.Equal(t, tt.opts, m.opts)
		})
	}
}

func TestCommands_ReturnsAppError(t *testing.T) {
	m := &mockApp{err: errors.New("simulated error")}
	_, err := execute(t, m, "install", "zlib")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated error")
}

func TestCommands_ArgumentValidation(t *testing.T) {
	for _, args := range [][]string{
		{"uninstall"},
		{"providers", "mpi", "blas"},
		{"clean", "extra"},
		{"find", "--failed", "--installing"},
	} {
		m := &mockApp{}
		_, err := execute(t, m, args...)
		require.Error(t, err, args)
		assert.Empty(t, m.method, args)
	}
}

func TestCommands_JSONSwitchesLogger(t *testing.T) {
	log := &jsonRecorder{}
	cli := commands.New(&mockApp{}, log)
	cli.SetOutput(io.Discard, io.Discard)
	cli.SetArgs([]string{"--json", "verify"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.True(t, log.json)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sprig version "+build.Version)
	assert.Contains(t, out, "commit: "+build.Commit)
}
