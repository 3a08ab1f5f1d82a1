package builder

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

// shell interprets phase commands.
const shell = "/bin/sh"

// runner executes shell commands under a pseudo terminal so build tools
// keep their interactive output, falling back to pipes where no terminal
// can be allocated.
type runner struct {
	onFallback func(err error)
}

// run executes command with sh -c in dir with exactly env, copying the
// combined output to out.
func (r *runner) run(ctx context.Context, dir string, env []string, command string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, shell, "-c", command) //nolint:gosec // commands come from package definitions
	cmd.Dir = dir
	cmd.Env = env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		if r.onFallback != nil {
			r.onFallback(err)
		}
		return r.runPiped(ctx, dir, env, command, out)
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		_, _ = io.Copy(crlfWriter{out}, ptmx)
	}()

	err = cmd.Wait()
	<-ioDone
	return commandError(command, err)
}

func (r *runner) runPiped(ctx context.Context, dir string, env []string, command string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, shell, "-c", command) //nolint:gosec // commands come from package definitions
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = out
	cmd.Stderr = out
	return commandError(command, cmd.Run())
}

func commandError(command string, err error) error {
	if err == nil {
		return nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "command", command), "exit_code", exitCode)
}

// crlfWriter turns the CRLF line endings a terminal emits back into LF.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write([]byte(strings.ReplaceAll(string(p), "\r\n", "\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// allowListedEnvVars are the host variables a build inherits. Everything
// else comes from the build request.
var allowListedEnvVars = map[string]struct{}{
	"HOME":   {},
	"TERM":   {},
	"USER":   {},
	"PATH":   {},
	"LANG":   {},
	"TMPDIR": {},
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

// prependPath puts dirs in front of the list variable key, skipping
// directories that do not exist.
func prependPath(envMap map[string]string, key string, dirs ...string) {
	var parts []string
	for _, d := range dirs {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			parts = append(parts, d)
		}
	}
	if len(parts) == 0 {
		return
	}
	if existing := envMap[key]; existing != "" {
		parts = append(parts, existing)
	}
	envMap[key] = strings.Join(parts, string(filepath.ListSeparator))
}
