// Package builder runs the build phases of one package: staging the
// fetched source, patching, and the configure, build and install commands of
// its build system.
package builder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

// Builder implements ports.Builder.
type Builder struct {
	logger      ports.Logger
	hooks       *Hooks
	runner      *runner
	tarBinary   string
	patchBinary string
}

// New creates a Builder invoking hooks for the packages they are registered for.
func New(logger ports.Logger, hooks *Hooks) *Builder {
	b := &Builder{
		logger:      logger,
		hooks:       hooks,
		tarBinary:   "tar",
		patchBinary: "patch",
	}
	b.runner = &runner{onFallback: func(err error) {
		logger.Warn("no pseudo terminal available, running builds with pipes: " + err.Error())
	}}
	return b
}

// Phases lists the phases with work to do for req. Fetch and install always
// run; patch runs when a patch applies; configure and build run when the
// build system or the package declares commands for them.
func (b *Builder) Phases(req *domain.BuildRequest) []domain.Phase {
	phases := []domain.Phase{domain.PhaseFetch}
	if len(applicablePatches(req)) > 0 {
		phases = append(phases, domain.PhasePatch)
	}
	for _, p := range []domain.Phase{domain.PhaseConfigure, domain.PhaseBuild} {
		if len(commandsFor(req.Package, p)) > 0 {
			phases = append(phases, p)
		}
	}
	return append(phases, domain.PhaseInstall)
}

// RunPhase executes phase for req. Output goes to out and to the build log
// in the stage, which the install phase copies into the prefix.
func (b *Builder) RunPhase(ctx context.Context, phase domain.Phase, req *domain.BuildRequest, out io.Writer) error {
	if err := os.MkdirAll(req.StageDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", req.StageDir)
	}
	logPath := filepath.Join(req.StageDir, domain.BuildLogFileName)
	//nolint:gosec // the log lives in the build's own stage
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, domain.FilePerm)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", logPath)
	}
	defer func() { _ = logFile.Close() }()
	w := io.MultiWriter(out, logFile)
	_, _ = io.WriteString(w, "==> "+string(phase)+" "+req.Spec.NodeString()+"\n")

	switch phase {
	case domain.PhaseFetch:
		return b.stageSource(ctx, req)
	case domain.PhasePatch:
		return b.patch(ctx, req, w)
	case domain.PhaseConfigure, domain.PhaseBuild:
		return b.runCommands(ctx, req, phase, w)
	case domain.PhaseInstall:
		if err := os.MkdirAll(req.Prefix, domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", req.Prefix)
		}
		if err := b.runCommands(ctx, req, phase, w); err != nil {
			return err
		}
		if err := b.afterInstall(ctx, req, w); err != nil {
			return err
		}
		_ = logFile.Sync()
		return writeMetadata(req, logPath)
	default:
		return zerr.With(zerr.New("unknown phase"), "phase", string(phase))
	}
}

func (b *Builder) runCommands(ctx context.Context, req *domain.BuildRequest, phase domain.Phase, w io.Writer) error {
	commands := commandsFor(req.Package, phase)
	if len(commands) == 0 {
		return nil
	}
	dir := req.SourceDir()
	if err := os.MkdirAll(buildDir(req), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", buildDir(req))
	}
	env := b.environment(req)
	for _, command := range commands {
		_, _ = io.WriteString(w, "$ "+command+"\n")
		if err := b.runner.run(ctx, dir, env, command, w); err != nil {
			return err
		}
	}
	return nil
}

func applicablePatches(req *domain.BuildRequest) []domain.PatchRule {
	var out []domain.PatchRule
	for _, p := range req.Package.Patches {
		if domain.Holds(p.When, req.Spec) {
			out = append(out, p)
		}
	}
	return out
}

// patch applies every patch whose condition holds, in declaration order.
// Patch files are resolved relative to the package definition.
func (b *Builder) patch(ctx context.Context, req *domain.BuildRequest, w io.Writer) error {
	env := b.environment(req)
	for _, p := range applicablePatches(req) {
		file := p.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(req.Package.Dir, file)
		}
		command := b.patchBinary + " -s -N -t -p" + strconv.Itoa(p.Level) + " -i " + shellQuote(file)
		_, _ = io.WriteString(w, "$ "+command+"\n")
		// patch prompts on a terminal, so it never gets one.
		if err := b.runner.runPiped(ctx, req.SourceDir(), env, command, w); err != nil {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrPatchFailed, err.Error()), "patch", p.File), "package", req.Spec.Name)
		}
	}
	return nil
}

// afterInstall runs post-install hooks, checks that the prefix received
// files and runs validators.
func (b *Builder) afterInstall(ctx context.Context, req *domain.BuildRequest, w io.Writer) error {
	hooks := b.hooks.forPackage(req.Spec.Name)
	for _, hook := range hooks {
		if p, ok := hook.(PostInstaller); ok {
			if err := p.PostInstall(ctx, req, w); err != nil {
				return err
			}
		}
	}

	entries, err := os.ReadDir(req.Prefix)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInstallIncomplete, err.Error()), "prefix", req.Prefix)
	}
	installed := false
	for _, e := range entries {
		if e.Name() != domain.MetadataDirName {
			installed = true
			break
		}
	}
	if !installed {
		return zerr.With(zerr.Wrap(domain.ErrInstallIncomplete, "install phase left the prefix empty"), "prefix", req.Prefix)
	}

	for _, hook := range hooks {
		if v, ok := hook.(Validator); ok {
			if err := v.Validate(ctx, req); err != nil {
				return zerr.With(zerr.Wrap(domain.ErrInstallIncomplete, err.Error()), "prefix", req.Prefix)
			}
		}
	}
	return nil
}

// writeMetadata stores the concrete spec and the build log in the prefix.
func writeMetadata(req *domain.BuildRequest, logPath string) error {
	meta := domain.MetadataDir(req.Prefix)
	if err := os.MkdirAll(meta, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", meta)
	}
	data, err := domain.EncodeSpec(req.Spec)
	if err != nil {
		return err
	}
	specPath := filepath.Join(meta, domain.SpecFileName)
	if err := os.WriteFile(specPath, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", specPath)
	}
	//nolint:gosec // the log lives in the build's own stage
	logData, err := os.ReadFile(logPath)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", logPath)
	}
	dst := filepath.Join(meta, domain.BuildLogFileName)
	if err := os.WriteFile(dst, logData, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, err.Error()), "path", dst)
	}
	return nil
}

func shellQuote(s string) string {
	out := "'"
	for _, r := range s {
		if r == '\'' {
			out += `'\''`
			continue
		}
		out += string(r)
	}
	return out + "'"
}
