package installer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cenk/backoff"
	"github.com/google/uuid"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

// nodeRequest is everything a worker needs to install one node.
type nodeRequest struct {
	spec     *domain.Spec
	opts     Options
	explicit bool
	// deps maps dependency names, and the virtuals they provide, to prefixes.
	deps  map[string]string
	kinds map[string]domain.DepKind
}

// installNode runs lock, recheck and act for one node inside its own span.
func (i *Installer) installNode(ctx context.Context, req nodeRequest) result {
	start := i.now()
	spec := req.spec

	ctx, span := i.tracer.Start(ctx, Label(spec),
		ports.WithAttribute("sprig.spec", spec.NodeString()),
		ports.WithAttribute("sprig.hash", spec.Hash),
	)
	defer span.End()

	res := i.install(ctx, span, req)
	res.hash = spec.Hash
	res.duration = i.now().Sub(start)
	span.SetAttribute("sprig.outcome", string(res.outcome))
	if res.err != nil {
		span.RecordError(res.err)
	}
	return res
}

func (i *Installer) install(ctx context.Context, span ports.Span, req nodeRequest) result {
	spec := req.spec

	rec, err := i.db.Lookup(spec.Hash)
	if err != nil {
		return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
	}
	if rec != nil && rec.Installed() {
		return i.reuse(rec, req)
	}

	lock, err := i.acquire(ctx, spec.Hash, req.opts.Install)
	if err != nil {
		if isLockTimeout(err) {
			return result{outcome: domain.OutcomeBusy, err: nodeError(err, spec)}
		}
		return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			i.logger.Error(err)
		}
	}()

	// Another process may have finished while we waited for the lock.
	rec, err = i.db.Lookup(spec.Hash)
	if err != nil {
		return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
	}
	if rec != nil && rec.Installed() {
		return i.reuse(rec, req)
	}
	if rec != nil {
		// We hold the lock, so nobody is working on an installing or
		// failed record.
		i.logger.Warn("rebuilding " + spec.NodeString() + " from a " + string(rec.Status) + " record")
		if err := os.RemoveAll(rec.Prefix); err != nil {
			return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
		}
		if err := i.db.Remove(spec.Hash); err != nil {
			return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
		}
	}

	return i.build(ctx, span, req)
}

func (i *Installer) reuse(rec *domain.Record, req nodeRequest) result {
	if req.explicit && !rec.Explicit {
		if err := i.db.SetExplicit(rec.Hash, true); err != nil {
			return result{outcome: domain.OutcomeFailed, err: nodeError(err, req.spec)}
		}
	}
	return result{outcome: domain.OutcomeReused, prefix: rec.Prefix}
}

// acquire takes the node lock, waiting up to LockTimeout per attempt and
// retrying timeouts with exponential backoff up to LockRetries times. A
// negative LockRetries retries until ctx ends.
func (i *Installer) acquire(ctx context.Context, hash string, cfg domain.InstallConfig) (ports.Lock, error) {
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = domain.DefaultLockTimeout
	}
	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = 0
	var policy backoff.BackOff = exp
	if cfg.LockRetries >= 0 {
		policy = backoff.WithMaxRetries(exp, uint64(cfg.LockRetries))
	}

	var (
		lock  ports.Lock
		final error
	)
	err := backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		l, err := i.locker.Acquire(attemptCtx, hash)
		switch {
		case err == nil:
			lock = l
			return nil
		case isLockTimeout(err) && ctx.Err() == nil:
			return err
		default:
			final = err
			return nil
		}
	}, backoff.WithContext(policy, ctx))
	if final != nil {
		return nil, final
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// build installs a node from source. The caller holds its lock and has
// removed any previous record.
func (i *Installer) build(ctx context.Context, span ports.Span, req nodeRequest) result {
	spec := req.spec
	prefix := domain.InstallPrefix(req.opts.InstallTree, spec)
	stage := filepath.Join(req.opts.Stage, spec.Name+"-"+spec.Version().String()+"-"+spec.Hash)

	pkg, err := i.registry.Get(spec.Name)
	if err != nil {
		return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
	}
	for _, dir := range []string{prefix, stage} {
		if err := os.RemoveAll(dir); err != nil {
			return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
		}
	}
	if _, err := i.db.BeginInstall(spec, prefix, req.explicit, uuid.NewString()); err != nil {
		return result{outcome: domain.OutcomeFailed, err: nodeError(err, spec)}
	}

	breq := &domain.BuildRequest{
		Spec:               spec,
		Package:            pkg,
		Prefix:             prefix,
		StageDir:           stage,
		DependencyPrefixes: req.deps,
		DependencyKinds:    req.kinds,
		Compiler:           compilerFor(spec, req.opts.Compilers),
		Jobs:               req.opts.Install.BuildJobs,
	}
	for _, phase := range i.builder.Phases(breq) {
		if err := i.runPhase(ctx, phase, breq); err != nil {
			return i.fail(spec, phase, prefix, stage, err)
		}
	}

	digest, err := i.manifester.Write(ctx, prefix)
	if err != nil {
		return i.fail(spec, domain.PhaseInstall, prefix, stage, err)
	}
	if err := i.db.MarkInstalled(spec.Hash, digest); err != nil {
		return i.fail(spec, domain.PhaseInstall, prefix, stage, err)
	}
	span.SetAttribute("sprig.prefix", prefix)

	if i.cache != nil && i.cache.Enabled() {
		if err := i.cache.Push(ctx, spec, prefix); err != nil {
			i.logger.Warn("build cache push failed for " + spec.NodeString() + ": " + err.Error())
		}
	}
	if !req.opts.Install.KeepStage {
		_ = os.RemoveAll(stage)
	}
	return result{outcome: domain.OutcomeInstalled, prefix: prefix}
}

// runPhase runs one phase in a child span. The fetch phase first obtains
// the source.
func (i *Installer) runPhase(ctx context.Context, phase domain.Phase, req *domain.BuildRequest) error {
	ctx, span := i.tracer.Start(ctx, string(phase), ports.WithAttribute("sprig.phase", string(phase)))
	defer span.End()

	if phase == domain.PhaseFetch {
		src, err := i.fetcher.Fetch(ctx, req.Package, req.Spec.Version(), req.StageDir)
		if err != nil {
			span.RecordError(err)
			return err
		}
		req.Source = src
	}
	if err := i.builder.RunPhase(ctx, phase, req, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// fail records a build failure and removes the partial prefix. The stage
// is kept for inspection.
func (i *Installer) fail(spec *domain.Spec, phase domain.Phase, prefix, stage string, cause error) result {
	if err := i.db.MarkFailed(spec.Hash, domain.Failure{Phase: phase, Message: cause.Error()}); err != nil {
		i.logger.Error(err)
	}
	if err := os.RemoveAll(prefix); err != nil {
		i.logger.Error(zerr.With(zerr.Wrap(err, "failed to remove partial install"), "prefix", prefix))
	}
	err := zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrBuildFailure, cause.Error()),
		"spec", spec.NodeString()), "phase", string(phase)), "log", filepath.Join(stage, domain.BuildLogFileName))
	return result{outcome: domain.OutcomeFailed, err: err}
}

// nodeError attaches the node to an error that is not a build failure.
func nodeError(err error, spec *domain.Spec) error {
	return zerr.With(zerr.Wrap(err, "install "+spec.Name), "spec", spec.NodeString())
}

// compilerFor finds the configured compiler a spec was concretized with.
func compilerFor(spec *domain.Spec, compilers []domain.Compiler) domain.Compiler {
	v, _ := spec.Compiler.Versions.Concrete()
	for _, c := range compilers {
		if c.Name == spec.Compiler.Name && c.Version.Equal(v) {
			return c
		}
	}
	return domain.Compiler{Name: spec.Compiler.Name, Version: v}
}
