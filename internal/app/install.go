package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/sprig/internal/adapters/detector"
	"go.trai.ch/sprig/internal/adapters/linear"
	"go.trai.ch/sprig/internal/adapters/telemetry"
	"go.trai.ch/sprig/internal/adapters/tui"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/sprig/internal/engine/installer"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// InstallOptions configures the Install method.
type InstallOptions struct {
	ConcretizeOptions
	// OutputMode is "tui", "linear" or empty for auto detection.
	OutputMode string
	// Jobs overrides install.jobs when positive.
	Jobs int
	// KeepStage keeps stage directories of successful builds.
	KeepStage bool
}

// Install concretizes exprs and installs the resulting DAG.
//
//nolint:cyclop // orchestration function
func (a *App) Install(ctx context.Context, exprs []string, opts InstallOptions) error {
	// 1. Concretize
	s, err := a.open()
	if err != nil {
		return err
	}
	dag, err := a.concretize(ctx, s, exprs, opts.ConcretizeOptions)
	if err != nil {
		return err
	}

	installCfg := s.cfg.Install
	if opts.Jobs > 0 {
		installCfg.Jobs = opts.Jobs
	}
	if opts.KeepStage {
		installCfg.KeepStage = true
	}

	// 2. Open the shared install state
	locker, err := a.lockers.Open(domain.LocksDir(s.cfg.Database))
	if err != nil {
		return zerr.Wrap(err, "failed to open lock directory")
	}
	cache, err := a.caches.Open(ctx, s.cfg.BuildCache)
	if err != nil {
		return zerr.Wrap(err, "failed to open build cache")
	}
	fetcher := a.fetchers.New(s.cfg)

	// 3. Initialize Renderer
	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)
	queue := telemetry.NewQueue(a.newRenderer(ctx, mode))

	// 4. Initialize Telemetry
	tp := setupOTel(telemetry.NewBridge(queue))
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracer("sprig").WithRenderer(queue)

	inst := installer.New(s.registry, s.db, locker, a.builder, fetcher, a.manifester, cache, tracer, a.logger)

	// 5. Run Renderer and Installer concurrently
	g, gctx := errgroup.WithContext(ctx)
	installCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		if err := queue.Start(gctx); err != nil {
			return err
		}
		if err := queue.Wait(); err != nil {
			return err
		}
		// Quitting the interactive view abandons the install.
		if mode == detector.ModeTUI {
			cancel()
		}
		return nil
	})

	var report *installer.Report
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				_, _ = fmt.Fprintf(a.stderr, "Installer panic: %v\n", r)
			}
			_ = queue.Stop()
		}()

		var err error
		report, err = inst.Install(installCtx, dag, installer.Options{
			InstallTree: s.cfg.InstallTree,
			Stage:       s.cfg.Stage,
			Compilers:   s.cfg.Compilers,
			Install:     installCfg,
		})
		if err != nil {
			return errors.Join(domain.ErrInstallFailed, err)
		}
		return nil
	})

	err = g.Wait()
	if report != nil {
		a.summarize(report)
	}
	return err
}

func (a *App) newRenderer(ctx context.Context, mode detector.OutputMode) ports.Renderer {
	if mode == detector.ModeTUI {
		model := tui.NewModel(a.stderr)
		opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(a.stderr)}, a.teaOptions...)
		return tui.NewRenderer(model, opts...)
	}
	return linear.NewRenderer(a.stdout, a.stderr)
}

// setupOTel installs a tracer provider that forwards spans to processor.
func setupOTel(processor sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(processor))
	otel.SetTracerProvider(tp)
	return tp
}

// summarize logs the outcome counts and the error of every node that failed
// on its own account. Blocked nodes are only counted.
func (a *App) summarize(r *installer.Report) {
	for _, res := range r.Results {
		if res.Err != nil && res.Outcome != domain.OutcomeBlocked {
			a.logger.Error(res.Err)
		}
	}
	if n := r.Count(domain.OutcomeBlocked); n > 0 {
		a.logger.Warn(fmt.Sprintf("%d package(s) skipped because a dependency did not install", n))
	}
	a.logger.Info(fmt.Sprintf("%d installed, %d already installed",
		r.Count(domain.OutcomeInstalled), r.Count(domain.OutcomeReused)))
}
