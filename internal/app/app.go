// Package app implements the application layer for sprig.
package app

import (
	"context"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/sprig/internal/engine/concretizer"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	registries   ports.RegistryFactory
	databases    ports.DatabaseFactory
	lockers      ports.LockerFactory
	fetchers     ports.FetcherFactory
	caches       ports.BuildCacheFactory
	builder      ports.Builder
	manifester   ports.Manifester
	logger       ports.Logger
	teaOptions   []tea.ProgramOption
	stdout       io.Writer
	stderr       io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	registries ports.RegistryFactory,
	databases ports.DatabaseFactory,
	lockers ports.LockerFactory,
	fetchers ports.FetcherFactory,
	caches ports.BuildCacheFactory,
	builder ports.Builder,
	manifester ports.Manifester,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		registries:   registries,
		databases:    databases,
		lockers:      lockers,
		fetchers:     fetchers,
		caches:       caches,
		builder:      builder,
		manifester:   manifester,
		logger:       log,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithOutput redirects the install renderers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// session is the state every use case starts from.
type session struct {
	cfg      *domain.Config
	registry ports.Registry
	db       ports.Database
}

func (a *App) open() (*session, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	registry, err := a.registries.Open(cfg.Repos)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open package repositories")
	}
	db, err := a.databases.Open(cfg.Database)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open database")
	}
	return &session{cfg: cfg, registry: registry, db: db}, nil
}

// ConcretizeOptions tunes a single concretization.
type ConcretizeOptions struct {
	// Fresh disables reuse of installed specs.
	Fresh bool
}

// Concretize resolves spec expressions into a concrete DAG. With no
// expressions the environment specs of the configuration are used.
func (a *App) Concretize(ctx context.Context, exprs []string, opts ConcretizeOptions) (*domain.DAG, error) {
	s, err := a.open()
	if err != nil {
		return nil, err
	}
	return a.concretize(ctx, s, exprs, opts)
}

func (a *App) concretize(ctx context.Context, s *session, exprs []string, opts ConcretizeOptions) (*domain.DAG, error) {
	roots, err := requestedSpecs(s.cfg, exprs)
	if err != nil {
		return nil, err
	}
	policy := concretizer.PolicyFromConfig(s.cfg)
	if opts.Fresh {
		policy.Reuse = false
	}
	return concretizer.New(s.registry, s.db, a.logger).Concretize(ctx, roots, policy)
}

// requestedSpecs parses the command line as one spec expression, so that
// separate arguments like "hdf5" "+mpi" describe a single spec.
func requestedSpecs(cfg *domain.Config, exprs []string) ([]*domain.Spec, error) {
	if len(exprs) == 0 {
		exprs = cfg.Specs
	}
	if len(exprs) == 0 {
		return nil, domain.ErrNoSpecsRequested
	}
	return domain.ParseSpecs(strings.Join(exprs, " "))
}

// parseQueries parses abstract query specs; no expressions match everything.
func parseQueries(exprs []string) ([]*domain.Spec, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	return domain.ParseSpecs(strings.Join(exprs, " "))
}

func matchesAny(rec *domain.Record, queries []*domain.Spec) bool {
	if len(queries) == 0 {
		return true
	}
	for _, q := range queries {
		if domain.Satisfies(rec.Spec, q) {
			return true
		}
	}
	return false
}
