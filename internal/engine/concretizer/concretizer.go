// Package concretizer turns abstract spec requests into a concrete DAG.
//
// The search keeps one decision per package name. After each decision the
// assignment is propagated: decided packages contribute the constraints of
// their dependency rules, conflict rules are evaluated, and every node still
// open is checked for a remaining candidate. Branching picks the first open
// node in discovery order and tries reuse of installed specs before fresh
// configurations. Contradictions backtrack; failed assignments are
// remembered by signature.
package concretizer

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Policy holds the tunables and environment of one concretization.
type Policy struct {
	// Reuse prefers installed specs that satisfy all constraints.
	Reuse bool
	// OneToolchain makes dependencies try their dependent's compiler first.
	OneToolchain bool
	// Compilers available for fresh builds.
	Compilers []domain.Compiler
	// DefaultArch fills arch fields no constraint sets.
	DefaultArch domain.Arch
	// Providers orders candidate providers per virtual name.
	Providers map[string][]string
	// MaxDecisions bounds the search.
	MaxDecisions int
}

// PolicyFromConfig derives the policy from a resolved configuration.
func PolicyFromConfig(cfg *domain.Config) Policy {
	return Policy{
		Reuse:        cfg.Concretizer.Reuse,
		OneToolchain: cfg.Concretizer.OneToolchain,
		Compilers:    cfg.Compilers,
		DefaultArch:  cfg.Arch,
		Providers:    cfg.Concretizer.Providers,
		MaxDecisions: cfg.Concretizer.MaxDecisions,
	}
}

// Concretizer resolves requests against a registry and, for reuse, a database.
type Concretizer struct {
	registry ports.Registry
	db       ports.Database
	logger   ports.Logger
}

// New creates a Concretizer. db may be nil, which disables reuse.
func New(registry ports.Registry, db ports.Database, logger ports.Logger) *Concretizer {
	return &Concretizer{registry: registry, db: db, logger: logger}
}

// Concretize resolves roots into a validated DAG of concrete specs. When no
// configuration exists the error wraps domain.ErrUnsatisfiableConstraints
// and carries the conflicting constraints as "core" metadata.
func (c *Concretizer) Concretize(ctx context.Context, roots []*domain.Spec, policy Policy) (*domain.DAG, error) {
	if len(roots) == 0 {
		return nil, zerr.Wrap(domain.ErrNoSpecsRequested, "nothing to concretize")
	}
	if policy.MaxDecisions <= 0 {
		policy.MaxDecisions = domain.DefaultMaxDecisions
	}

	s := &solver{
		ctx:      ctx,
		registry: c.registry,
		logger:   c.logger,
		policy:   policy,
		packages: make(map[string]*domain.Package),
	}
	if err := s.prepare(roots); err != nil {
		return nil, err
	}
	if policy.Reuse && c.db != nil {
		if err := s.loadInstalled(c.db); err != nil {
			return nil, err
		}
	}

	v, a, conflict, err := s.run()
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, s.unsatisfiable(roots)
	}
	return s.assemble(v, a)
}

// atom is one requested attribute: a version, a variant, a toolchain field
// or a ^dependency constraint of a root.
type atom struct {
	target string
	spec   *domain.Spec
	text   string
}

type solver struct {
	ctx      context.Context
	registry ports.Registry
	logger   ports.Logger
	policy   Policy

	roots  []*domain.Spec
	atoms  []atom
	active []bool

	packages      map[string]*domain.Package // nil value marks a virtual
	providerIndex map[string][]string
	installed     map[string][]*domain.Record

	decisions int
	nogoods   map[uint64]struct{}
}

// prepare canonicalizes the roots and splits them into atoms.
func (s *solver) prepare(roots []*domain.Spec) error {
	for _, r := range roots {
		if r.Name == "" {
			return zerr.With(zerr.Wrap(domain.ErrInvalidSpec, "requested spec must name a package"), "spec", r.String())
		}
		_, virtual, err := s.resolve(r.Name)
		if err != nil {
			return err
		}
		canon := r
		if virtual {
			anon := r.Clone()
			anon.Name = ""
			if canon, err = domain.Canonicalize(anon, s); err != nil {
				return err
			}
			canon.Name = r.Name
		} else if canon, err = domain.Canonicalize(r, s); err != nil {
			return err
		}
		s.roots = append(s.roots, canon)
		s.atoms = append(s.atoms, splitAtoms(canon)...)
	}
	s.active = make([]bool, len(s.atoms))
	for i := range s.active {
		s.active[i] = true
	}
	return nil
}

// Get implements domain.PackageSource over the solver's package cache.
func (s *solver) Get(name string) (*domain.Package, error) {
	pkg, virtual, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	if virtual {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "virtual package"), "package", name)
	}
	return pkg, nil
}

func splitAtoms(r *domain.Spec) []atom {
	var out []atom
	node := func(spec *domain.Spec) {
		out = append(out, atom{target: r.Name, spec: spec, text: "requested: " + spec.NodeString()})
	}
	if !r.Versions.IsAny() {
		node(&domain.Spec{Name: r.Name, Versions: r.Versions})
	}
	for _, name := range sortedKeys(r.Variants) {
		node(&domain.Spec{Name: r.Name, Variants: map[string]domain.VariantValue{name: r.Variants[name]}})
	}
	if !r.Compiler.IsZero() {
		node(&domain.Spec{Name: r.Name, Compiler: r.Compiler})
	}
	if !r.Arch.IsZero() {
		node(&domain.Spec{Name: r.Name, Arch: r.Arch})
	}
	for _, e := range r.Dependencies {
		dep := nodePart(e.Spec)
		out = append(out, atom{
			target: dep.Name,
			spec:   dep,
			text:   "requested: " + r.Name + " ^" + dep.NodeString(),
		})
	}
	return out
}

// resolve returns the package named name. For a name no repository defines
// it reports whether some package provides it as a virtual.
func (s *solver) resolve(name string) (*domain.Package, bool, error) {
	if pkg, ok := s.packages[name]; ok {
		return pkg, pkg == nil, nil
	}
	pkg, err := s.registry.Get(name)
	if err == nil {
		s.packages[name] = pkg
		return pkg, false, nil
	}
	if !errors.Is(err, domain.ErrUnknownPackage) {
		return nil, false, err
	}
	if s.providerIndex == nil {
		if ierr := s.indexProviders(); ierr != nil {
			return nil, false, ierr
		}
	}
	if _, ok := s.providerIndex[name]; ok {
		s.packages[name] = nil
		return nil, true, nil
	}
	return nil, false, err
}

// indexProviders loads every package definition concurrently and records
// which packages provide each virtual.
func (s *solver) indexProviders() error {
	names, err := s.registry.AllNames()
	if err != nil {
		return err
	}

	loaded := make([]*domain.Package, len(names))
	failed := make([]error, len(names))
	g, _ := errgroup.WithContext(s.ctx)
	g.SetLimit(runtime.NumCPU())
	for i, name := range names {
		g.Go(func() error {
			loaded[i], failed[i] = s.registry.Get(name)
			return nil
		})
	}
	_ = g.Wait()

	s.providerIndex = make(map[string][]string)
	for i, pkg := range loaded {
		if failed[i] != nil {
			s.logger.Warn("skipping package " + names[i] + " while indexing providers: " + failed[i].Error())
			continue
		}
		if _, ok := s.packages[pkg.Name]; !ok {
			s.packages[pkg.Name] = pkg
		}
		for _, virt := range pkg.ProvidedVirtuals() {
			if !slices.Contains(s.providerIndex[virt], pkg.Name) {
				s.providerIndex[virt] = append(s.providerIndex[virt], pkg.Name)
			}
		}
	}
	return s.ctx.Err()
}

// loadInstalled indexes installed records by package name, newest version
// first and then by hash.
func (s *solver) loadInstalled(db ports.Database) error {
	records, err := db.Query(func(r *domain.Record) bool { return r.Installed() })
	if err != nil {
		return err
	}
	s.installed = make(map[string][]*domain.Record)
	for _, r := range records {
		s.installed[r.Spec.Name] = append(s.installed[r.Spec.Name], r)
	}
	for _, recs := range s.installed {
		slices.SortStableFunc(recs, func(a, b *domain.Record) int {
			if c := b.Spec.Version().Compare(a.Spec.Version()); c != 0 {
				return c
			}
			return strings.Compare(a.Hash, b.Hash)
		})
	}
	return nil
}

// run searches from the empty assignment with the active atoms.
func (s *solver) run() (*view, assignment, *conflict, error) {
	s.decisions = 0
	s.nogoods = make(map[uint64]struct{})
	return s.solve(assignment{})
}

func (s *solver) solve(a assignment) (*view, assignment, *conflict, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	v, c, err := s.derive(a)
	if err != nil || c != nil {
		return nil, nil, c, err
	}
	next := v.nextOpen(a)
	if next == "" {
		return v, a, nil, nil
	}

	var failed *conflict
	for updates := range s.candidates(v, a, next) {
		child := a.with(updates)
		sig := child.signature()
		if _, bad := s.nogoods[sig]; bad {
			continue
		}
		s.decisions++
		if s.decisions > s.policy.MaxDecisions {
			return nil, nil, nil, zerr.With(zerr.Wrap(domain.ErrSearchBudgetExceeded, "no solution within the decision budget"), "max_decisions", s.policy.MaxDecisions)
		}
		sv, sa, sc, err := s.solve(child)
		if err != nil || sv != nil {
			return sv, sa, nil, err
		}
		s.nogoods[sig] = struct{}{}
		failed = failed.merge(sc)
	}
	if failed == nil {
		failed = newConflict(v.nodes[next].reasons()...)
	}
	return nil, nil, failed, nil
}

// unsatisfiable shrinks the active atoms to a minimal unsatisfiable subset by
// deletion and reports it with the package rules of the final contradiction.
func (s *solver) unsatisfiable(roots []*domain.Spec) error {
	for i := range s.atoms {
		s.active[i] = false
		_, _, c, err := s.run()
		if err != nil || c == nil {
			s.active[i] = true
		}
	}

	var core []string
	for i, at := range s.atoms {
		if s.active[i] {
			core = append(core, at.text)
		}
	}
	if _, _, c, err := s.run(); err == nil && c != nil {
		for _, r := range c.reasons {
			if !strings.HasPrefix(r, "requested: ") && !slices.Contains(core, r) {
				core = append(core, r)
			}
		}
	}

	requested := make([]string, len(roots))
	for i, r := range roots {
		requested[i] = r.String()
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrUnsatisfiableConstraints, "no configuration satisfies the request"),
		"request", strings.Join(requested, " ")), "core", core)
}

func sortedKeys(m map[string]domain.VariantValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
