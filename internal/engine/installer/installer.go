// Package installer drives a concrete DAG to a fully installed state.
package installer

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options configures one install run.
type Options struct {
	// InstallTree is the root below which prefixes are created.
	InstallTree string
	// Stage is where per-build scratch directories are created.
	Stage     string
	Compilers []domain.Compiler
	Install   domain.InstallConfig
	// Explicit holds the hashes requested by the user. When nil the DAG
	// roots are explicit.
	Explicit map[string]bool
}

// Installer installs concrete DAGs.
type Installer struct {
	registry   ports.Registry
	db         ports.Database
	locker     ports.Locker
	builder    ports.Builder
	fetcher    ports.Fetcher
	manifester ports.Manifester
	cache      ports.BuildCache
	tracer     ports.Tracer
	logger     ports.Logger
	now        func() time.Time
}

// New creates a new Installer with the given dependencies.
func New(
	registry ports.Registry,
	db ports.Database,
	locker ports.Locker,
	builder ports.Builder,
	fetcher ports.Fetcher,
	manifester ports.Manifester,
	cache ports.BuildCache,
	tracer ports.Tracer,
	logger ports.Logger,
) *Installer {
	return &Installer{
		registry:   registry,
		db:         db,
		locker:     locker,
		builder:    builder,
		fetcher:    fetcher,
		manifester: manifester,
		cache:      cache,
		tracer:     tracer,
		logger:     logger,
		now:        time.Now,
	}
}

// Label names a node in plans and spans: name@version/shorthash.
func Label(s *domain.Spec) string {
	return s.Name + "@" + s.Version().String() + "/" + s.ShortHash()
}

// Install brings every node of dag to the installed state. Nodes run as soon
// as their build and link dependencies are installed, at most
// opts.Install.Jobs at a time. A failed node blocks only its dependents.
// The returned error joins the errors of all failed, blocked and busy nodes.
func (i *Installer) Install(ctx context.Context, dag *domain.DAG, opts Options) (*Report, error) {
	if dag == nil || dag.Len() == 0 {
		return nil, domain.ErrNoSpecsRequested
	}
	if opts.Explicit == nil {
		opts.Explicit = make(map[string]bool)
		for _, r := range dag.Roots() {
			opts.Explicit[r.Hash] = true
		}
	}

	state := newRunState(ctx, i, dag, opts)
	i.emitPlan(ctx, state)
	state.runLoop()

	report := state.report()
	if err := report.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (i *Installer) emitPlan(ctx context.Context, state *runState) {
	nodes := make([]string, 0, len(state.order))
	deps := make(map[string][]string, len(state.order))
	for _, n := range state.order {
		label := Label(n)
		nodes = append(nodes, label)
		gating := make([]string, 0, len(state.gating[n.Hash]))
		for _, h := range state.gating[n.Hash] {
			dep, _ := state.dag.Lookup(h)
			gating = append(gating, Label(dep))
		}
		deps[label] = gating
	}
	roots := make([]string, 0, len(state.dag.Roots()))
	for _, r := range state.dag.Roots() {
		roots = append(roots, Label(r))
	}
	i.tracer.EmitPlan(ctx, nodes, deps, roots)
}

type result struct {
	hash     string
	outcome  domain.Outcome
	err      error
	prefix   string
	duration time.Duration
}

type runState struct {
	ctx       context.Context
	inst      *Installer
	dag       *domain.DAG
	opts      Options
	jobs      int
	order     []*domain.Spec
	gating    map[string][]string
	inDegree  map[string]int
	ready     []string
	active    int
	resultsCh chan result
	started   map[string]bool
	results   map[string]result
	prefixes  map[string]string
}

func newRunState(ctx context.Context, inst *Installer, dag *domain.DAG, opts Options) *runState {
	jobs := max(1, opts.Install.Jobs)
	state := &runState{
		ctx:       ctx,
		inst:      inst,
		dag:       dag,
		opts:      opts,
		jobs:      jobs,
		order:     dag.TopologicalOrder(),
		gating:    make(map[string][]string),
		inDegree:  make(map[string]int),
		resultsCh: make(chan result, jobs),
		started:   make(map[string]bool),
		results:   make(map[string]result),
		prefixes:  make(map[string]string),
	}

	for _, n := range state.order {
		seen := map[string]bool{}
		for _, e := range n.Dependencies {
			if !e.Kinds.Gates() || seen[e.Spec.Hash] {
				continue
			}
			seen[e.Spec.Hash] = true
			state.gating[n.Hash] = append(state.gating[n.Hash], e.Spec.Hash)
		}
		state.inDegree[n.Hash] = len(state.gating[n.Hash])
		if state.inDegree[n.Hash] == 0 {
			state.ready = append(state.ready, n.Hash)
		}
	}
	return state
}

func (s *runState) isDone() bool {
	return s.active == 0 && len(s.ready) == 0
}

func (s *runState) runLoop() {
	for !s.isDone() {
		s.schedule()

		if s.isDone() {
			break
		}

		if s.ctx.Err() != nil && s.active == 0 {
			return
		}

		select {
		case res := <-s.resultsCh:
			s.handleResult(res)
		case <-s.ctx.Done():
			// Wait for running nodes; nothing new is scheduled.
			if s.active > 0 {
				s.handleResult(<-s.resultsCh)
			}
		}
	}
}

func (s *runState) schedule() {
	for len(s.ready) > 0 && s.active < s.jobs && s.ctx.Err() == nil {
		hash := s.ready[0]
		s.ready = s.ready[1:]
		if _, done := s.results[hash]; done {
			continue
		}

		spec, _ := s.dag.Lookup(hash)
		s.active++
		s.started[hash] = true
		req := s.nodeRequest(spec)
		go func() {
			s.resultsCh <- s.inst.installNode(s.ctx, req)
		}()
	}
}

func (s *runState) handleResult(res result) {
	s.active--
	s.results[res.hash] = res

	if !res.outcome.Succeeded() {
		s.blockDependents(res)
		return
	}

	s.prefixes[res.hash] = res.prefix
	for _, dep := range s.dag.Dependents(res.hash) {
		if !slices.Contains(s.gating[dep.Hash], res.hash) {
			continue
		}
		s.inDegree[dep.Hash]--
		if s.inDegree[dep.Hash] == 0 {
			s.ready = append(s.ready, dep.Hash)
		}
	}
}

// blockDependents marks every not yet started transitive dependent of a
// node that did not install.
func (s *runState) blockDependents(res result) {
	failed, _ := s.dag.Lookup(res.hash)
	for _, dep := range s.dag.TransitiveDependents(res.hash) {
		if _, done := s.results[dep.Hash]; done || s.started[dep.Hash] {
			continue
		}
		err := zerr.With(zerr.With(zerr.Wrap(domain.ErrBlockedByDependencyFailure, "dependency did not install"),
			"spec", dep.NodeString()), "dependency", failed.NodeString())
		s.results[dep.Hash] = result{hash: dep.Hash, outcome: domain.OutcomeBlocked, err: err}
		s.ready = slices.DeleteFunc(s.ready, func(h string) bool { return h == dep.Hash })
	}
}

func (s *runState) report() *Report {
	r := &Report{Results: make([]NodeResult, 0, len(s.order))}
	for _, n := range s.order {
		res, ok := s.results[n.Hash]
		if !ok {
			var err error
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				err = zerr.With(zerr.Wrap(ctxErr, "install interrupted"), "spec", n.NodeString())
			}
			res = result{outcome: domain.OutcomePending, err: err}
		}
		r.Results = append(r.Results, NodeResult{
			Spec:     n,
			Outcome:  res.outcome,
			Err:      res.err,
			Duration: res.duration,
			Prefix:   res.prefix,
		})
	}
	return r
}

// nodeRequest collects what installNode needs from the run state. It runs
// on the loop goroutine so workers never touch shared maps.
func (s *runState) nodeRequest(spec *domain.Spec) nodeRequest {
	deps := make(map[string]string)
	kinds := make(map[string]domain.DepKind)
	for _, n := range spec.Traverse()[1:] {
		if p, ok := s.prefixes[n.Hash]; ok {
			deps[n.Name] = p
		}
	}
	for _, e := range spec.Dependencies {
		kinds[e.Spec.Name] |= e.Kinds
		p, ok := s.prefixes[e.Spec.Hash]
		if !ok {
			continue
		}
		for _, v := range e.Virtuals {
			if _, taken := deps[v]; !taken {
				deps[v] = p
			}
		}
	}
	return nodeRequest{
		spec:     spec,
		opts:     s.opts,
		explicit: s.opts.Explicit[spec.Hash],
		deps:     deps,
		kinds:    kinds,
	}
}

// isLockTimeout reports whether err means the lock stayed busy.
func isLockTimeout(err error) bool {
	return errors.Is(err, domain.ErrLockTimeout)
}
