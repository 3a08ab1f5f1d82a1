package installer_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

var testArch = domain.Arch{Platform: "linux", OS: "ubuntu22.04", Target: "x86_64"}

var gcc12 = domain.Compiler{
	Name:    "gcc",
	Version: domain.MustParseVersion("12.2.0"),
	CC:      "/usr/bin/gcc-12",
	CXX:     "/usr/bin/g++-12",
	FC:      "/usr/bin/gfortran-12",
}

type dep struct {
	spec  *domain.Spec
	kinds domain.DepKind
}

func link(s *domain.Spec) dep    { return dep{spec: s, kinds: domain.DefaultDepKinds} }
func runOnly(s *domain.Spec) dep { return dep{spec: s, kinds: domain.DepRun} }

// node builds a sealed concrete spec.
func node(t *testing.T, name, version string, deps ...dep) *domain.Spec {
	t.Helper()
	s := &domain.Spec{
		Name:     name,
		Versions: domain.ExactVersion(domain.MustParseVersion(version)),
		Variants: map[string]domain.VariantValue{},
		Compiler: domain.CompilerSpec{Name: "gcc", Versions: domain.ExactVersion(gcc12.Version)},
		Arch:     testArch,
	}
	for _, d := range deps {
		s.Dependencies = append(s.Dependencies, domain.DependencyEdge{Spec: d.spec, Kinds: d.kinds})
	}
	require.NoError(t, domain.Seal(s))
	return s
}

func newDAG(t *testing.T, roots ...*domain.Spec) *domain.DAG {
	t.Helper()
	dag, err := domain.NewDAG(roots...)
	require.NoError(t, err)
	return dag
}

// memRegistry returns a generic package for every name.
type memRegistry struct{}

func (memRegistry) Get(name string) (*domain.Package, error) {
	return &domain.Package{Name: name, BuildSystem: domain.BuildSystemGeneric}, nil
}

func (memRegistry) AllNames() ([]string, error) { return nil, nil }

// memDB is an in-memory ports.Database.
type memDB struct {
	mu      sync.Mutex
	records map[string]*domain.Record
}

func newMemDB() *memDB {
	return &memDB{records: map[string]*domain.Record{}}
}

func (d *memDB) put(r *domain.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[r.Hash] = r
}

func (d *memDB) Lookup(hash string) (*domain.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.records[hash]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (d *memDB) Query(match func(*domain.Record) bool) ([]*domain.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*domain.Record
	for _, r := range d.records {
		if match == nil || match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (d *memDB) BeginInstall(spec *domain.Spec, prefix string, explicit bool, installID string) (*domain.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.records[spec.Hash]; ok && r.Status != domain.StatusFailed {
		return r, nil
	}
	r := &domain.Record{Hash: spec.Hash, Spec: spec, Prefix: prefix, Status: domain.StatusInstalling, Explicit: explicit, InstallID: installID}
	d.records[spec.Hash] = r
	return r, nil
}

func (d *memDB) update(hash string, mutate func(*domain.Record)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.records[hash]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrNotInstalled, "no record"), "hash", hash)
	}
	mutate(r)
	return nil
}

func (d *memDB) MarkInstalled(hash, digest string) error {
	return d.update(hash, func(r *domain.Record) {
		r.Status = domain.StatusInstalled
		r.ManifestDigest = digest
		r.Failure = nil
	})
}

func (d *memDB) MarkFailed(hash string, failure domain.Failure) error {
	return d.update(hash, func(r *domain.Record) {
		r.Status = domain.StatusFailed
		r.Failure = &failure
	})
}

func (d *memDB) SetExplicit(hash string, explicit bool) error {
	return d.update(hash, func(r *domain.Record) { r.Explicit = explicit })
}

func (d *memDB) Remove(hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, hash)
	return nil
}

func (d *memDB) status(hash string) domain.InstallStatus {
	r, _ := d.Lookup(hash)
	if r == nil {
		return ""
	}
	return r.Status
}

// memLocker hands out in-process per-hash locks.
type memLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newMemLocker() *memLocker {
	return &memLocker{slots: map[string]chan struct{}{}}
}

func (l *memLocker) Acquire(ctx context.Context, hash string) (ports.Lock, error) {
	l.mu.Lock()
	slot, ok := l.slots[hash]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[hash] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return &memLock{slot: slot}, nil
	case <-ctx.Done():
		return nil, zerr.With(zerr.Wrap(domain.ErrLockTimeout, "busy"), "hash", hash)
	}
}

type memLock struct {
	once sync.Once
	slot chan struct{}
}

func (l *memLock) Release() error {
	l.once.Do(func() { <-l.slot })
	return nil
}

// fakeBuilder installs a marker file per node and records what it built.
type fakeBuilder struct {
	mu         sync.Mutex
	delay      time.Duration
	fail       map[string]bool
	builds     map[string]int
	order      []string
	requests   map[string]*domain.BuildRequest
	running    int
	maxRunning int
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{
		fail:     map[string]bool{},
		builds:   map[string]int{},
		requests: map[string]*domain.BuildRequest{},
	}
}

func (b *fakeBuilder) Phases(*domain.BuildRequest) []domain.Phase {
	return []domain.Phase{domain.PhaseFetch, domain.PhaseInstall}
}

func (b *fakeBuilder) RunPhase(_ context.Context, phase domain.Phase, req *domain.BuildRequest, out io.Writer) error {
	if phase != domain.PhaseInstall {
		return nil
	}
	b.mu.Lock()
	b.builds[req.Spec.Name]++
	b.order = append(b.order, req.Spec.Name)
	b.requests[req.Spec.Name] = req
	b.running++
	b.maxRunning = max(b.maxRunning, b.running)
	b.mu.Unlock()

	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	b.mu.Lock()
	b.running--
	fail := b.fail[req.Spec.Name]
	b.mu.Unlock()

	_, _ = io.WriteString(out, "installing "+req.Spec.Name+"\n")
	if fail {
		return zerr.With(zerr.Wrap(domain.ErrCommandFailed, "exit status 2"), "command", "make install")
	}
	bin := filepath.Join(req.Prefix, "bin")
	if err := os.MkdirAll(bin, 0o750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(bin, req.Spec.Name), []byte(req.Spec.Hash), 0o600)
}

func (b *fakeBuilder) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds[name]
}

func (b *fakeBuilder) built() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.order)
}

func (b *fakeBuilder) request(name string) *domain.BuildRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[name]
}

type emptyFetcher struct{}

func (emptyFetcher) Fetch(context.Context, *domain.Package, domain.Version, string) (domain.FetchResult, error) {
	return domain.FetchResult{}, nil
}

type fixedManifester struct{}

func (fixedManifester) Write(context.Context, string) (string, error) { return "0123456789abcdef", nil }

func (fixedManifester) Verify(context.Context, string, string) error { return nil }

// planTracer records the emitted plan and started span names.
type planTracer struct {
	mu    sync.Mutex
	nodes []string
	deps  map[string][]string
	roots []string
	spans []string
}

func (p *planTracer) Start(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spans = append(p.spans, name)
	return ctx, discardSpan{}
}

func (p *planTracer) EmitPlan(_ context.Context, nodes []string, deps map[string][]string, roots []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes, p.deps, p.roots = nodes, deps, roots
}

type discardSpan struct{}

func (discardSpan) Write(p []byte) (int, error) { return len(p), nil }
func (discardSpan) End()                        {}
func (discardSpan) RecordError(error)           {}
func (discardSpan) SetAttribute(string, any)    {}
