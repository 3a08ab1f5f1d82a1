package concretizer_test

import (
	"context"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports/mocks"
	"go.trai.ch/sprig/internal/engine/concretizer"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type memRegistry map[string]*domain.Package

func (r memRegistry) Get(name string) (*domain.Package, error) {
	if p, ok := r[name]; ok {
		return p, nil
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "not in test registry"), "package", name)
}

func (r memRegistry) AllNames() ([]string, error) {
	return slices.Sorted(maps.Keys(r)), nil
}

type pkgBuilder struct {
	p *domain.Package
}

func pkg(name string, versions ...string) *pkgBuilder {
	p := &domain.Package{Name: name, BuildSystem: domain.BuildSystemGeneric}
	for _, v := range versions {
		p.Versions = append(p.Versions, domain.VersionDecl{Version: domain.MustParseVersion(v)})
	}
	return &pkgBuilder{p: p}
}

func when(text string) *domain.Spec {
	if text == "" {
		return nil
	}
	s, err := domain.ParseCondition(text)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *pkgBuilder) boolVariant(name string, def bool) *pkgBuilder {
	b.p.Variants = append(b.p.Variants, domain.VariantDef{Name: name, Default: domain.BoolVariant(def)})
	return b
}

func (b *pkgBuilder) singleVariant(name, def string, values ...string) *pkgBuilder {
	b.p.Variants = append(b.p.Variants, domain.VariantDef{Name: name, Default: domain.SingleVariant(def), Values: values})
	return b
}

func (b *pkgBuilder) dep(spec, cond string, kinds domain.DepKind) *pkgBuilder {
	b.p.Dependencies = append(b.p.Dependencies, domain.DependencyRule{Spec: domain.MustParseSpec(spec), When: when(cond), Kinds: kinds})
	return b
}

func (b *pkgBuilder) conflicts(spec, cond, msg string) *pkgBuilder {
	b.p.Conflicts = append(b.p.Conflicts, domain.ConflictRule{Spec: domain.MustParseSpec(spec), When: when(cond), Message: msg})
	return b
}

func (b *pkgBuilder) provides(virtual, cond string) *pkgBuilder {
	b.p.Provides = append(b.p.Provides, domain.ProvidesRule{Virtual: domain.MustParseSpec(virtual), When: when(cond)})
	return b
}

func (b *pkgBuilder) mark(version string, preferred, deprecated bool) *pkgBuilder {
	for i := range b.p.Versions {
		if b.p.Versions[i].Version.String() == version {
			b.p.Versions[i].Preferred = preferred
			b.p.Versions[i].Deprecated = deprecated
		}
	}
	return b
}

func registry(builders ...*pkgBuilder) memRegistry {
	r := memRegistry{}
	for _, b := range builders {
		r[b.p.Name] = b.p
	}
	return r
}

var (
	gcc12 = domain.Compiler{Name: "gcc", Version: domain.MustParseVersion("12.2.0")}
	gcc11 = domain.Compiler{Name: "gcc", Version: domain.MustParseVersion("11.3.0")}
	host  = domain.Arch{Platform: "linux", OS: "ubuntu22.04", Target: "x86_64"}
)

func policy() concretizer.Policy {
	return concretizer.Policy{
		OneToolchain: true,
		Compilers:    []domain.Compiler{gcc11, gcc12},
		DefaultArch:  host,
		MaxDecisions: 1000,
	}
}

func hpcRegistry() memRegistry {
	return registry(
		pkg("zlib", "1.2.11", "1.2.13", "1.3").boolVariant("shared", true),
		pkg("hdf5", "1.10.7", "1.12.2").
			boolVariant("mpi", false).
			singleVariant("api", "default", "default", "v18", "v110").
			dep("zlib@1.2:", "", domain.DefaultDepKinds).
			dep("mpi@3:", "+mpi", domain.DefaultDepKinds).
			dep("cmake@3.20:", "", domain.DepBuild),
		pkg("cmake", "3.20.0", "3.27.1").dep("zlib", "", domain.DepLink),
		pkg("openmpi", "3.1.6", "4.1.5").provides("mpi@3", "@4:").provides("mpi@2", "@:3"),
		pkg("mvapich", "2.3.7").provides("mpi@3", ""),
	)
}

func newConcretizer(t *testing.T, reg memRegistry) *concretizer.Concretizer {
	t.Helper()
	ctrl := gomock.NewController(t)
	return concretizer.New(reg, nil, mocks.NewMockLogger(ctrl))
}

func parse(t *testing.T, text string) []*domain.Spec {
	t.Helper()
	specs, err := domain.ParseSpecs(text)
	require.NoError(t, err)
	return specs
}

func nodeNamed(t *testing.T, dag *domain.DAG, name string) *domain.Spec {
	t.Helper()
	for _, n := range dag.TopologicalOrder() {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("no node named %s", name)
	return nil
}

func names(dag *domain.DAG) []string {
	var out []string
	for _, n := range dag.TopologicalOrder() {
		out = append(out, n.Name)
	}
	slices.Sort(out)
	return out
}

func coreOf(t *testing.T, err error) []string {
	t.Helper()
	require.ErrorIs(t, err, domain.ErrUnsatisfiableConstraints)
	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	core, ok := zErr.Metadata()["core"].([]string)
	require.True(t, ok, "core metadata missing")
	return core
}

func TestConcretize_PicksNewestVersionAndCompiler(t *testing.T) {
	c := newConcretizer(t, hpcRegistry())

	dag, err := c.Concretize(context.Background(), parse(t, "zlib"), policy())
	require.NoError(t, err)

	zlib := nodeNamed(t, dag, "zlib")
	assert.True(t, zlib.Concrete())
	assert.Equal(t, "1.3", zlib.Version().String())
	assert.Equal(t, "gcc@12.2.0", zlib.Compiler.String())
	assert.Equal(t, host, zlib.Arch)
	assert.True(t, zlib.Variants["shared"].Bool())
}

func TestConcretize_VersionConstraints(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{"zlib@1.2", "1.2.13"},
		{"zlib@=1.2.11", "1.2.11"},
		{"zlib@:1.2.12", "1.2.11"},
		{"zlib@1.2.11,1.2.13", "1.2.13"},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			c := newConcretizer(t, hpcRegistry())
			dag, err := c.Concretize(context.Background(), parse(t, tt.request), policy())
			require.NoError(t, err)
			assert.Equal(t, tt.want, nodeNamed(t, dag, "zlib").Version().String())
		})
	}
}

func TestConcretize_VersionPreferenceOrder(t *testing.T) {
	reg := registry(
		pkg("a", "1.0", "1.1", "2.0", "develop").mark("1.1", true, false),
		pkg("b", "1.0", "2.0", "develop").mark("2.0", false, true),
	)
	c := newConcretizer(t, reg)

	dag, err := c.Concretize(context.Background(), parse(t, "a b"), policy())
	require.NoError(t, err)
	assert.Equal(t, "1.1", nodeNamed(t, dag, "a").Version().String(), "preferred wins")
	assert.Equal(t, "1.0", nodeNamed(t, dag, "b").Version().String(), "releases before branches and deprecated")

	dag, err = c.Concretize(context.Background(), parse(t, "b@develop"), policy())
	require.NoError(t, err)
	assert.Equal(t, "develop", nodeNamed(t, dag, "b").Version().String())
}

func TestConcretize_ConditionalDependencies(t *testing.T) {
	c := newConcretizer(t, hpcRegistry())

	dag, err := c.Concretize(context.Background(), parse(t, "hdf5"), policy())
	require.NoError(t, err)
	assert.Equal(t, []string{"cmake", "hdf5", "zlib"}, names(dag))

	hdf5 := nodeNamed(t, dag, "hdf5")
	cmakeEdge, ok := hdf5.Edge("cmake")
	require.True(t, ok)
	assert.Equal(t, domain.DepBuild, cmakeEdge.Kinds)
	assert.Same(t, nodeNamed(t, dag, "zlib"), nodeNamed(t, dag, "cmake").Dependency("zlib"), "one configuration per name")

	order := dag.TopologicalOrder()
	assert.Equal(t, "zlib", order[0].Name)
	assert.Equal(t, "hdf5", order[len(order)-1].Name)
}

func TestConcretize_VirtualProviders(t *testing.T) {
	t.Run("lexical without preference", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		dag, err := c.Concretize(context.Background(), parse(t, "hdf5+mpi"), policy())
		require.NoError(t, err)

		edge, ok := nodeNamed(t, dag, "hdf5").Edge("mpi")
		require.True(t, ok)
		assert.Equal(t, "mvapich", edge.Spec.Name)
		assert.Equal(t, []string{"mpi"}, edge.Virtuals)
		assert.Equal(t, domain.DefaultDepKinds, edge.Kinds)
	})

	t.Run("configured preference", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		p := policy()
		p.Providers = map[string][]string{"mpi": {"openmpi"}}
		dag, err := c.Concretize(context.Background(), parse(t, "hdf5+mpi"), p)
		require.NoError(t, err)

		openmpi := nodeNamed(t, dag, "openmpi")
		assert.Equal(t, "4.1.5", openmpi.Version().String(), "only openmpi@4: provides mpi@3")
	})

	t.Run("provider named in request", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		dag, err := c.Concretize(context.Background(), parse(t, "hdf5+mpi ^openmpi"), policy())
		require.NoError(t, err)
		assert.Contains(t, names(dag), "openmpi")
		assert.NotContains(t, names(dag), "mvapich")
	})

	t.Run("virtual requested directly", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		dag, err := c.Concretize(context.Background(), parse(t, "mpi@2"), policy())
		require.NoError(t, err)
		require.Len(t, dag.Roots(), 1)
		root := dag.Roots()[0]
		assert.Equal(t, "openmpi", root.Name)
		assert.Equal(t, "3.1.6", root.Version().String())
	})
}

func TestConcretize_BacktracksOnDependencyConflict(t *testing.T) {
	reg := registry(
		pkg("a", "1.0", "2.0").dep("b@2", "@2", domain.DefaultDepKinds).dep("b@1", "@1", domain.DefaultDepKinds),
		pkg("b", "1.0", "2.0"),
	)
	c := newConcretizer(t, reg)

	dag, err := c.Concretize(context.Background(), parse(t, "a ^b@1"), policy())
	require.NoError(t, err)
	assert.Equal(t, "1.0", nodeNamed(t, dag, "a").Version().String())
	assert.Equal(t, "1.0", nodeNamed(t, dag, "b").Version().String())
}

func TestConcretize_ConflictRules(t *testing.T) {
	t.Run("compiler conflict falls back to older compiler", func(t *testing.T) {
		reg := registry(pkg("zlib", "1.2.13", "1.3").conflicts("%gcc@12", "@1.3", "gcc 12 miscompiles 1.3"))
		dag, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "zlib"), policy())
		require.NoError(t, err)

		zlib := nodeNamed(t, dag, "zlib")
		assert.Equal(t, "1.3", zlib.Version().String())
		assert.Equal(t, "gcc@11.3.0", zlib.Compiler.String())
	})

	t.Run("variant deviation before older version", func(t *testing.T) {
		reg := registry(pkg("c", "1.0", "2.0").boolVariant("foo", true).conflicts("+foo", "@2", ""))
		dag, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "c"), policy())
		require.NoError(t, err)

		node := nodeNamed(t, dag, "c")
		assert.Equal(t, "2.0", node.Version().String())
		assert.False(t, node.Variants["foo"].Bool())
	})
}

func TestConcretize_DependencyConditions(t *testing.T) {
	t.Run("conflict ignored when the dependency is absent", func(t *testing.T) {
		reg := registry(
			pkg("a", "1.0").conflicts("%gcc", "a ^bar", "bar breaks gcc builds"),
			pkg("bar", "1.0"),
		)
		dag, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "a"), policy())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, names(dag))
	})

	t.Run("conflict fires when the dependency is present", func(t *testing.T) {
		reg := registry(
			pkg("a", "1.0").dep("bar", "", domain.DefaultDepKinds).conflicts("%gcc", "a ^bar", "bar breaks gcc builds"),
			pkg("bar", "1.0"),
		)
		_, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "a"), policy())
		assert.Contains(t, coreOf(t, err), "a: conflicts %gcc when a ^bar (bar breaks gcc builds)")
	})

	pyRegistry := func() memRegistry {
		return registry(
			pkg("python", "2.7.18", "3.11.4"),
			pkg("py-enum34", "1.1.10"),
			pkg("py-batch", "4.0").
				dep("python", "", domain.DefaultDepKinds).
				dep("py-enum34", "^python@:2", domain.DefaultDepKinds),
		)
	}

	t.Run("dependency added under an old dependency version", func(t *testing.T) {
		dag, err := newConcretizer(t, pyRegistry()).Concretize(context.Background(), parse(t, "py-batch ^python@:2"), policy())
		require.NoError(t, err)
		assert.Equal(t, []string{"py-batch", "py-enum34", "python"}, names(dag))
		_, ok := nodeNamed(t, dag, "py-batch").Edge("py-enum34")
		assert.True(t, ok)
	})

	t.Run("dependency skipped under a new dependency version", func(t *testing.T) {
		dag, err := newConcretizer(t, pyRegistry()).Concretize(context.Background(), parse(t, "py-batch"), policy())
		require.NoError(t, err)
		assert.Equal(t, []string{"py-batch", "python"}, names(dag))
		assert.Equal(t, "3.11.4", nodeNamed(t, dag, "python").Version().String())
	})

	t.Run("condition on a virtual follows its provider", func(t *testing.T) {
		reg := hpcRegistry()
		reg["solver"] = pkg("solver", "1.0").
			dep("mpi", "", domain.DefaultDepKinds).
			dep("zlib", "^mpi@3:", domain.DefaultDepKinds).p
		dag, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "solver ^openmpi@4"), policy())
		require.NoError(t, err)
		assert.Equal(t, []string{"openmpi", "solver", "zlib"}, names(dag))
	})
}

func TestConcretize_OneToolchain(t *testing.T) {
	c := newConcretizer(t, hpcRegistry())

	dag, err := c.Concretize(context.Background(), parse(t, "cmake %gcc@11"), policy())
	require.NoError(t, err)
	assert.Equal(t, "gcc@11.3.0", nodeNamed(t, dag, "zlib").Compiler.String())

	p := policy()
	p.OneToolchain = false
	dag, err = c.Concretize(context.Background(), parse(t, "cmake %gcc@11"), p)
	require.NoError(t, err)
	assert.Equal(t, "gcc@12.2.0", nodeNamed(t, dag, "zlib").Compiler.String())
}

func TestConcretize_Deterministic(t *testing.T) {
	c := newConcretizer(t, hpcRegistry())

	first, err := c.Concretize(context.Background(), parse(t, "hdf5+mpi api=v18"), policy())
	require.NoError(t, err)
	second, err := c.Concretize(context.Background(), parse(t, "hdf5+mpi api=v18"), policy())
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i, n := range first.TopologicalOrder() {
		assert.Equal(t, n.Hash, second.TopologicalOrder()[i].Hash)
	}
}

func TestConcretize_Reuse(t *testing.T) {
	installed := &domain.Spec{
		Name:     "zlib",
		Versions: domain.ExactVersion(domain.MustParseVersion("1.2.13")),
		Variants: map[string]domain.VariantValue{"shared": domain.BoolVariant(false)},
		Compiler: gcc11.Spec(),
		Arch:     host,
	}
	require.NoError(t, domain.Seal(installed))
	record := &domain.Record{Hash: installed.Hash, Spec: installed, Status: domain.StatusInstalled}

	newWithDB := func(t *testing.T) *concretizer.Concretizer {
		ctrl := gomock.NewController(t)
		db := mocks.NewMockDatabase(ctrl)
		db.EXPECT().Query(gomock.Any()).Return([]*domain.Record{record}, nil).AnyTimes()
		return concretizer.New(hpcRegistry(), db, mocks.NewMockLogger(ctrl))
	}
	p := policy()
	p.Reuse = true

	t.Run("installed spec is preferred", func(t *testing.T) {
		dag, err := newWithDB(t).Concretize(context.Background(), parse(t, "zlib"), p)
		require.NoError(t, err)
		assert.Equal(t, installed.Hash, nodeNamed(t, dag, "zlib").Hash)
	})

	t.Run("dependency reuses installed spec", func(t *testing.T) {
		dag, err := newWithDB(t).Concretize(context.Background(), parse(t, "cmake"), p)
		require.NoError(t, err)
		assert.Equal(t, installed.Hash, nodeNamed(t, dag, "zlib").Hash)
	})

	t.Run("constraints exclude installed spec", func(t *testing.T) {
		dag, err := newWithDB(t).Concretize(context.Background(), parse(t, "zlib+shared"), p)
		require.NoError(t, err)
		zlib := nodeNamed(t, dag, "zlib")
		assert.NotEqual(t, installed.Hash, zlib.Hash)
		assert.Equal(t, "1.3", zlib.Version().String())
	})

	t.Run("fresh variant matches installed configuration", func(t *testing.T) {
		dag, err := newWithDB(t).Concretize(context.Background(), parse(t, "zlib@1.3"), p)
		require.NoError(t, err)
		assert.False(t, nodeNamed(t, dag, "zlib").Variants["shared"].Bool())
	})

	t.Run("reuse disabled", func(t *testing.T) {
		fresh := p
		fresh.Reuse = false
		dag, err := newWithDB(t).Concretize(context.Background(), parse(t, "zlib"), fresh)
		require.NoError(t, err)
		assert.Equal(t, "1.3", nodeNamed(t, dag, "zlib").Version().String())
	})
}

func TestConcretize_UnsatisfiableCore(t *testing.T) {
	t.Run("mutually exclusive variant values", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		_, err := c.Concretize(context.Background(), parse(t, "hdf5@1.10:+mpi hdf5~mpi"), policy())

		core := coreOf(t, err)
		assert.Equal(t, []string{"requested: hdf5+mpi", "requested: hdf5~mpi"}, core)
	})

	t.Run("request against package rule", func(t *testing.T) {
		reg := registry(
			pkg("a", "1.0").dep("b@1:2", "", domain.DefaultDepKinds),
			pkg("b", "1.0", "2.0", "3.0"),
		)
		_, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "a %gcc ^b@3"), policy())

		core := coreOf(t, err)
		assert.Equal(t, []string{"requested: a ^b@3", "a@1.0: depends on b@1:2"}, core)
	})

	t.Run("conflict rule", func(t *testing.T) {
		reg := registry(pkg("zlib", "1.3").conflicts("%gcc", "", "needs clang"))
		_, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "zlib"), policy())

		core := coreOf(t, err)
		assert.Equal(t, []string{"zlib: conflicts %gcc (needs clang)"}, core)
	})

	t.Run("dependency constraint on unreachable package", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		_, err := c.Concretize(context.Background(), parse(t, "zlib ^cmake"), policy())

		core := coreOf(t, err)
		assert.Equal(t, []string{"requested: zlib ^cmake"}, core)
	})

	t.Run("no compiler", func(t *testing.T) {
		c := newConcretizer(t, hpcRegistry())
		_, err := c.Concretize(context.Background(), parse(t, "zlib %clang"), policy())

		core := coreOf(t, err)
		assert.Equal(t, []string{"requested: zlib %clang"}, core)
	})
}

func TestConcretize_Errors(t *testing.T) {
	c := newConcretizer(t, hpcRegistry())

	_, err := c.Concretize(context.Background(), nil, policy())
	require.ErrorIs(t, err, domain.ErrNoSpecsRequested)

	_, err = c.Concretize(context.Background(), parse(t, "nosuch"), policy())
	require.ErrorIs(t, err, domain.ErrUnknownPackage)

	_, err = c.Concretize(context.Background(), parse(t, "zlib+bogus"), policy())
	require.ErrorIs(t, err, domain.ErrUnknownVariant)

	_, err = c.Concretize(context.Background(), parse(t, "hdf5 api=v99"), policy())
	require.ErrorIs(t, err, domain.ErrInvalidVariantValue)

	_, err = c.Concretize(context.Background(), parse(t, "+mpi"), policy())
	require.ErrorIs(t, err, domain.ErrInvalidSpec)
}

func TestConcretize_DecisionBudget(t *testing.T) {
	reg := registry(
		pkg("a", "1.0", "2.0").dep("b@2", "@2", domain.DefaultDepKinds).dep("b@1", "@1", domain.DefaultDepKinds),
		pkg("b", "1.0", "2.0"),
	)
	p := policy()
	p.MaxDecisions = 1

	_, err := newConcretizer(t, reg).Concretize(context.Background(), parse(t, "a ^b@1"), p)
	require.ErrorIs(t, err, domain.ErrSearchBudgetExceeded)
}

func TestConcretize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newConcretizer(t, hpcRegistry()).Concretize(ctx, parse(t, "zlib"), policy())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := &domain.Config{
		Compilers:   []domain.Compiler{gcc12},
		Arch:        host,
		Concretizer: domain.DefaultConcretizerConfig(),
	}
	cfg.Concretizer.Providers = map[string][]string{"mpi": {"openmpi"}}

	p := concretizer.PolicyFromConfig(cfg)
	assert.True(t, p.Reuse)
	assert.True(t, p.OneToolchain)
	assert.Equal(t, domain.DefaultMaxDecisions, p.MaxDecisions)
	assert.Equal(t, host, p.DefaultArch)
	assert.Equal(t, []string{"openmpi"}, p.Providers["mpi"])
}
