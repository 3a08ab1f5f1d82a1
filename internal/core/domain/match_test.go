package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

type mapSource map[string]*domain.Package

func (m mapSource) Get(name string) (*domain.Package, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPackage, "not in test source"), "package", name)
}

func hdf5Package() *domain.Package {
	return &domain.Package{
		Name: "hdf5",
		Versions: []domain.VersionDecl{
			{Version: domain.MustParseVersion("1.10.7")},
			{Version: domain.MustParseVersion("1.12.2")},
		},
		Variants: []domain.VariantDef{
			{Name: "mpi", Default: domain.BoolVariant(true)},
			{Name: "cxx", Default: domain.BoolVariant(false)},
			{Name: "build_type", Default: domain.SingleVariant("Release"), Values: []string{"Debug", "Release"}},
			{Name: "api", Default: domain.MultiVariant("default"), Values: []string{"default", "v110", "v112"}, Multi: true},
		},
	}
}

func TestSatisfies(t *testing.T) {
	mpich := node("mpich", "4.1")
	root := node("hdf5", "1.12.2", node("zlib", "1.2.13"), mpich)
	root.Variants["mpi"] = domain.BoolVariant(true)
	root.Variants["api"] = domain.MultiVariant("default", "v112")
	root.Dependencies[1].Virtuals = []string{"mpi"}
	sealed(t, root)

	tests := []struct {
		constraint string
		want       bool
	}{
		{"hdf5", true},
		{"hdf5@1.12", true},
		{"hdf5@1.10", false},
		{"hdf5+mpi", true},
		{"hdf5~mpi", false},
		{"hdf5 api=v112", true},
		{"hdf5 api=v110", false},
		{"hdf5 %gcc@11:", true},
		{"hdf5 %clang", false},
		{"hdf5 target=x86_64", true},
		{"hdf5 os=centos7", false},
		{"hdf5 ^zlib@1.2", true},
		{"hdf5 ^zlib@1.3", false},
		{"hdf5 ^mpi", true},
		{"hdf5 ^mpich@4", true},
		{"hdf5 ^openmpi", false},
		{"+mpi", true},
		{"zlib", false},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			c, err := domain.ParseSpec(tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.Satisfies(root, c))
		})
	}
}

func TestSatisfies_AbstractSubset(t *testing.T) {
	narrow := domain.MustParseSpec("hdf5@1.10.2:1.10.5+mpi")
	broad := domain.MustParseSpec("hdf5@1.10")
	assert.True(t, domain.Satisfies(narrow, broad))
	assert.False(t, domain.Satisfies(broad, narrow))
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"hdf5+mpi", "hdf5~mpi", false},
		{"hdf5@1.10:", "hdf5@:1.12", true},
		{"hdf5@1.10", "hdf5@1.12", false},
		{"hdf5 %gcc", "hdf5 %clang", false},
		{"hdf5 ^zlib@1.2", "hdf5 ^zlib@1.3", false},
		{"hdf5 ^zlib@1.2", "hdf5 ^xz", true},
		{"hdf5 api=v110", "hdf5 api=v112", true},
		{"hdf5 build_type=Debug", "hdf5 build_type=Release", false},
		{"hdf5", "zlib", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a := domain.MustParseSpec(tt.a)
			b := domain.MustParseSpec(tt.b)
			if tt.a == "hdf5 api=v110" {
				a.Variants["api"] = domain.MultiVariant("v110")
				b.Variants["api"] = domain.MultiVariant("v112")
			}
			assert.Equal(t, tt.want, domain.Intersects(a, b))
		})
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	src := mapSource{"hdf5": hdf5Package()}

	s, err := domain.Normalize(domain.MustParseSpec("hdf5~mpi api=v110"), src)
	require.NoError(t, err)

	assert.False(t, s.Variants["mpi"].Bool())
	assert.False(t, s.Variants["cxx"].Bool())
	assert.Equal(t, domain.SingleVariant("Release"), s.Variants["build_type"])
	assert.Equal(t, domain.MultiVariant("v110"), s.Variants["api"])
	assert.True(t, s.Versions.IsAny())
}

func TestCanonicalize_CoercesAndValidates(t *testing.T) {
	src := mapSource{"hdf5": hdf5Package()}

	s, err := domain.Canonicalize(domain.MustParseSpec("hdf5 mpi=false ^mpi"), src)
	require.NoError(t, err)
	assert.Equal(t, domain.BoolVariant(false), s.Variants["mpi"])
	assert.Len(t, s.Variants, 1)

	_, err = domain.Canonicalize(domain.MustParseSpec("hdf5+fortran"), src)
	assert.True(t, errors.Is(err, domain.ErrUnknownVariant))

	_, err = domain.Canonicalize(domain.MustParseSpec("hdf5 build_type=Fast"), src)
	assert.True(t, errors.Is(err, domain.ErrInvalidVariantValue))

	_, err = domain.Canonicalize(domain.MustParseSpec("hdf5+build_type"), src)
	assert.True(t, errors.Is(err, domain.ErrInvalidVariantValue))

	_, err = domain.Canonicalize(domain.MustParseSpec("netcdf"), src)
	assert.True(t, errors.Is(err, domain.ErrUnknownPackage))
}

func TestHolds(t *testing.T) {
	n := sealed(t, node("hdf5", "1.12.2"))
	n.Variants["mpi"] = domain.BoolVariant(true)

	assert.True(t, domain.Holds(nil, n))
	assert.True(t, domain.Holds(domain.MustParseSpec("+mpi"), n))
	assert.True(t, domain.Holds(domain.MustParseSpec("@1.12:"), n))
	assert.False(t, domain.Holds(domain.MustParseSpec("@:1.11"), n))
	assert.False(t, domain.Holds(domain.MustParseSpec("%clang"), n))
}

func TestHolds_DependencyConditions(t *testing.T) {
	cond, err := domain.ParseCondition("@:1.10.0^hdf5@1.10:")
	require.NoError(t, err)

	bare := sealed(t, node("adios", "1.9.0"))
	assert.False(t, domain.Holds(cond, bare), "no hdf5 below the node")

	withOld := sealed(t, node("adios", "1.9.0", node("hdf5", "1.8.21")))
	assert.False(t, domain.Holds(cond, withOld))

	withNew := sealed(t, node("adios", "1.9.0", node("hdf5", "1.10.7")))
	assert.True(t, domain.Holds(cond, withNew))

	newer := sealed(t, node("adios", "1.13.1", node("hdf5", "1.10.7")))
	assert.False(t, domain.Holds(cond, newer))
}
