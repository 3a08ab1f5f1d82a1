package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/core/domain"
)

func TestParseSpec_Full(t *testing.T) {
	s, err := domain.ParseSpec("hdf5@1.10:+mpi~cxx %gcc@9.3.0 arch=linux-ubuntu22.04-x86_64 ^openmpi@4.1")
	require.NoError(t, err)

	assert.Equal(t, "hdf5", s.Name)
	assert.Equal(t, "1.10:", s.Versions.String())
	assert.True(t, s.Variants["mpi"].Bool())
	assert.False(t, s.Variants["cxx"].Bool())
	assert.Equal(t, "gcc", s.Compiler.Name)
	assert.Equal(t, "9.3.0", s.Compiler.Versions.String())
	assert.Equal(t, domain.Arch{Platform: "linux", OS: "ubuntu22.04", Target: "x86_64"}, s.Arch)

	require.Len(t, s.Dependencies, 1)
	dep := s.Dependencies[0].Spec
	assert.Equal(t, "openmpi", dep.Name)
	assert.Equal(t, "4.1", dep.Versions.String())
	assert.Equal(t, domain.DepKind(0), s.Dependencies[0].Kinds)
}

func TestParseSpec_RoundTrip(t *testing.T) {
	inputs := []string{
		"hdf5@1.10:~cxx+mpi %gcc@9.3.0 arch=linux-ubuntu22.04-x86_64 ^openmpi@4.1",
		"zlib@=1.2.11~shared",
		"cmake@3.20:3.24,3.26 build_type=Release",
		"py-numpy langs=c,fortran target=x86_64",
		"mpileaks ^callpath+debug ^mpich@3.0.4:",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			s, err := domain.ParseSpec(in)
			require.NoError(t, err)
			assert.Equal(t, in, s.String())

			again, err := domain.ParseSpec(s.String())
			require.NoError(t, err)
			assert.Equal(t, s.String(), again.String())
		})
	}
}

func TestParseSpecs_Multiple(t *testing.T) {
	specs, err := domain.ParseSpecs("zlib  hdf5+mpi ^zlib@1.2 libxml2 -python")
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, "zlib", specs[0].Name)
	assert.Equal(t, "hdf5", specs[1].Name)
	require.Len(t, specs[1].Dependencies, 1)
	assert.Equal(t, "zlib", specs[1].Dependencies[0].Spec.Name)
	assert.Equal(t, "libxml2", specs[2].Name)
	assert.False(t, specs[2].Variants["python"].Bool())
}

func TestParseSpecs_Variants(t *testing.T) {
	s, err := domain.ParseSpec("hdf5 build_type=Release langs=fortran,c")
	require.NoError(t, err)
	assert.Equal(t, domain.SingleVariant("Release"), s.Variants["build_type"])
	assert.Equal(t, domain.MultiVariant("c", "fortran"), s.Variants["langs"])
}

func TestParseSpecs_Anonymous(t *testing.T) {
	s, err := domain.ParseSpec("+mpi %gcc")
	require.NoError(t, err)
	assert.Empty(t, s.Name)
	assert.True(t, s.Variants["mpi"].Bool())
	assert.Equal(t, "gcc", s.Compiler.Name)
}

func TestParseSpecs_Errors(t *testing.T) {
	inputs := []string{
		"hdf5+mpi+mpi",
		"hdf5+mpi ~mpi",
		"hdf5@1@2",
		"^zlib",
		"hdf5 %gcc %clang",
		"hdf5@",
		"hdf5 ^zlib ^zlib",
		"hdf5 foo=",
		"hdf5$",
		"hdf5 arch=linux",
		"hdf5 target=x86_64 target=aarch64",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := domain.ParseSpecs(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidSpec), "got %v", err)
		})
	}
}

func TestParseSpec_RequiresOne(t *testing.T) {
	_, err := domain.ParseSpec("zlib hdf5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidSpec))
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		deps     []string
		versions bool
	}{
		{in: "^python@:2", deps: []string{"python"}},
		{in: "@:1.10.0^hdf5@1.10:", deps: []string{"hdf5"}, versions: true},
		{in: "+mpi", versions: false},
		{in: "adios ^hdf5+mpi", name: "adios", deps: []string{"hdf5"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, err := domain.ParseCondition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, s.Name)
			assert.Equal(t, tt.versions, !s.Versions.IsAny())
			var deps []string
			for _, e := range s.Dependencies {
				deps = append(deps, e.Spec.Name)
			}
			assert.Equal(t, tt.deps, deps)
		})
	}

	_, err := domain.ParseCondition("zlib hdf5")
	assert.True(t, errors.Is(err, domain.ErrInvalidSpec))

	_, err = domain.ParseSpec("^python@:2")
	assert.True(t, errors.Is(err, domain.ErrInvalidSpec), "requests still need a root")

	s, err := domain.ParseCondition("@:1.10.0^hdf5@1.10:")
	require.NoError(t, err)
	assert.Equal(t, "@:1.10.0 ^hdf5@1.10:", s.String())
}
