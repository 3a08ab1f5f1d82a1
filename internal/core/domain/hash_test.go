package domain_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

var testArch = domain.Arch{Platform: "linux", OS: "ubuntu22.04", Target: "x86_64"}

// node builds an unsealed concrete-looking spec with default edges.
func node(name, version string, deps ...*domain.Spec) *domain.Spec {
	s := &domain.Spec{
		Name:     name,
		Versions: domain.ExactVersion(domain.MustParseVersion(version)),
		Variants: map[string]domain.VariantValue{},
		Compiler: domain.CompilerSpec{Name: "gcc", Versions: domain.ExactVersion(domain.MustParseVersion("11.2.0"))},
		Arch:     testArch,
	}
	for _, d := range deps {
		s.Dependencies = append(s.Dependencies, domain.DependencyEdge{Spec: d, Kinds: domain.DefaultDepKinds})
	}
	return s
}

func sealed(t *testing.T, s *domain.Spec) *domain.Spec {
	t.Helper()
	require.NoError(t, domain.Seal(s))
	return s
}

func TestComputeHash_Stable(t *testing.T) {
	build := func(reverse bool) *domain.Spec {
		zlib := node("zlib", "1.2.13")
		xz := node("xz", "5.4.1")
		deps := []*domain.Spec{zlib, xz}
		if reverse {
			deps = []*domain.Spec{xz, zlib}
		}
		root := node("libxml2", "2.10.3", deps...)
		root.Variants["python"] = domain.BoolVariant(false)
		return root
	}

	a := sealed(t, build(false))
	b := sealed(t, build(true))

	assert.Equal(t, a.Hash, b.Hash)
	assert.Len(t, a.Hash, domain.HashLength)
	assert.Regexp(t, regexp.MustCompile(`^[a-z2-7]{32}$`), a.Hash)
	assert.Equal(t, a.Hash[:7], a.ShortHash())
	assert.Equal(t, a.Hash, domain.ComputeHash(a))
}

func TestComputeHash_SensitiveToConfiguration(t *testing.T) {
	base := sealed(t, node("zlib", "1.2.13"))

	variant := node("zlib", "1.2.13")
	variant.Variants["shared"] = domain.BoolVariant(true)
	sealed(t, variant)

	version := sealed(t, node("zlib", "1.2.12"))

	kinds := node("libxml2", "2.10.3", node("zlib", "1.2.13"))
	run := node("libxml2", "2.10.3", node("zlib", "1.2.13"))
	run.Dependencies[0].Kinds = domain.DepRun
	sealed(t, kinds)
	sealed(t, run)

	assert.NotEqual(t, base.Hash, variant.Hash)
	assert.NotEqual(t, base.Hash, version.Hash)
	assert.NotEqual(t, kinds.Hash, run.Hash)
}

func TestComputeHash_DependencyChangePropagates(t *testing.T) {
	a := sealed(t, node("hdf5", "1.12.2", node("zlib", "1.2.13")))
	b := sealed(t, node("hdf5", "1.12.2", node("zlib", "1.2.12")))
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestSeal_Cycle(t *testing.T) {
	a := node("a", "1.0")
	b := node("b", "1.0", a)
	a.Dependencies = append(a.Dependencies, domain.DependencyEdge{Spec: b, Kinds: domain.DepBuild})

	err := domain.Seal(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCycleDetected))

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	assert.Equal(t, "a -> b -> a", zErr.Metadata()["cycle"])
}

func TestVerifyHash(t *testing.T) {
	s := sealed(t, node("zlib", "1.2.13"))
	require.NoError(t, domain.VerifyHash(s))

	s.Variants["shared"] = domain.BoolVariant(true)
	err := domain.VerifyHash(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrHashMismatch))
}
