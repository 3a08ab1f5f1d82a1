package app_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/app"
	"go.trai.ch/sprig/internal/core/domain"
)

func concreteNode(name, version string, deps ...*domain.Spec) *domain.Spec {
	s := &domain.Spec{
		Name:     name,
		Versions: domain.ExactVersion(domain.MustParseVersion(version)),
		Variants: map[string]domain.VariantValue{},
		Compiler: domain.CompilerSpec{Name: "gcc", Versions: domain.ExactVersion(domain.MustParseVersion("11.2.0"))},
		Arch:     host,
	}
	for _, d := range deps {
		s.Dependencies = append(s.Dependencies, domain.DependencyEdge{Spec: d, Kinds: domain.DefaultDepKinds})
	}
	return s
}

// normalizeHashes replaces short hashes with the padded node name so the
// golden files do not depend on the hash function.
func normalizeHashes(out string, dag *domain.DAG) string {
	for _, n := range dag.TopologicalOrder() {
		out = strings.ReplaceAll(out, n.ShortHash(), fmt.Sprintf("%-7.7s", n.Name))
	}
	return out
}

func TestWriteTree(t *testing.T) {
	zlib := concreteNode("zlib", "1.2.13")
	left := concreteNode("left", "1.0", zlib)
	right := concreteNode("right", "2.0", zlib)
	root := concreteNode("app", "3.0", right, left)
	cmake := concreteNode("cmake", "3.27.0")
	require.NoError(t, domain.Seal(root))
	require.NoError(t, domain.Seal(cmake))

	dag, err := domain.NewDAG(root, cmake)
	require.NoError(t, err)

	installed := map[string]bool{root.Hash: true, zlib.Hash: true}
	var buf bytes.Buffer
	require.NoError(t, app.WriteTree(&buf, dag, func(hash string) bool { return installed[hash] }))

	g := goldie.New(t)
	g.Assert(t, "tree_diamond", []byte(normalizeHashes(buf.String(), dag)))
}

func TestWriteTree_SharedNodeRepeatsPerRoot(t *testing.T) {
	zlib := concreteNode("zlib", "1.2.13")
	hdf5 := concreteNode("hdf5", "1.12.2", zlib)
	libxml2 := concreteNode("libxml2", "2.10.3", zlib)
	require.NoError(t, domain.Seal(hdf5))
	require.NoError(t, domain.Seal(libxml2))

	dag, err := domain.NewDAG(hdf5, libxml2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, app.WriteTree(&buf, dag, func(string) bool { return false }))

	g := goldie.New(t)
	g.Assert(t, "tree_shared", []byte(normalizeHashes(buf.String(), dag)))
}
