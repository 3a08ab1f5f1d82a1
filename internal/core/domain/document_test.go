package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/core/domain"
)

func TestEncodeDecodeSpec(t *testing.T) {
	mpich := node("mpich", "4.1")
	mpich.Variants["pmi"] = domain.SingleVariant("pmix")
	root := node("hdf5", "1.12.2", node("zlib", "1.2.13"), mpich)
	root.Variants["mpi"] = domain.BoolVariant(true)
	root.Variants["langs"] = domain.MultiVariant("fortran", "c")
	root.Dependencies[1].Virtuals = []string{"mpi"}
	sealed(t, root)

	data, err := domain.EncodeSpec(root)
	require.NoError(t, err)

	decoded, err := domain.DecodeSpec(data)
	require.NoError(t, err)

	assert.Equal(t, root.Hash, decoded.Hash)
	assert.Equal(t, root.NodeString(), decoded.NodeString())
	edge, ok := decoded.Edge("mpi")
	require.True(t, ok)
	assert.Equal(t, "mpich", edge.Spec.Name)
	assert.Equal(t, domain.SingleVariant("pmix"), edge.Spec.Variants["pmi"])
	assert.Equal(t, domain.MultiVariant("c", "fortran"), decoded.Variants["langs"])
}

func TestDecodeSpec_DetectsTampering(t *testing.T) {
	root := sealed(t, node("hdf5", "1.12.2", node("zlib", "1.2.13")))
	data, err := domain.EncodeSpec(root)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	nodes := doc["nodes"].([]any)
	nodes[0].(map[string]any)["version"] = "1.2.12"
	tampered, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = domain.DecodeSpec(tampered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrHashMismatch))
}

func TestDecodeSpec_IgnoresUnknownFields(t *testing.T) {
	root := sealed(t, node("zlib", "1.2.13"))
	data, err := domain.EncodeSpec(root)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["generator"] = "future-sprig"
	doc["nodes"].([]any)[0].(map[string]any)["build_hash"] = "xyz"
	extended, err := json.Marshal(doc)
	require.NoError(t, err)

	decoded, err := domain.DecodeSpec(extended)
	require.NoError(t, err)
	assert.Equal(t, root.Hash, decoded.Hash)
}

func TestEncodeSpec_RequiresConcrete(t *testing.T) {
	_, err := domain.EncodeSpec(node("zlib", "1.2.13"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotConcrete))
}
