package buildcache_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/adapters/buildcache"
	"go.trai.ch/sprig/internal/core/domain"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) PutFile(ctx context.Context, key, path, contentType string) error {
	data, err := os.ReadFile(path) //nolint:gosec // test fixture
	if err != nil {
		return err
	}
	return m.Put(ctx, key, data, contentType)
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func zlibSpec(t *testing.T) *domain.Spec {
	t.Helper()
	s := &domain.Spec{
		Name:     "zlib",
		Versions: domain.ExactVersion(domain.MustParseVersion("1.3")),
		Variants: map[string]domain.VariantValue{},
		Compiler: domain.CompilerSpec{Name: "gcc", Versions: domain.ExactVersion(domain.MustParseVersion("12.2.0"))},
		Arch:     domain.Arch{Platform: "linux", OS: "ubuntu22.04", Target: "x86_64"},
	}
	require.NoError(t, domain.Seal(s))
	return s
}

func installedPrefix(t *testing.T) string {
	t.Helper()
	prefix := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "lib"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "lib", "libz.so.1.3"), []byte("ELF"), 0o600))
	require.NoError(t, os.Symlink("libz.so.1.3", filepath.Join(prefix, "lib", "libz.so")))
	require.NoError(t, os.MkdirAll(domain.MetadataDir(prefix), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(domain.MetadataDir(prefix), domain.SpecFileName), []byte("{}"), 0o600))
	return prefix
}

func archiveEntries(t *testing.T, data []byte) map[string]*tar.Header {
	t.Helper()
	zr, err := zstd.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()
	tr := tar.NewReader(zr)
	out := map[string]*tar.Header{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out[hdr.Name] = hdr
	}
}

func TestCache_Push(t *testing.T) {
	store := newMemStore()
	cache := buildcache.NewCache(store, "sprig")
	spec := zlibSpec(t)

	require.True(t, cache.Enabled())
	require.NoError(t, cache.Push(context.Background(), spec, installedPrefix(t)))

	key := "sprig/linux-ubuntu22.04-x86_64/gcc-12.2.0/zlib-1.3-" + spec.Hash
	assert.Equal(t, key, cache.Key(spec))
	require.Contains(t, store.objects, key+".tar.zst")
	require.Contains(t, store.objects, key+".spec.json")
	assert.Equal(t, "application/zstd", store.types[key+".tar.zst"])

	entries := archiveEntries(t, store.objects[key+".tar.zst"])
	assert.Contains(t, entries, "lib/")
	assert.Contains(t, entries, "lib/libz.so.1.3")
	assert.Contains(t, entries, ".sprig/spec.json")
	require.Contains(t, entries, "lib/libz.so")
	assert.Equal(t, "libz.so.1.3", entries["lib/libz.so"].Linkname)

	decoded, err := domain.DecodeSpec(store.objects[key+".spec.json"])
	require.NoError(t, err)
	assert.Equal(t, spec.Hash, decoded.Hash)
}

func TestCache_PushFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("access denied")
	cache := buildcache.NewCache(store, "")

	err := cache.Push(context.Background(), zlibSpec(t), installedPrefix(t))
	require.ErrorIs(t, err, domain.ErrCachePushFailed)
}

func TestCache_MissingPrefix(t *testing.T) {
	cache := buildcache.NewCache(newMemStore(), "")
	err := cache.Push(context.Background(), zlibSpec(t), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, domain.ErrCachePushFailed)
}

func TestFactory_DisabledWithoutEndpoint(t *testing.T) {
	cache, err := buildcache.Factory{}.Open(context.Background(), domain.BuildCacheConfig{Bucket: "only-bucket"})
	require.NoError(t, err)
	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Push(context.Background(), zlibSpec(t), t.TempDir()))
}
