package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sprig/internal/adapters/fs"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

func newManifester() *fs.Manifester {
	return fs.NewManifester(fs.NewWalker(), fs.NewHasher())
}

// populate creates a small install prefix.
func populate(t *testing.T, prefix string) {
	t.Helper()
	files := map[string]string{
		"bin/tool":            "#!/bin/sh\necho tool\n",
		"lib/libtool.so.1":    "ELF",
		"include/tool.h":      "int tool(void);\n",
		"share/doc/README.md": "docs\n",
	}
	for rel, body := range files {
		path := filepath.Join(prefix, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644)) //nolint:gosec // installed files are world readable
	}
	require.NoError(t, os.Symlink("libtool.so.1", filepath.Join(prefix, "lib", "libtool.so")))
	require.NoError(t, os.MkdirAll(domain.MetadataDir(prefix), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(domain.MetadataDir(prefix), domain.BuildLogFileName), []byte("log"), 0o600))
}

func TestManifester_WriteAndVerify(t *testing.T) {
	prefix := t.TempDir()
	populate(t, prefix)
	m := newManifester()

	digest, err := m.Write(context.Background(), prefix)
	require.NoError(t, err)
	assert.Len(t, digest, 16)
	assert.FileExists(t, filepath.Join(domain.MetadataDir(prefix), domain.ManifestFileName))

	require.NoError(t, m.Verify(context.Background(), prefix, digest))
	require.NoError(t, m.Verify(context.Background(), prefix, ""))

	manifest, err := m.Read(prefix)
	require.NoError(t, err)
	paths := make([]string, 0, len(manifest.Files))
	for _, f := range manifest.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"bin/tool",
		"include/tool.h",
		"lib/libtool.so",
		"lib/libtool.so.1",
		"share/doc/README.md",
	}, paths)
	assert.Equal(t, "libtool.so.1", manifest.Files[2].Link)
	assert.Equal(t, int64(3), manifest.Files[3].Size)
}

func TestManifester_DigestIsContentAddressed(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	populate(t, a)
	populate(t, b)
	m := newManifester()

	da, err := m.Write(context.Background(), a)
	require.NoError(t, err)
	db, err := m.Write(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	require.NoError(t, os.WriteFile(filepath.Join(b, "bin", "tool"), []byte("changed"), 0o644)) //nolint:gosec // installed files are world readable
	dc, err := m.Write(context.Background(), b)
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestManifester_DetectsChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, prefix string)
		listed string
	}{
		{
			name: "modified",
			mutate: func(t *testing.T, prefix string) {
				t.Helper()
				require.NoError(t, os.WriteFile(filepath.Join(prefix, "include", "tool.h"), []byte("tampered"), 0o644)) //nolint:gosec // installed files are world readable
			},
			listed: "~include/tool.h",
		},
		{
			name: "removed",
			mutate: func(t *testing.T, prefix string) {
				t.Helper()
				require.NoError(t, os.Remove(filepath.Join(prefix, "bin", "tool")))
			},
			listed: "-bin/tool",
		},
		{
			name: "added",
			mutate: func(t *testing.T, prefix string) {
				t.Helper()
				require.NoError(t, os.WriteFile(filepath.Join(prefix, "bin", "extra"), []byte("x"), 0o644)) //nolint:gosec // installed files are world readable
			},
			listed: "+bin/extra",
		},
		{
			name: "mode",
			mutate: func(t *testing.T, prefix string) {
				t.Helper()
				require.NoError(t, os.Chmod(filepath.Join(prefix, "bin", "tool"), 0o755)) //nolint:gosec // executable bit is the change under test
			},
			listed: "~bin/tool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := t.TempDir()
			populate(t, prefix)
			m := newManifester()
			digest, err := m.Write(context.Background(), prefix)
			require.NoError(t, err)

			tt.mutate(t, prefix)

			err = m.Verify(context.Background(), prefix, digest)
			require.ErrorIs(t, err, domain.ErrManifestMismatch)
			var zErr *zerr.Error
			require.ErrorAs(t, err, &zErr)
			assert.Contains(t, zErr.Metadata()["files"], tt.listed)
		})
	}
}

func TestManifester_IgnoresMetadataDir(t *testing.T) {
	prefix := t.TempDir()
	populate(t, prefix)
	m := newManifester()
	digest, err := m.Write(context.Background(), prefix)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(domain.MetadataDir(prefix), "extra"), []byte("x"), 0o600))
	require.NoError(t, m.Verify(context.Background(), prefix, digest))
}

func TestManifester_DigestMismatch(t *testing.T) {
	prefix := t.TempDir()
	populate(t, prefix)
	m := newManifester()
	_, err := m.Write(context.Background(), prefix)
	require.NoError(t, err)

	err = m.Verify(context.Background(), prefix, "0000000000000000")
	require.ErrorIs(t, err, domain.ErrManifestMismatch)
}

func TestManifester_MissingManifest(t *testing.T) {
	prefix := t.TempDir()
	populate(t, prefix)

	err := newManifester().Verify(context.Background(), prefix, "")
	require.ErrorIs(t, err, domain.ErrManifestMismatch)
}

func TestManifester_Cancelled(t *testing.T) {
	prefix := t.TempDir()
	populate(t, prefix)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newManifester().Write(ctx, prefix)
	require.ErrorIs(t, err, context.Canceled)
}
