package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Manifester = (*Manifester)(nil)

// maxListedDifferences caps the paths attached to a mismatch error.
const maxListedDifferences = 10

// FileEntry is one installed file in a manifest.
type FileEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
	Mode uint32 `json:"mode"`
	Size int64  `json:"size,omitempty"`
	Link string `json:"link,omitempty"`
}

// Manifest lists every file of an install prefix outside its metadata
// directory, sorted by path.
type Manifest struct {
	Digest string      `json:"digest"`
	Files  []FileEntry `json:"files"`
}

// Manifester implements ports.Manifester.
type Manifester struct {
	walker  *Walker
	hasher  *Hasher
	workers int
}

// NewManifester creates a Manifester hashing files on all CPUs.
func NewManifester(walker *Walker, hasher *Hasher) *Manifester {
	return &Manifester{walker: walker, hasher: hasher, workers: runtime.NumCPU()}
}

// Write hashes prefix and stores manifest.json in its metadata directory.
func (m *Manifester) Write(ctx context.Context, prefix string) (string, error) {
	manifest, err := m.build(ctx, prefix)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", zerr.Wrap(err, "failed to marshal manifest")
	}

	meta := domain.MetadataDir(prefix)
	if err := os.MkdirAll(meta, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create metadata directory"), "path", meta)
	}
	path := filepath.Join(meta, domain.ManifestFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, domain.FilePerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write manifest"), "path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write manifest"), "path", path)
	}
	return manifest.Digest, nil
}

// Verify re-hashes prefix and compares it with the stored manifest. When
// digest is non-empty the stored manifest must also carry it.
func (m *Manifester) Verify(ctx context.Context, prefix, digest string) error {
	stored, err := m.Read(prefix)
	if err != nil {
		return err
	}
	if digest != "" && stored.Digest != digest {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrManifestMismatch, "manifest digest differs from the database"),
			"expected", digest), "actual", stored.Digest)
	}

	current, err := m.build(ctx, prefix)
	if err != nil {
		return err
	}
	if current.Digest == stored.Digest {
		return nil
	}
	changed := diff(stored.Files, current.Files)
	listed := changed
	if len(listed) > maxListedDifferences {
		listed = listed[:maxListedDifferences]
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrManifestMismatch, "installed files changed"),
		"prefix", prefix), "files", strings.Join(listed, ", "))
}

// Read loads the manifest stored in prefix.
func (m *Manifester) Read(prefix string) (*Manifest, error) {
	path := filepath.Join(domain.MetadataDir(prefix), domain.ManifestFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is inside an install prefix
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestMismatch, "manifest missing"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "path", path)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestMismatch, "manifest is not valid JSON"), "path", path)
	}
	return &manifest, nil
}

// build walks prefix and hashes its files concurrently.
func (m *Manifester) build(ctx context.Context, prefix string) (*Manifest, error) {
	var paths []string
	for rel, err := range m.walker.WalkFiles(prefix, domain.MetadataDirName) {
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrFileHashFailed, err.Error()), "prefix", prefix)
		}
		paths = append(paths, rel)
	}
	slices.Sort(paths)

	entries := make([]FileEntry, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.workers))
	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := m.hasher.Entry(prefix, rel)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Manifest{Digest: m.hasher.Digest(entries), Files: entries}, nil
}

// diff returns the paths added, removed or modified between two sorted
// entry lists.
func diff(before, after []FileEntry) []string {
	var out []string
	i, j := 0, 0
	for i < len(before) || j < len(after) {
		switch {
		case j == len(after) || (i < len(before) && before[i].Path < after[j].Path):
			out = append(out, "-"+before[i].Path)
			i++
		case i == len(before) || after[j].Path < before[i].Path:
			out = append(out, "+"+after[j].Path)
			j++
		default:
			if before[i].Hash != after[j].Hash || before[i].Mode != after[j].Mode {
				out = append(out, "~"+before[i].Path)
			}
			i++
			j++
		}
	}
	return out
}
