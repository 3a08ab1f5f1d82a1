package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

// Hasher computes content hashes of installed files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(domain.ErrFileHashFailed, err.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(domain.ErrFileHashFailed, err.Error()), "path", path)
	}

	return hasher.Sum64(), nil
}

// Entry computes the manifest entry of the file at rel below root. Symlinks
// are recorded by target rather than followed.
func (h *Hasher) Entry(root, rel string) (FileEntry, error) {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(path)
	if err != nil {
		return FileEntry{}, zerr.With(zerr.Wrap(domain.ErrFileHashFailed, err.Error()), "path", path)
	}

	entry := FileEntry{Path: rel, Mode: uint32(info.Mode().Perm())}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return FileEntry{}, zerr.With(zerr.Wrap(domain.ErrFileHashFailed, err.Error()), "path", path)
		}
		entry.Link = target
		entry.Hash = fmt.Sprintf("%016x", xxhash.Sum64String(target))
	case info.Mode().IsRegular():
		sum, err := h.ComputeFileHash(path)
		if err != nil {
			return FileEntry{}, err
		}
		entry.Size = info.Size()
		entry.Hash = fmt.Sprintf("%016x", sum)
	default:
		entry.Hash = fmt.Sprintf("%016x", xxhash.Sum64String(info.Mode().Type().String()))
	}
	return entry, nil
}

// Digest hashes a sorted list of entries into a single manifest digest.
func (h *Hasher) Digest(entries []FileEntry) string {
	hasher := xxhash.New()
	for _, e := range entries {
		_, _ = hasher.WriteString(e.Path)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(e.Hash)
		_, _ = hasher.Write([]byte{0})
		_, _ = fmt.Fprintf(hasher, "%o", e.Mode)
		_, _ = hasher.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", hasher.Sum64())
}
