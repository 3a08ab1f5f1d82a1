// Package buildcache pushes finished install prefixes to S3-compatible
// object storage so other machines can reuse them.
package buildcache

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	archiveExt      = ".tar.zst"
	specExt         = ".spec.json"
	archiveMimeType = "application/zstd"
	specMimeType    = "application/json"
)

// ObjectStore is the subset of an object storage client the cache needs.
type ObjectStore interface {
	PutFile(ctx context.Context, key, path, contentType string) error
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

var (
	_ ports.BuildCache = (*Cache)(nil)
	_ ports.BuildCache = disabled{}
)

// Cache uploads prefix archives and their concrete specs to a store.
type Cache struct {
	store  ObjectStore
	prefix string
}

// NewCache creates a Cache writing below keyPrefix in store.
func NewCache(store ObjectStore, keyPrefix string) *Cache {
	return &Cache{store: store, prefix: keyPrefix}
}

// Enabled reports true.
func (c *Cache) Enabled() bool { return true }

// Key returns the object key of spec's archive, without extension. It
// mirrors the install tree layout.
func (c *Cache) Key(spec *domain.Spec) string {
	return path.Clean(filepath.ToSlash(domain.InstallPrefix(c.prefix, spec)))
}

// Push archives prefix with zstd and uploads it next to the spec document.
func (c *Cache) Push(ctx context.Context, spec *domain.Spec, prefix string) error {
	key := c.Key(spec)

	tmp, err := os.CreateTemp("", "sprig-buildcache-*"+archiveExt)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "spec", spec.NodeString())
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := writeArchive(tmp, prefix); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "spec", spec.NodeString()), "prefix", prefix)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "spec", spec.NodeString())
	}

	doc, err := domain.EncodeSpec(spec)
	if err != nil {
		return err
	}
	if err := c.store.PutFile(ctx, key+archiveExt, tmp.Name(), archiveMimeType); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "key", key+archiveExt)
	}
	if err := c.store.Put(ctx, key+specExt, doc, specMimeType); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCachePushFailed, err.Error()), "key", key+specExt)
	}
	return nil
}

// writeArchive writes every entry below root into a zstd compressed tar
// stream with paths relative to root.
func writeArchive(w io.Writer, root string) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(p) //nolint:gosec // p is below the install prefix
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck // read-only file
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = zw.Close()
		return walkErr
	}
	if err := tw.Close(); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// disabled is the cache used when no endpoint is configured.
type disabled struct{}

func (disabled) Enabled() bool { return false }

func (disabled) Push(context.Context, *domain.Spec, string) error { return nil }
