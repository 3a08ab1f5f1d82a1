package builder

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

// stageSource places the fetched source in req.SourceDir. Archives whose
// content sits in a single top-level directory are unwrapped.
func (b *Builder) stageSource(ctx context.Context, req *domain.BuildRequest) error {
	dest := req.SourceDir()
	if err := os.RemoveAll(dest); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", dest)
	}
	if req.Source.Path == "" {
		return os.MkdirAll(dest, domain.DirPerm)
	}
	if req.Source.IsDir {
		if err := os.CopyFS(dest, os.DirFS(req.Source.Path)); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", req.Source.Path)
		}
		return nil
	}

	tmp := filepath.Join(req.StageDir, "unpack")
	if err := os.RemoveAll(tmp); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", tmp)
	}
	if err := os.MkdirAll(tmp, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", tmp)
	}
	if err := b.expand(ctx, req.Source.Path, tmp); err != nil {
		return zerr.With(err, "archive", req.Source.Path)
	}

	root := tmp
	if entries, err := os.ReadDir(tmp); err == nil && len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(tmp, entries[0].Name())
	}
	if err := os.Rename(root, dest); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, err.Error()), "path", dest)
	}
	return os.RemoveAll(tmp)
}

// expand unpacks archive into dir. Tarballs compressed with gzip, bzip2 or
// zstd are read natively; anything else is handed to the system tar.
func (b *Builder) expand(ctx context.Context, archive, dir string) error {
	//nolint:gosec // archive path comes from the fetcher
	f, err := os.Open(archive)
	if err != nil {
		return zerr.Wrap(domain.ErrFetchFailed, err.Error())
	}
	defer func() { _ = f.Close() }()

	var r io.Reader
	switch name := filepath.Base(archive); {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return zerr.Wrap(domain.ErrFetchFailed, err.Error())
		}
		defer func() { _ = gz.Close() }()
		r = gz
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		r = bzip2.NewReader(f)
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return zerr.Wrap(domain.ErrFetchFailed, err.Error())
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(name, ".tar"):
		r = f
	default:
		return b.systemTar(ctx, archive, dir)
	}
	return untar(r, dir)
}

func (b *Builder) systemTar(ctx context.Context, archive, dir string) error {
	//nolint:gosec // archive path comes from the fetcher
	out, err := exec.CommandContext(ctx, b.tarBinary, "-xf", archive, "-C", dir).CombinedOutput()
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrFetchFailed, "tar failed"), "output", strings.TrimSpace(string(out)))
	}
	return nil
}

// untar extracts a tar stream below dir. Entries that would land outside
// dir are rejected.
func untar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.Wrap(domain.ErrFetchFailed, err.Error())
		}
		name := filepath.Clean(hdr.Name)
		if !filepath.IsLocal(name) {
			return zerr.With(zerr.Wrap(domain.ErrFetchFailed, "archive entry escapes the stage"), "entry", hdr.Name)
		}
		target := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return zerr.Wrap(domain.ErrFetchFailed, err.Error())
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
				return zerr.Wrap(domain.ErrFetchFailed, err.Error())
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return zerr.Wrap(domain.ErrFetchFailed, err.Error())
			}
		case tar.TypeLink:
			link := filepath.Clean(hdr.Linkname)
			if !filepath.IsLocal(link) {
				return zerr.With(zerr.Wrap(domain.ErrFetchFailed, "archive link escapes the stage"), "entry", hdr.Name)
			}
			if err := os.Link(filepath.Join(dir, link), target); err != nil {
				return zerr.Wrap(domain.ErrFetchFailed, err.Error())
			}
		}
	}
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.Wrap(domain.ErrFetchFailed, err.Error())
	}
	//nolint:gosec // target is checked to stay below the stage
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return zerr.Wrap(domain.ErrFetchFailed, err.Error())
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return zerr.Wrap(domain.ErrFetchFailed, err.Error())
	}
	if err := out.Close(); err != nil {
		return zerr.Wrap(domain.ErrFetchFailed, err.Error())
	}
	return nil
}
