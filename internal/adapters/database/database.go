// Package database implements the install database as one JSON file per
// record, replaced atomically on every change.
package database

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

const recordExt = ".json"

// Database implements ports.Database under a directory.
type Database struct {
	dir    string
	logger ports.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// New opens the database rooted at dir, creating its record directory.
func New(dir string, logger ports.Logger) (*Database, error) {
	if err := os.MkdirAll(domain.RecordsDir(dir), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreCreateFailed, err.Error()), "path", dir)
	}
	return &Database{dir: dir, logger: logger, now: time.Now}, nil
}

func (d *Database) recordPath(hash string) string {
	return filepath.Join(domain.RecordsDir(d.dir), hash+recordExt)
}

// Lookup returns the record for hash, or nil when it is absent or corrupt.
func (d *Database) Lookup(hash string) (*domain.Record, error) {
	r, err := d.read(hash)
	if errors.Is(err, domain.ErrCorruptRecord) {
		d.logger.Warn("ignoring corrupt record " + d.recordPath(hash) + ": " + err.Error())
		return nil, nil
	}
	return r, err
}

func (d *Database) read(hash string) (*domain.Record, error) {
	path := d.recordPath(hash)
	//nolint:gosec // path is built from the database directory and a spec hash
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreReadFailed, err.Error()), "path", path)
	}
	r, err := decodeRecord(data, hash)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return r, nil
}

// Query returns the readable records accepted by match, ordered by name,
// version and hash. Corrupt records are skipped.
func (d *Database) Query(match func(*domain.Record) bool) ([]*domain.Record, error) {
	entries, err := os.ReadDir(domain.RecordsDir(d.dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreReadFailed, err.Error()), "path", d.dir)
	}

	var records []*domain.Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		r, err := d.Lookup(strings.TrimSuffix(name, recordExt))
		if err != nil {
			return nil, err
		}
		if r == nil || (match != nil && !match(r)) {
			continue
		}
		records = append(records, r)
	}

	slices.SortFunc(records, func(a, b *domain.Record) int {
		if c := strings.Compare(a.Spec.Name, b.Spec.Name); c != 0 {
			return c
		}
		if c := a.Spec.Version().Compare(b.Spec.Version()); c != 0 {
			return c
		}
		return strings.Compare(a.Hash, b.Hash)
	})
	return records, nil
}

// BeginInstall writes an installing record for spec unless a record that is
// installing or installed already exists, in which case that one is returned.
func (d *Database) BeginInstall(spec *domain.Spec, prefix string, explicit bool, installID string) (*domain.Record, error) {
	if !spec.Concrete() {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotConcrete, "cannot record an abstract spec"), "spec", spec.String())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.Lookup(spec.Hash)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != domain.StatusFailed {
		return existing, nil
	}

	r := &domain.Record{
		Hash:      spec.Hash,
		Spec:      spec,
		Prefix:    prefix,
		Status:    domain.StatusInstalling,
		Explicit:  explicit,
		InstallID: installID,
	}
	if err := d.write(r); err != nil {
		return nil, err
	}
	return r, nil
}

// MarkInstalled moves the record for hash to installed.
func (d *Database) MarkInstalled(hash, manifestDigest string) error {
	return d.update(hash, func(r *domain.Record) {
		r.Status = domain.StatusInstalled
		r.InstalledAt = d.now()
		r.Failure = nil
		r.ManifestDigest = manifestDigest
	})
}

// MarkFailed moves the record for hash to failed.
func (d *Database) MarkFailed(hash string, failure domain.Failure) error {
	return d.update(hash, func(r *domain.Record) {
		r.Status = domain.StatusFailed
		r.Failure = &failure
	})
}

// SetExplicit changes the explicit flag of the record for hash.
func (d *Database) SetExplicit(hash string, explicit bool) error {
	return d.update(hash, func(r *domain.Record) {
		r.Explicit = explicit
	})
}

// Remove deletes the record for hash.
func (d *Database) Remove(hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.recordPath(hash)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", path)
	}
	return nil
}

func (d *Database) update(hash string, mutate func(*domain.Record)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.read(hash)
	if err != nil {
		return err
	}
	if r == nil {
		return zerr.With(zerr.Wrap(domain.ErrNotInstalled, "no record to update"), "hash", hash)
	}
	mutate(r)
	return d.write(r)
}

// write replaces the record file atomically: temp file, fsync, rename.
func (d *Database) write(r *domain.Record) error {
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}

	dir := domain.RecordsDir(d.dir)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreCreateFailed, err.Error()), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+r.Hash+"-*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", dir)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", tmpName)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", tmpName)
	}

	path := d.recordPath(r.Hash)
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", path)
	}
	committed = true
	return nil
}

// Factory implements ports.DatabaseFactory.
type Factory struct {
	Logger ports.Logger
}

// Open opens the database under dir.
func (f *Factory) Open(dir string) (ports.Database, error) {
	return New(dir, f.Logger)
}
