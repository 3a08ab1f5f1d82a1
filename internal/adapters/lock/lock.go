// Package lock implements cross-process install locks with flock(2).
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultRetryDelay is how often a busy lock is polled.
const DefaultRetryDelay = 25 * time.Millisecond

// Locker implements ports.Locker with one lock file per spec hash.
type Locker struct {
	dir        string
	owner      string
	retryDelay time.Duration
}

// New creates a Locker keeping its files in dir.
func New(dir string) (*Locker, error) {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreCreateFailed, err.Error()), "path", dir)
	}
	return &Locker{
		dir:        dir,
		owner:      uuid.NewString(),
		retryDelay: DefaultRetryDelay,
	}, nil
}

// Owner identifies this locker in owner files.
func (l *Locker) Owner() string {
	return l.owner
}

// Acquire blocks until the lock for hash is held or ctx is done.
func (l *Locker) Acquire(ctx context.Context, hash string) (ports.Lock, error) {
	path := filepath.Join(l.dir, hash+".lock")
	fl := flock.New(path, flock.SetPermissions(domain.FilePerm))

	ok, err := fl.TryLockContext(ctx, l.retryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", path)
	}
	if !ok {
		if errors.Is(err, context.Canceled) {
			return nil, zerr.Wrap(err, "lock acquisition cancelled")
		}
		timeout := zerr.With(zerr.Wrap(domain.ErrLockTimeout, "lock is held by another install"), "hash", hash)
		if holder := l.readOwner(hash); holder != "" {
			timeout = zerr.With(timeout, "holder", holder)
		}
		return nil, timeout
	}

	ownerPath := l.ownerPath(hash)
	info := fmt.Sprintf("pid=%d owner=%s", os.Getpid(), l.owner)
	if err := os.WriteFile(ownerPath, []byte(info), domain.FilePerm); err != nil {
		_ = fl.Unlock()
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", ownerPath)
	}

	return &fileLock{fl: fl, ownerPath: ownerPath}, nil
}

func (l *Locker) ownerPath(hash string) string {
	return filepath.Join(l.dir, hash+".owner")
}

func (l *Locker) readOwner(hash string) string {
	//nolint:gosec // path is built from the lock directory and a spec hash
	data, err := os.ReadFile(l.ownerPath(hash))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

type fileLock struct {
	fl        *flock.Flock
	ownerPath string
	once      sync.Once
	err       error
}

// Release removes the owner file and unlocks. Further calls return the first result.
func (l *fileLock) Release() error {
	l.once.Do(func() {
		_ = os.Remove(l.ownerPath)
		if err := l.fl.Unlock(); err != nil {
			l.err = zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", l.fl.Path())
		}
	})
	return l.err
}

// Factory implements ports.LockerFactory.
type Factory struct{}

// Open opens the lock directory under dir.
func (Factory) Open(dir string) (ports.Locker, error) {
	return New(dir)
}
