package ports

import "context"

// Locker hands out exclusive per-hash locks shared across processes.
//
//go:generate mockgen -source=locker.go -destination=mocks/mock_locker.go -package=mocks
type Locker interface {
	// Acquire blocks until the lock for hash is held or ctx is done. Giving
	// up yields domain.ErrLockTimeout.
	Acquire(ctx context.Context, hash string) (Lock, error)
}

// Lock is a held install lock.
type Lock interface {
	// Release frees the lock. It is safe to call more than once.
	Release() error
}

// LockerFactory opens the lock directory under dir.
type LockerFactory interface {
	Open(dir string) (Locker, error)
}
