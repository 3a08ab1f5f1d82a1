package ports

import "go.trai.ch/sprig/internal/core/domain"

// Database is the persistent record of installed specs, keyed by hash.
//
//go:generate mockgen -source=database.go -destination=mocks/mock_database.go -package=mocks
type Database interface {
	// Lookup returns the record for hash. It returns nil, nil when no usable
	// record exists; corrupt records are reported as absent.
	Lookup(hash string) (*domain.Record, error)

	// Query returns every readable record accepted by match, ordered by
	// name, version and hash. A nil match accepts all records.
	Query(match func(*domain.Record) bool) ([]*domain.Record, error)

	// BeginInstall creates an installing record for spec. An existing
	// installing or installed record is returned unchanged.
	BeginInstall(spec *domain.Spec, prefix string, explicit bool, installID string) (*domain.Record, error)

	// MarkInstalled moves a record to the installed state.
	MarkInstalled(hash, manifestDigest string) error

	// MarkFailed moves a record to the failed state.
	MarkFailed(hash string, failure domain.Failure) error

	// SetExplicit records whether the spec was requested by a user.
	SetExplicit(hash string, explicit bool) error

	// Remove deletes the record for hash. Removing an absent record is not an error.
	Remove(hash string) error
}

// DatabaseFactory opens the database stored under dir.
type DatabaseFactory interface {
	Open(dir string) (Database, error)
}
