package domain

import "time"

// RecordSchemaVersion is the schema version written into new records.
const RecordSchemaVersion = 1

// InstallStatus is the lifecycle state of a database record.
type InstallStatus string

const (
	// StatusInstalling marks a record whose build has begun but not finished.
	StatusInstalling InstallStatus = "installing"
	// StatusInstalled marks a completed, usable install.
	StatusInstalled InstallStatus = "installed"
	// StatusFailed marks an install whose build failed; it may be retried.
	StatusFailed InstallStatus = "failed"
)

// Valid reports whether s is a known status.
func (s InstallStatus) Valid() bool {
	switch s {
	case StatusInstalling, StatusInstalled, StatusFailed:
		return true
	default:
		return false
	}
}

// Failure describes why an install failed.
type Failure struct {
	Phase   Phase
	Message string
}

// Record is the database entry for one concrete spec.
type Record struct {
	Hash           string
	Spec           *Spec
	Prefix         string
	Status         InstallStatus
	Explicit       bool
	InstalledAt    time.Time
	Failure        *Failure
	InstallID      string
	ManifestDigest string
}

// Installed reports whether the record describes a usable install.
func (r *Record) Installed() bool {
	return r != nil && r.Status == StatusInstalled
}
