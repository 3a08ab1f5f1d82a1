package database

import (
	"encoding/json"
	"time"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/zerr"
)

// recordFile is the on-disk form of a domain.Record.
type recordFile struct {
	SchemaVersion  int                 `json:"schema_version"`
	Hash           string              `json:"hash"`
	Spec           domain.SpecDocument `json:"spec"`
	Prefix         string              `json:"prefix"`
	Status         string              `json:"status"`
	Explicit       bool                `json:"explicit"`
	InstalledAt    *time.Time          `json:"installed_at,omitempty"`
	Failure        *failureFile        `json:"failure,omitempty"`
	InstallID      string              `json:"install_id,omitempty"`
	ManifestDigest string              `json:"manifest_digest,omitempty"`
}

type failureFile struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

func encodeRecord(r *domain.Record) ([]byte, error) {
	doc, err := domain.NewSpecDocument(r.Spec)
	if err != nil {
		return nil, err
	}
	f := recordFile{
		SchemaVersion:  domain.RecordSchemaVersion,
		Hash:           r.Hash,
		Spec:           doc,
		Prefix:         r.Prefix,
		Status:         string(r.Status),
		Explicit:       r.Explicit,
		InstallID:      r.InstallID,
		ManifestDigest: r.ManifestDigest,
	}
	if !r.InstalledAt.IsZero() {
		t := r.InstalledAt.UTC()
		f.InstalledAt = &t
	}
	if r.Failure != nil {
		f.Failure = &failureFile{Phase: string(r.Failure.Phase), Message: r.Failure.Message}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(domain.ErrStoreMarshalFailed, err.Error())
	}
	return data, nil
}

// decodeRecord parses and checks one record file. Any inconsistency is
// reported as domain.ErrCorruptRecord.
func decodeRecord(data []byte, wantHash string) (*domain.Record, error) {
	corrupt := func(reason string) error {
		return zerr.With(zerr.Wrap(domain.ErrCorruptRecord, reason), "hash", wantHash)
	}

	var f recordFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, corrupt(err.Error())
	}
	if f.Hash != wantHash {
		return nil, corrupt("record hash does not match its file name")
	}
	status := domain.InstallStatus(f.Status)
	if !status.Valid() {
		return nil, corrupt("unknown status " + f.Status)
	}
	spec, err := f.Spec.Spec()
	if err != nil {
		return nil, corrupt(err.Error())
	}
	if spec.Hash != f.Hash {
		return nil, corrupt("spec root does not match record hash")
	}

	r := &domain.Record{
		Hash:           f.Hash,
		Spec:           spec,
		Prefix:         f.Prefix,
		Status:         status,
		Explicit:       f.Explicit,
		InstallID:      f.InstallID,
		ManifestDigest: f.ManifestDigest,
	}
	if f.InstalledAt != nil {
		r.InstalledAt = *f.InstalledAt
	}
	if f.Failure != nil {
		r.Failure = &domain.Failure{Phase: domain.Phase(f.Failure.Phase), Message: f.Failure.Message}
	}
	return r, nil
}
