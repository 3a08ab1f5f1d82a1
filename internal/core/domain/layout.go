package domain

import (
	"path/filepath"
)

const (
	// SprigDirName is the name of the per-user sprig directory under $HOME.
	SprigDirName = ".sprig"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "sprig.yaml"

	// UserConfigFileName is the name of the configuration file inside SprigDirName.
	UserConfigFileName = "config.yaml"

	// RecordsDirName holds one JSON file per database record.
	RecordsDirName = "records"

	// LocksDirName holds one lock file per spec hash.
	LocksDirName = "locks"

	// MetadataDirName is created inside every install prefix.
	MetadataDirName = ".sprig"

	// SpecFileName stores the concrete spec inside MetadataDirName.
	SpecFileName = "spec.json"

	// BuildLogFileName stores the build output inside MetadataDirName.
	BuildLogFileName = "build.log"

	// ManifestFileName stores the prefix manifest inside MetadataDirName.
	ManifestFileName = "manifest.json"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// InstallPrefix returns where a concrete spec is installed:
// <root>/<platform>-<os>-<target>/<compiler>-<version>/<name>-<version>-<hash>.
func InstallPrefix(root string, s *Spec) string {
	compiler := s.Compiler.Name
	if v, ok := s.Compiler.Versions.Concrete(); ok {
		compiler += "-" + v.String()
	}
	return filepath.Join(
		root,
		s.Arch.String(),
		compiler,
		s.Name+"-"+s.Version().String()+"-"+s.Hash,
	)
}

// MetadataDir returns the metadata directory inside an install prefix.
func MetadataDir(prefix string) string {
	return filepath.Join(prefix, MetadataDirName)
}

// RecordsDir returns the record directory of a database.
func RecordsDir(db string) string {
	return filepath.Join(db, RecordsDirName)
}

// LocksDir returns the lock directory of a database.
func LocksDir(db string) string {
	return filepath.Join(db, LocksDirName)
}
