package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidSpec is returned when a spec expression cannot be parsed.
	ErrInvalidSpec = zerr.New("invalid spec")

	// ErrInvalidVersion is returned when a version or version range cannot be parsed.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrUnknownPackage is returned when a package name is not present in any repository.
	ErrUnknownPackage = zerr.New("unknown package")

	// ErrUnknownVariant is returned when a spec sets a variant the package does not declare.
	ErrUnknownVariant = zerr.New("unknown variant")

	// ErrInvalidVariantValue is returned when a variant value is not among the declared values.
	ErrInvalidVariantValue = zerr.New("invalid variant value")

	// ErrCycleDetected is returned when a dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrNotConcrete is returned when an operation requires a concrete spec.
	ErrNotConcrete = zerr.New("spec is not concrete")

	// ErrHashMismatch is returned when a serialized spec does not hash to its recorded hash.
	ErrHashMismatch = zerr.New("spec hash mismatch")

	// ErrMissingDependency is returned when a serialized DAG references a node it does not contain.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrUnsatisfiableConstraints is returned when no concrete DAG satisfies a request.
	ErrUnsatisfiableConstraints = zerr.New("unsatisfiable constraints")

	// ErrSearchBudgetExceeded is returned when the concretizer gives up after too many decisions.
	ErrSearchBudgetExceeded = zerr.New("concretizer decision budget exceeded")

	// ErrAmbiguousRegistry is returned when package definitions are malformed or contradictory.
	ErrAmbiguousRegistry = zerr.New("ambiguous package registry")

	// ErrLockTimeout is returned when an install lock cannot be acquired in time.
	ErrLockTimeout = zerr.New("timed out waiting for install lock")

	// ErrBuildFailure is returned when a build phase fails for a package.
	ErrBuildFailure = zerr.New("build failed")

	// ErrBlockedByDependencyFailure is returned for nodes skipped because a dependency did not install.
	ErrBlockedByDependencyFailure = zerr.New("blocked by dependency failure")

	// ErrCorruptRecord is returned when a database record cannot be read or is inconsistent.
	ErrCorruptRecord = zerr.New("corrupt database record")

	// ErrNotInstalled is returned when an operation targets a spec that has no installed record.
	ErrNotInstalled = zerr.New("spec is not installed")

	// ErrHasDependents is returned when uninstalling a spec that installed specs still depend on.
	ErrHasDependents = zerr.New("spec has installed dependents")

	// ErrNoMatch is returned when a query spec matches no installed spec.
	ErrNoMatch = zerr.New("no installed spec matches")

	// ErrAmbiguousMatch is returned when a query spec matches more than one installed spec.
	ErrAmbiguousMatch = zerr.New("spec matches multiple installed specs")

	// ErrNoSpecsRequested is returned when a command needs at least one spec and none was given.
	ErrNoSpecsRequested = zerr.New("no specs requested")

	// ErrStoreCreateFailed is returned when the database directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create database directory")

	// ErrStoreReadFailed is returned when a record cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read install record")

	// ErrStoreWriteFailed is returned when a record cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write install record")

	// ErrStoreMarshalFailed is returned when a record cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal install record")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value is out of range.
	ErrInvalidConfig = zerr.New("invalid config value")

	// ErrFetchFailed is returned when a source archive cannot be downloaded.
	ErrFetchFailed = zerr.New("failed to fetch source")

	// ErrChecksumMismatch is returned when a downloaded archive does not match its checksum.
	ErrChecksumMismatch = zerr.New("checksum mismatch")

	// ErrUpstreamDown is returned when a source host is failing and its circuit is open.
	ErrUpstreamDown = zerr.New("upstream host unavailable")

	// ErrNoSource is returned when a package version declares neither a URL nor a git repository.
	ErrNoSource = zerr.New("no source for version")

	// ErrPatchFailed is returned when a patch does not apply.
	ErrPatchFailed = zerr.New("failed to apply patch")

	// ErrCommandFailed is returned when a build command exits non-zero.
	ErrCommandFailed = zerr.New("command failed")

	// ErrInstallIncomplete is returned when a finished build left nothing usable in its prefix.
	ErrInstallIncomplete = zerr.New("install prefix is incomplete")

	// ErrManifestMismatch is returned when an install prefix differs from its recorded manifest.
	ErrManifestMismatch = zerr.New("install prefix does not match manifest")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrCachePushFailed is returned when an install cannot be uploaded to the build cache.
	ErrCachePushFailed = zerr.New("failed to push to build cache")

	// ErrTaskFailed is reported to renderers for a failed install step.
	ErrTaskFailed = zerr.New("install step failed")

	// ErrInstallFailed is returned when at least one node of an install did not succeed.
	ErrInstallFailed = zerr.New("install failed")
)
