package domain

import (
	"runtime"
	"time"
)

// Config is the resolved configuration threaded through concretization and
// installation. All paths are absolute.
type Config struct {
	// Path is the config file the values were loaded from, empty for defaults.
	Path        string
	InstallTree string
	Database    string
	Stage       string
	SourceCache string
	Repos       []string
	Compilers   []Compiler
	Arch        Arch
	Concretizer ConcretizerConfig
	Install     InstallConfig
	Mirrors     []string
	BuildCache  BuildCacheConfig
	// Specs are environment roots installed when no spec is given.
	Specs []string
}

// ConcretizerConfig tunes the concretizer.
type ConcretizerConfig struct {
	Reuse        bool
	OneToolchain bool
	MaxDecisions int
	// Providers orders candidate providers per virtual name.
	Providers map[string][]string
}

// InstallConfig tunes the installation orchestrator.
type InstallConfig struct {
	Jobs        int
	BuildJobs   int
	LockTimeout time.Duration
	LockRetries int
	KeepStage   bool
}

// BuildCacheConfig points at an S3 compatible bucket for finished installs.
type BuildCacheConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
	UseSSL    bool
}

// Enabled reports whether a build cache is configured.
func (c BuildCacheConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Default tuning values.
const (
	DefaultMaxDecisions = 10000
	DefaultLockTimeout  = 3 * time.Second
	DefaultLockRetries  = UnlimitedLockRetries
)

// UnlimitedLockRetries makes an install wait on a held lock for as long as
// its holder keeps it, until the request is cancelled.
const UnlimitedLockRetries = -1

// DefaultConcretizerConfig returns the concretizer defaults.
func DefaultConcretizerConfig() ConcretizerConfig {
	return ConcretizerConfig{
		Reuse:        true,
		OneToolchain: true,
		MaxDecisions: DefaultMaxDecisions,
	}
}

// DefaultInstallConfig returns the install defaults.
func DefaultInstallConfig() InstallConfig {
	return InstallConfig{
		Jobs:        max(1, runtime.NumCPU()/2),
		BuildJobs:   runtime.NumCPU(),
		LockTimeout: DefaultLockTimeout,
		LockRetries: DefaultLockRetries,
	}
}

// HostArch returns a best guess of the host arch.
func HostArch() Arch {
	target := runtime.GOARCH
	switch target {
	case "amd64":
		target = "x86_64"
	case "arm64":
		target = "aarch64"
	}
	return Arch{Platform: runtime.GOOS, OS: "unknown", Target: target}
}
