package config

// Configfile represents the structure of sprig.yaml and the user config.
type Configfile struct {
	InstallTree string          `yaml:"install_tree"`
	Database    string          `yaml:"database"`
	Stage       string          `yaml:"stage"`
	SourceCache string          `yaml:"source_cache"`
	Repos       []string        `yaml:"repos"`
	Compilers   []CompilerDTO   `yaml:"compilers"`
	Arch        string          `yaml:"arch"`
	Concretizer *ConcretizerDTO `yaml:"concretizer"`
	Install     *InstallDTO     `yaml:"install"`
	Mirrors     []string        `yaml:"mirrors"`
	BuildCache  *BuildCacheDTO  `yaml:"buildcache"`
	Specs       []string        `yaml:"specs"`
}

// CompilerDTO describes one available compiler.
type CompilerDTO struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	CC      string `yaml:"cc"`
	CXX     string `yaml:"cxx"`
	FC      string `yaml:"fc"`
}

// ConcretizerDTO tunes the concretizer. Pointers distinguish unset from false.
type ConcretizerDTO struct {
	Reuse        *bool               `yaml:"reuse"`
	OneToolchain *bool               `yaml:"one_toolchain"`
	MaxDecisions int                 `yaml:"max_decisions"`
	Providers    map[string][]string `yaml:"providers"`
}

// InstallDTO tunes the installer.
type InstallDTO struct {
	Jobs        int    `yaml:"jobs"`
	BuildJobs   int    `yaml:"build_jobs"`
	LockTimeout string `yaml:"lock_timeout"`
	LockRetries *int   `yaml:"lock_retries"`
	KeepStage   bool   `yaml:"keep_stage"`
}

// BuildCacheDTO points at an S3 compatible bucket.
type BuildCacheDTO struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}
