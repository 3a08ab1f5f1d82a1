// Package config provides the configuration loader for sprig.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/sprig/internal/core/domain"
	"go.trai.ch/sprig/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that points at an explicit config file.
const EnvConfig = "SPRIG_CONFIG"

// EnvHome names the environment variable that overrides the sprig home directory.
const EnvHome = "SPRIG_HOME"

// Loader implements ports.ConfigLoader using YAML files.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

// Load discovers the configuration for cwd and resolves it. The first hit
// wins: $SPRIG_CONFIG, sprig.yaml in cwd or a parent, the user config in the
// sprig home. With no file, built-in defaults are returned.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	vars, err := placeholders()
	if err != nil {
		return nil, err
	}

	path, err := l.findConfiguration(cwd, vars["sprig"])
	if err != nil {
		return nil, err
	}

	var file Configfile
	baseDir := cwd
	if path != "" {
		if err := l.readConfigfile(path, &file); err != nil {
			return nil, err
		}
		baseDir = filepath.Dir(path)
	}

	cfg, err := resolve(&file, baseDir, vars)
	if err != nil {
		return nil, zerr.With(err, "config", path)
	}
	cfg.Path = path
	return cfg, nil
}

func (l *Loader) findConfiguration(cwd, home string) (string, error) {
	if explicit := os.Getenv(EnvConfig); explicit != "" {
		if _, err := l.FS.Stat(explicit); err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", explicit)
		}
		return explicit, nil
	}

	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := l.FS.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	userConfig := filepath.Join(home, domain.UserConfigFileName)
	if _, err := l.FS.Stat(userConfig); err == nil {
		return userConfig, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.Logger.Warn("ignoring unreadable user config " + userConfig + ": " + err.Error())
	}

	return "", nil
}

func (l *Loader) readConfigfile(path string, out *Configfile) error {
	data, err := l.FS.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", path)
	}
	return nil
}

// placeholders returns the values substituted for $sprig, $home, $user and $tempdir.
func placeholders() (map[string]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, zerr.Wrap(domain.ErrInvalidConfig, "cannot determine home directory: "+err.Error())
	}

	sprigHome := os.Getenv(EnvHome)
	if sprigHome == "" {
		sprigHome = filepath.Join(home, domain.SprigDirName)
	}

	username := os.Getenv("USER")
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}

	return map[string]string{
		"sprig":   sprigHome,
		"home":    home,
		"user":    username,
		"tempdir": os.TempDir(),
	}, nil
}

// expandPath substitutes placeholders and environment variables, expands a
// leading ~ and makes the result absolute against baseDir.
func expandPath(p, baseDir string, vars map[string]string) string {
	if p == "" {
		return ""
	}
	p = os.Expand(p, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
	if p == "~" {
		p = vars["home"]
	} else if strings.HasPrefix(p, "~/") {
		p = filepath.Join(vars["home"], p[2:])
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func resolve(file *Configfile, baseDir string, vars map[string]string) (*domain.Config, error) {
	cfg := &domain.Config{
		InstallTree: expandPath(orDefault(file.InstallTree, "$sprig/opt"), baseDir, vars),
		Database:    expandPath(orDefault(file.Database, "$sprig/db"), baseDir, vars),
		Stage:       expandPath(orDefault(file.Stage, "$tempdir/$user/sprig-stage"), baseDir, vars),
		SourceCache: expandPath(orDefault(file.SourceCache, "$sprig/cache/sources"), baseDir, vars),
		Concretizer: domain.DefaultConcretizerConfig(),
		Install:     domain.DefaultInstallConfig(),
		Specs:       file.Specs,
	}

	repos := file.Repos
	if len(repos) == 0 {
		repos = []string{"$sprig/repo"}
	}
	for _, r := range repos {
		cfg.Repos = append(cfg.Repos, expandPath(r, baseDir, vars))
	}

	for _, m := range file.Mirrors {
		if strings.Contains(m, "://") {
			cfg.Mirrors = append(cfg.Mirrors, strings.TrimSuffix(m, "/"))
			continue
		}
		cfg.Mirrors = append(cfg.Mirrors, "file://"+expandPath(m, baseDir, vars))
	}

	compilers, err := resolveCompilers(file.Compilers)
	if err != nil {
		return nil, err
	}
	cfg.Compilers = compilers

	cfg.Arch = domain.HostArch()
	if file.Arch != "" {
		arch, err := domain.ParseArch(file.Arch)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, err.Error()), "field", "arch")
		}
		cfg.Arch = arch
	}

	if err := resolveConcretizer(file.Concretizer, &cfg.Concretizer); err != nil {
		return nil, err
	}
	if err := resolveInstall(file.Install, &cfg.Install); err != nil {
		return nil, err
	}

	if bc := file.BuildCache; bc != nil {
		cfg.BuildCache = domain.BuildCacheConfig{
			Endpoint:  bc.Endpoint,
			Bucket:    bc.Bucket,
			AccessKey: os.ExpandEnv(bc.AccessKey),
			SecretKey: os.ExpandEnv(bc.SecretKey),
			Prefix:    strings.Trim(bc.Prefix, "/"),
			UseSSL:    bc.UseSSL,
		}
	}

	return cfg, nil
}

func resolveCompilers(dtos []CompilerDTO) ([]domain.Compiler, error) {
	compilers := make([]domain.Compiler, 0, len(dtos))
	seen := make(map[string]bool)
	for i, dto := range dtos {
		if dto.Name == "" || dto.Version == "" {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "compiler needs a name and a version"), "index", i)
		}
		v, err := domain.ParseVersion(dto.Version)
		if err != nil {
			return nil, zerr.With(err, "compiler", dto.Name)
		}
		key := dto.Name + "@" + v.String()
		if seen[key] {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "duplicate compiler"), "compiler", key)
		}
		seen[key] = true

		cc, cxx, fc := defaultDrivers(dto.Name)
		compilers = append(compilers, domain.Compiler{
			Name:    dto.Name,
			Version: v,
			CC:      orDefault(dto.CC, cc),
			CXX:     orDefault(dto.CXX, cxx),
			FC:      orDefault(dto.FC, fc),
		})
	}
	return compilers, nil
}

func defaultDrivers(name string) (cc, cxx, fc string) {
	switch name {
	case "gcc":
		return "gcc", "g++", "gfortran"
	case "clang":
		return "clang", "clang++", "flang"
	case "intel":
		return "icc", "icpc", "ifort"
	default:
		return name, name, name
	}
}

func resolveConcretizer(dto *ConcretizerDTO, out *domain.ConcretizerConfig) error {
	if dto == nil {
		return nil
	}
	if dto.Reuse != nil {
		out.Reuse = *dto.Reuse
	}
	if dto.OneToolchain != nil {
		out.OneToolchain = *dto.OneToolchain
	}
	switch {
	case dto.MaxDecisions < 0:
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "max_decisions must not be negative"), "field", "concretizer.max_decisions")
	case dto.MaxDecisions > 0:
		out.MaxDecisions = dto.MaxDecisions
	}
	out.Providers = dto.Providers
	return nil
}

func resolveInstall(dto *InstallDTO, out *domain.InstallConfig) error {
	if dto == nil {
		return nil
	}
	if dto.Jobs < 0 || dto.BuildJobs < 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "job counts must not be negative"), "field", "install.jobs")
	}
	if dto.Jobs > 0 {
		out.Jobs = dto.Jobs
	}
	if dto.BuildJobs > 0 {
		out.BuildJobs = dto.BuildJobs
	}
	if dto.LockTimeout != "" {
		d, err := time.ParseDuration(dto.LockTimeout)
		if err != nil || d <= 0 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "lock_timeout must be a positive duration"), "value", dto.LockTimeout)
		}
		out.LockTimeout = d
	}
	if dto.LockRetries != nil {
		if *dto.LockRetries < domain.UnlimitedLockRetries {
			return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "lock_retries must be -1 (wait until interrupted) or more"), "field", "install.lock_retries")
		}
		out.LockRetries = *dto.LockRetries
	}
	out.KeepStage = dto.KeepStage
	return nil
}
