package builder

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/sprig/internal/core/domain"
)

// buildDir is where out-of-source builds happen.
func buildDir(req *domain.BuildRequest) string {
	return filepath.Join(req.StageDir, "build")
}

// environment assembles the environment for every command of a build:
// allow-listed host variables, toolchain and prefix variables, dependency
// search paths, then hook adjustments.
func (b *Builder) environment(req *domain.BuildRequest) []string {
	env := filterSystemEnv(os.Environ())

	env["PREFIX"] = req.Prefix
	env["SPRIG_STAGE"] = req.StageDir
	env["SPRIG_SOURCE_DIR"] = req.SourceDir()
	env["SPRIG_BUILD_DIR"] = buildDir(req)
	env["SPRIG_JOBS"] = strconv.Itoa(max(1, req.Jobs))
	env["SPRIG_SPEC"] = req.Spec.NodeString()
	env["SPRIG_CONFIGURE_ARGS"] = strings.Join(configureArgs(req), " ")

	for key, bin := range map[string]string{"CC": req.Compiler.CC, "CXX": req.Compiler.CXX, "FC": req.Compiler.FC} {
		if bin != "" {
			env[key] = bin
		}
	}

	deps := slices.Sorted(maps.Keys(req.DependencyPrefixes))
	var binDirs, prefixes, pkgConfig []string
	for _, name := range deps {
		prefix := req.DependencyPrefixes[name]
		env[rootVariable(name)] = prefix
		binDirs = append(binDirs, filepath.Join(prefix, "bin"))
		prefixes = append(prefixes, prefix)
		pkgConfig = append(pkgConfig,
			filepath.Join(prefix, "lib", "pkgconfig"),
			filepath.Join(prefix, "lib64", "pkgconfig"),
			filepath.Join(prefix, "share", "pkgconfig"),
		)
	}
	prependPath(env, "PATH", binDirs...)
	prependPath(env, "CMAKE_PREFIX_PATH", prefixes...)
	prependPath(env, "PKG_CONFIG_PATH", pkgConfig...)

	for _, e := range req.Spec.Dependencies {
		prefix, ok := req.DependencyPrefixes[e.Spec.Name]
		if !ok {
			continue
		}
		for _, hook := range b.hooks.forPackage(e.Spec.Name) {
			if setter, ok := hook.(DependentEnvironmentSetter); ok {
				setter.SetupDependentEnvironment(e.Spec, prefix, env)
			}
		}
	}
	for _, hook := range b.hooks.forPackage(req.Spec.Name) {
		if setter, ok := hook.(EnvironmentSetter); ok {
			setter.SetupEnvironment(req, env)
		}
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

// rootVariable names the variable holding a dependency prefix, e.g.
// HDF5_ROOT for hdf5 and PY_NUMPY_ROOT for py-numpy.
func rootVariable(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name)) + "_ROOT"
}

// configureArgs collects the arguments of every argument rule whose
// condition holds for the spec being built.
func configureArgs(req *domain.BuildRequest) []string {
	var out []string
	for _, rule := range req.Package.ConfigureArgs {
		if domain.Holds(rule.When, req.Spec) {
			out = append(out, rule.Args...)
		}
	}
	return out
}
