package builder

import (
	"context"
	"io"
	"path/filepath"
	"sync"

	"go.trai.ch/sprig/internal/core/domain"
)

// EnvironmentSetter adjusts the build environment of its own package.
type EnvironmentSetter interface {
	SetupEnvironment(req *domain.BuildRequest, env map[string]string)
}

// DependentEnvironmentSetter adjusts the build environment of packages that
// depend on its package. prefix is where the dependency is installed.
type DependentEnvironmentSetter interface {
	SetupDependentEnvironment(dep *domain.Spec, prefix string, env map[string]string)
}

// Validator checks a finished install before it is recorded.
type Validator interface {
	Validate(ctx context.Context, req *domain.BuildRequest) error
}

// PostInstaller runs after the install phase commands.
type PostInstaller interface {
	PostInstall(ctx context.Context, req *domain.BuildRequest, out io.Writer) error
}

// Hooks holds the per-package hooks, keyed by package name. A hook may
// implement any subset of the hook interfaces.
type Hooks struct {
	mu     sync.RWMutex
	byName map[string][]any
}

// NewHooks returns an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{byName: make(map[string][]any)}
}

// DefaultHooks returns the hooks sprig ships with.
func DefaultHooks() *Hooks {
	h := NewHooks()
	for _, name := range []string{"openmpi", "mpich", "mvapich"} {
		h.Register(name, mpiWrappers{})
	}
	return h
}

// Register adds hook for the package named name.
func (h *Hooks) Register(name string, hook any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byName[name] = append(h.byName[name], hook)
}

func (h *Hooks) forPackage(name string) []any {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byName[name]
}

// mpiWrappers points dependents at the MPI compiler wrappers of a provider.
type mpiWrappers struct{}

func (mpiWrappers) SetupDependentEnvironment(_ *domain.Spec, prefix string, env map[string]string) {
	bin := filepath.Join(prefix, "bin")
	env["MPICC"] = filepath.Join(bin, "mpicc")
	env["MPICXX"] = filepath.Join(bin, "mpicxx")
	env["MPIF90"] = filepath.Join(bin, "mpif90")
}
