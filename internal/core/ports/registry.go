// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/sprig/internal/core/domain"

// Registry provides package definitions by name.
//
//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks
type Registry interface {
	// Get returns the definition of the named package. Definitions are loaded
	// lazily on first access. Unknown names yield domain.ErrUnknownPackage.
	Get(name string) (*domain.Package, error)

	// AllNames lists every package name across all repositories, sorted.
	AllNames() ([]string, error)
}

// RegistryFactory opens a registry over package repositories, searched in order.
type RegistryFactory interface {
	Open(repos []string) (Registry, error)
}
