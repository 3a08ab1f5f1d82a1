package ports

import "go.trai.ch/sprig/internal/core/domain"

// ConfigLoader defines the interface for loading the sprig configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration for the given working directory and
	// resolves it into absolute paths. Missing config files yield defaults.
	Load(cwd string) (*domain.Config, error)
}
