package ports

import (
	"context"

	"go.trai.ch/sprig/internal/core/domain"
)

// Manifester records and checks the contents of install prefixes.
//
//go:generate mockgen -source=artifacts.go -destination=mocks/mock_artifacts.go -package=mocks
type Manifester interface {
	// Write hashes every file under prefix, stores the manifest inside the
	// prefix and returns its digest.
	Write(ctx context.Context, prefix string) (string, error)

	// Verify re-hashes prefix and compares it with the stored manifest and
	// digest. Differences yield domain.ErrManifestMismatch.
	Verify(ctx context.Context, prefix, digest string) error
}

// BuildCache stores finished installs for reuse on other machines.
type BuildCache interface {
	// Enabled reports whether pushes go anywhere.
	Enabled() bool

	// Push uploads the install prefix of spec.
	Push(ctx context.Context, spec *domain.Spec, prefix string) error
}

// BuildCacheFactory opens the build cache described by cfg. A disabled
// config yields a cache whose Enabled reports false.
type BuildCacheFactory interface {
	Open(ctx context.Context, cfg domain.BuildCacheConfig) (BuildCache, error)
}
