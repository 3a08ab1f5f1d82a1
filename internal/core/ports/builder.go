package ports

import (
	"context"
	"io"

	"go.trai.ch/sprig/internal/core/domain"
)

// Builder runs the build phases of a single package.
//
//go:generate mockgen -source=builder.go -destination=mocks/mock_builder.go -package=mocks
type Builder interface {
	// Phases lists the phases to run for req, in order.
	Phases(req *domain.BuildRequest) []domain.Phase

	// RunPhase executes one phase, streaming its output to out.
	RunPhase(ctx context.Context, phase domain.Phase, req *domain.BuildRequest, out io.Writer) error
}

// Fetcher obtains package sources.
type Fetcher interface {
	// Fetch downloads or checks out the source for version v of pkg, verifying
	// its checksum, and returns where the source was placed.
	Fetch(ctx context.Context, pkg *domain.Package, v domain.Version, stageDir string) (domain.FetchResult, error)
}

// FetcherFactory creates a fetcher using the mirrors and source cache of cfg.
type FetcherFactory interface {
	New(cfg *domain.Config) Fetcher
}
