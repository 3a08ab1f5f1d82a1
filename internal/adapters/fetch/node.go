package fetch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sprig/internal/adapters/logger"
	"go.trai.ch/sprig/internal/core/ports"
)

// NodeID is the unique identifier for the fetcher factory Graft node.
const NodeID graft.ID = "adapter.fetch"

func init() {
	graft.Register(graft.Node[ports.FetcherFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.FetcherFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Factory{Logger: log}, nil
		},
	})
}
