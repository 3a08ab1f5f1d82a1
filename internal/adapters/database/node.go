package database

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sprig/internal/adapters/logger"
	"go.trai.ch/sprig/internal/core/ports"
)

// NodeID is the unique identifier for the database factory Graft node.
const NodeID graft.ID = "adapter.database"

func init() {
	graft.Register(graft.Node[ports.DatabaseFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.DatabaseFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Factory{Logger: log}, nil
		},
	})
}
