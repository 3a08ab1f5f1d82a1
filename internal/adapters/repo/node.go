package repo

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sprig/internal/core/ports"
)

// NodeID is the unique identifier for the registry factory Graft node.
const NodeID graft.ID = "adapter.repo"

func init() {
	graft.Register(graft.Node[ports.RegistryFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{},
		Run: func(_ context.Context) (ports.RegistryFactory, error) {
			return Factory{}, nil
		},
	})
}
