package buildcache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sprig/internal/core/ports"
)

// NodeID is the unique identifier for the build cache Graft node.
const NodeID graft.ID = "adapter.buildcache"

func init() {
	graft.Register(graft.Node[ports.BuildCacheFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (ports.BuildCacheFactory, error) {
			return Factory{}, nil
		},
	})
}
