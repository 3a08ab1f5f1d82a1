package lock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sprig/internal/core/ports"
)

// NodeID is the unique identifier for the locker factory Graft node.
const NodeID graft.ID = "adapter.lock"

func init() {
	graft.Register(graft.Node[ports.LockerFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.LockerFactory, error) {
			return Factory{}, nil
		},
	})
}
