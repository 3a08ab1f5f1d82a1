package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sprig/internal/adapters/buildcache" //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/builder"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/config"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/database"   //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/fetch"      //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/fs"         //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/lock"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/logger"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/adapters/repo"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sprig/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			repo.NodeID,
			database.NodeID,
			lock.NodeID,
			fetch.NodeID,
			buildcache.NodeID,
			builder.NodeID,
			fs.ManifesterNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	registries, err := graft.Dep[ports.RegistryFactory](ctx)
	if err != nil {
		return nil, err
	}
	databases, err := graft.Dep[ports.DatabaseFactory](ctx)
	if err != nil {
		return nil, err
	}
	lockers, err := graft.Dep[ports.LockerFactory](ctx)
	if err != nil {
		return nil, err
	}
	fetchers, err := graft.Dep[ports.FetcherFactory](ctx)
	if err != nil {
		return nil, err
	}
	caches, err := graft.Dep[ports.BuildCacheFactory](ctx)
	if err != nil {
		return nil, err
	}
	b, err := graft.Dep[ports.Builder](ctx)
	if err != nil {
		return nil, err
	}
	manifester, err := graft.Dep[ports.Manifester](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(loader, registries, databases, lockers, fetchers, caches, b, manifester, log), nil
}
