// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/sprig/internal/adapters/buildcache"
	_ "go.trai.ch/sprig/internal/adapters/builder"
	_ "go.trai.ch/sprig/internal/adapters/config"
	_ "go.trai.ch/sprig/internal/adapters/database"
	_ "go.trai.ch/sprig/internal/adapters/fetch"
	_ "go.trai.ch/sprig/internal/adapters/fs"
	_ "go.trai.ch/sprig/internal/adapters/lock"
	_ "go.trai.ch/sprig/internal/adapters/logger"
	_ "go.trai.ch/sprig/internal/adapters/repo"
	// Register app nodes.
	_ "go.trai.ch/sprig/internal/app"
)
