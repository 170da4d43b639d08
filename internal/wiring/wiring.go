// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/crossbuild/internal/adapters/cas"
	_ "go.trai.ch/crossbuild/internal/adapters/config"
	_ "go.trai.ch/crossbuild/internal/adapters/fs"
	_ "go.trai.ch/crossbuild/internal/adapters/logger"
	_ "go.trai.ch/crossbuild/internal/adapters/shell"
	// Register app and engine nodes.
	_ "go.trai.ch/crossbuild/internal/app"
	_ "go.trai.ch/crossbuild/internal/engine/planner"
)
