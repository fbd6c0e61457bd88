package app

import (
	"go.trai.ch/weft/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App     *App
	Logger  ports.Logger
	Loader  ports.SceneFileLoader
	Watcher ports.Watcher
	Tracer  ports.Tracer
}
