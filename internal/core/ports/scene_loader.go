package ports

import (
	"context"

	"go.trai.ch/weft/internal/core/domain"
)

// SceneFileLoader defines the interface for reading and parsing scene files.
//
//go:generate mockgen -source=scene_loader.go -destination=mocks/mock_scene_loader.go -package=mocks
type SceneFileLoader interface {
	// Load reads and parses the scene file at path, relative to root.
	Load(ctx context.Context, root, path string) (*domain.ParsedFile, error)
}
