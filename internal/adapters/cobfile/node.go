package cobfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weft/internal/core/ports"
)

// NodeID is the unique identifier for the scene file loader Graft node.
const NodeID graft.ID = "adapter.cobfile"

func init() {
	graft.Register(graft.Node[ports.SceneFileLoader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.SceneFileLoader, error) {
			return NewLoader(), nil
		},
	})
}
