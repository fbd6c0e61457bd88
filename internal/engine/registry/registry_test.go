package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/engine/registry"
)

func TestRegistry_Commands(t *testing.T) {
	reg := registry.New()

	var applied []any
	assert.True(t, reg.RegisterCommand("ui.theme", func(payload any) { applied = append(applied, payload) }))
	assert.False(t, reg.RegisterCommand("ui.theme", func(payload any) { applied = append(applied, "second") }),
		"re-registration reports the duplicate")

	fn, ok := reg.CommandApplier(domain.NewInternedString("ui.theme"))
	assert.True(t, ok)
	fn("dark")
	assert.Equal(t, []any{"second"}, applied, "the latest registration wins")

	_, ok = reg.CommandApplier(domain.NewInternedString("ui.unknown"))
	assert.False(t, ok)
}

func TestRegistry_Loadables(t *testing.T) {
	reg := registry.New()

	var events []string
	assert.True(t, reg.RegisterLoadable("ui.size",
		func(entity domain.EntityID, _ any, _ domain.SceneRef) { events = append(events, "build") },
		func(entity domain.EntityID) { events = append(events, "revert") },
	))

	build, ok := reg.NodeBuilder(domain.NewInternedString("ui.size"))
	assert.True(t, ok)
	build(1, nil, domain.SceneRef{})

	revert, ok := reg.NodeReverter(domain.NewInternedString("ui.size"))
	assert.True(t, ok)
	revert(1)

	assert.Equal(t, []string{"build", "revert"}, events)
}

func TestRegistry_LoadableWithoutReverter(t *testing.T) {
	reg := registry.New()
	reg.RegisterLoadable("ui.color", func(domain.EntityID, any, domain.SceneRef) {}, nil)

	_, ok := reg.NodeBuilder(domain.NewInternedString("ui.color"))
	assert.True(t, ok)
	_, ok = reg.NodeReverter(domain.NewInternedString("ui.color"))
	assert.False(t, ok)
}
