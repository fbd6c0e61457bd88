package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/engine/manifest"
)

func TestInsert_ReportsReplacement(t *testing.T) {
	m := manifest.New()

	key := domain.NewInternedString("ui.widgets")
	first := domain.NewInternedString("widgets.weft.yaml")
	second := domain.NewInternedString("widgets_v2.weft.yaml")

	_, replaced := m.Insert(key, first)
	assert.False(t, replaced)

	// Re-registering the same mapping is not a replacement.
	_, replaced = m.Insert(key, first)
	assert.False(t, replaced)

	prev, replaced := m.Insert(key, second)
	assert.True(t, replaced)
	assert.Equal(t, first, prev)

	file, ok := m.Resolve(key)
	assert.True(t, ok)
	assert.Equal(t, second, file)
}

func TestSwapForFile(t *testing.T) {
	m := manifest.New()
	m.Insert(domain.NewInternedString("ui.widgets"), domain.NewInternedString("widgets.weft.yaml"))

	tests := []struct {
		name     string
		file     string
		wantOK   bool
		wantFile string
	}{
		{
			name:     "manifest key resolves",
			file:     "ui.widgets",
			wantOK:   true,
			wantFile: "widgets.weft.yaml",
		},
		{
			name:     "file name passes through",
			file:     "menu.weft.yaml",
			wantOK:   true,
			wantFile: "menu.weft.yaml",
		},
		{
			name:     "unknown key leaves ref unchanged",
			file:     "ui.unknown",
			wantOK:   false,
			wantFile: "ui.unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := domain.NewSceneRef(tt.file, "root", "button")
			ok := m.SwapForFile(&ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFile, ref.File.String())
		})
	}
}

func TestRemove(t *testing.T) {
	m := manifest.New()
	key := domain.NewInternedString("ui.widgets")
	m.Insert(key, domain.NewInternedString("widgets.weft.yaml"))

	assert.True(t, m.Remove(key))
	assert.False(t, m.Remove(key))

	_, ok := m.Resolve(key)
	assert.False(t, ok)
}
