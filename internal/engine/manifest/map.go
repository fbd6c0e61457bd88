// Package manifest maintains the manifest-key to scene-file mapping. It is
// the only piece of engine state shared with the loader's scheduling context,
// so it is guarded by a mutex.
package manifest

import (
	"sync"

	"go.trai.ch/weft/internal/core/domain"
)

// Map resolves manifest keys (dotted aliases like "ui.widgets") to canonical
// scene file names. Safe for concurrent use.
type Map struct {
	mu   sync.Mutex
	keys map[domain.InternedString]domain.InternedString
}

// New creates an empty Map.
func New() *Map {
	return &Map{
		keys: make(map[domain.InternedString]domain.InternedString),
	}
}

// Insert registers key as an alias for file. Returns the previously mapped
// file and true when an existing mapping to a different file was replaced, so
// the caller can surface a warning.
func (m *Map) Insert(key, file domain.InternedString) (prev domain.InternedString, replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, existed := m.keys[key]
	m.keys[key] = file
	return prev, existed && prev != file
}

// Remove drops a key mapping. Returns false if the key was not present.
func (m *Map) Remove(key domain.InternedString) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.keys[key]
	delete(m.keys, key)
	return existed
}

// Resolve looks up the file registered under key.
func (m *Map) Resolve(key domain.InternedString) (domain.InternedString, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.keys[key]
	return file, ok
}

// SwapForFile replaces a manifest key in ref.File with the canonical file
// name it resolves to. File names carrying the scene file suffix pass through
// untouched. Returns false when ref.File is a key with no registered mapping;
// the ref is left unchanged in that case.
func (m *Map) SwapForFile(ref *domain.SceneRef) bool {
	if domain.IsSceneFile(ref.File.String()) {
		return true
	}

	file, ok := m.Resolve(ref.File)
	if !ok {
		return false
	}
	ref.File = file
	return true
}
