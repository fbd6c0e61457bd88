// Package registry holds the type-id-keyed dispatch tables mapping loadable
// type names to their apply, build and revert callbacks. The host registers
// everything once at startup, before loading begins.
package registry

import "go.trai.ch/weft/internal/core/domain"

// CommandFn applies a global command payload to the live system.
type CommandFn func(payload any)

// BuilderFn applies a scene node loadable to a subscribed entity.
type BuilderFn func(entity domain.EntityID, payload any, ref domain.SceneRef)

// ReverterFn undoes a loadable's effect on an entity after a hot reload
// removed or changed it.
type ReverterFn func(entity domain.EntityID)

// Registry is the callback table. Registration is not synchronized; register
// everything before handing the registry to the loading engine.
type Registry struct {
	commands  map[domain.InternedString]CommandFn
	builders  map[domain.InternedString]BuilderFn
	reverters map[domain.InternedString]ReverterFn
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		commands:  make(map[domain.InternedString]CommandFn),
		builders:  make(map[domain.InternedString]BuilderFn),
		reverters: make(map[domain.InternedString]ReverterFn),
	}
}

// RegisterCommand binds a command type name to its apply callback. Returns
// false if the type was already registered (the new callback wins).
func (r *Registry) RegisterCommand(typeName string, fn CommandFn) bool {
	id := domain.NewInternedString(typeName)
	_, dup := r.commands[id]
	r.commands[id] = fn
	return !dup
}

// RegisterLoadable binds a scene loadable type name to its build callback and
// an optional revert callback. Returns false if the type was already
// registered.
func (r *Registry) RegisterLoadable(typeName string, build BuilderFn, revert ReverterFn) bool {
	id := domain.NewInternedString(typeName)
	_, dup := r.builders[id]
	r.builders[id] = build
	if revert != nil {
		r.reverters[id] = revert
	}
	return !dup
}

// CommandApplier resolves a command type to its apply callback.
func (r *Registry) CommandApplier(typeID domain.InternedString) (func(payload any), bool) {
	fn, ok := r.commands[typeID]
	return fn, ok
}

// NodeBuilder resolves a loadable type to its build callback.
func (r *Registry) NodeBuilder(typeID domain.InternedString) (BuilderFn, bool) {
	fn, ok := r.builders[typeID]
	return fn, ok
}

// NodeReverter resolves a loadable type to its revert callback.
func (r *Registry) NodeReverter(typeID domain.InternedString) (ReverterFn, bool) {
	fn, ok := r.reverters[typeID]
	return fn, ok
}
