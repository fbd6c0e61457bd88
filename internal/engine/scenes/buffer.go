// Package scenes implements the loadable cache: per scene-node value lists
// with change diffing, plus hot-reload subscriptions that re-initialize live
// entities when the values under their node change.
package scenes

import (
	"fmt"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/weft/internal/engine/manifest"
	"go.trai.ch/weft/internal/engine/registry"
	"go.trai.ch/zerr"
)

// InsertResult describes the effect of inserting a loadable into a node.
type InsertResult uint8

const (
	// ResultNoChange: the value was already cached at this index.
	ResultNoChange InsertResult = iota
	// ResultAdded: a new type appeared on the node.
	ResultAdded
	// ResultChanged: the value for an existing type changed.
	ResultChanged
	// ResultRearranged: an unchanged value moved to a new index.
	ResultRearranged
)

// Handlers resolves loadable types to their build and revert callbacks.
// Implemented by the registry.
type Handlers interface {
	NodeBuilder(typeID domain.InternedString) (registry.BuilderFn, bool)
	NodeReverter(typeID domain.InternedString) (registry.ReverterFn, bool)
}

// NodeInitializer prepares an entity right before its loadables are applied.
type NodeInitializer func(entity domain.EntityID)

type subscription struct {
	entity      domain.EntityID
	initializer NodeInitializer
}

type subscriptionTarget struct {
	ref         domain.SceneRef
	initializer NodeInitializer
}

type revertEntry struct {
	entity  domain.EntityID
	typeIDs map[domain.InternedString]struct{}
}

type updateEntry struct {
	entity      domain.EntityID
	initializer NodeInitializer
	ref         domain.SceneRef
}

// Buffer is the loadable cache. Like the command buffer it is driven from a
// single scheduling loop and holds no internal locks; the manifest map it
// shares with the loader carries its own mutex.
type Buffer struct {
	log      ports.Logger
	manifest *manifest.Map

	loadables map[domain.SceneRef][]domain.ErasedValue

	hotReload bool
	// subscriptions index live entities by node ref; subscriptionsRev is the
	// inverse, for cleanup and manual reloads.
	subscriptions    map[domain.SceneRef][]subscription
	subscriptionsRev map[domain.EntityID]subscriptionTarget

	// reverts and updates scheduled for the next ApplyPendingUpdates pass.
	// Reverts always run before updates so a consumer never observes a
	// half-applied refresh.
	needsRevert []revertEntry
	needsUpdate []updateEntry
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithHotReload enables subscription tracking and refresh scheduling.
func WithHotReload() Option {
	return func(b *Buffer) {
		b.hotReload = true
	}
}

// New creates an empty Buffer sharing the given manifest map with the loader.
func New(log ports.Logger, m *manifest.Map, opts ...Option) *Buffer {
	b := &Buffer{
		log:              log,
		manifest:         m,
		loadables:        make(map[domain.SceneRef][]domain.ErasedValue),
		subscriptions:    make(map[domain.SceneRef][]subscription),
		subscriptionsRev: make(map[domain.EntityID]subscriptionTarget),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PrepareNode registers a scene node so that empty nodes are still known
// paths. Idempotent.
func (b *Buffer) PrepareNode(ref domain.SceneRef) {
	if _, ok := b.loadables[ref]; !ok {
		b.loadables[ref] = nil
	}
}

// Insert caches a loadable at the given index of a node, diffing against the
// cached value. Subscribed entities are scheduled for a refresh when the
// value actually changed.
func (b *Buffer) Insert(ref domain.SceneRef, index int, value domain.ErasedValue) InsertResult {
	res := b.insertEntry(ref, index, value)
	if res == ResultNoChange {
		return res
	}

	if !b.hotReload {
		return res
	}
	for _, sub := range b.subscriptions[ref] {
		if res == ResultChanged {
			b.addRevert(sub, value.Type)
		}
		b.addUpdate(sub, ref)
	}
	return res
}

// insertEntry assumes loadable types are unique within a scene node.
func (b *Buffer) insertEntry(ref domain.SceneRef, index int, value domain.ErasedValue) InsertResult {
	entries, known := b.loadables[ref]
	if !known || len(entries) == 0 {
		if index != 0 {
			b.log.Error(zerr.With(zerr.With(zerr.With(zerr.With(
				domain.ErrLoadableIndexOutOfRange,
				"type", value.Type.String()),
				"node", ref.String()),
				"index", index),
				"length", 0,
			))
			return ResultNoChange
		}
		b.loadables[ref] = append(entries, value)
		return ResultAdded
	}

	pos := -1
	for i, e := range entries {
		if e.Type == value.Type {
			pos = i
			break
		}
	}

	if pos >= 0 {
		if index >= len(entries) {
			b.log.Error(zerr.With(zerr.With(zerr.With(zerr.With(
				domain.ErrLoadableIndexOutOfRange,
				"type", value.Type.String()),
				"node", ref.String()),
				"index", index),
				"length", len(entries),
			))
			return ResultNoChange
		}
		if pos < index {
			// The same type appearing below the target index means the
			// node's declared list contains a duplicate.
			b.log.Error(zerr.With(zerr.With(zerr.With(zerr.With(
				zerr.New("duplicate loadable in scene node list"),
				"type", value.Type.String()),
				"node", ref.String()),
				"index", index),
				"previous", pos,
			))
		}
		if entries[pos].Equals(value) {
			if pos == index {
				return ResultNoChange
			}
			entries[pos], entries[index] = entries[index], entries[pos]
			return ResultRearranged
		}
		entries[pos] = value
		entries[pos], entries[index] = entries[index], entries[pos]
		return ResultChanged
	}

	if index > len(entries) {
		b.log.Error(zerr.With(zerr.With(zerr.With(zerr.With(
			domain.ErrLoadableIndexOutOfRange,
			"type", value.Type.String()),
			"node", ref.String()),
			"index", index),
			"length", len(entries),
		))
		return ResultNoChange
	}
	entries = append(entries, domain.ErasedValue{})
	copy(entries[index+1:], entries[index:])
	entries[index] = value
	b.loadables[ref] = entries
	return ResultAdded
}

// EndInsertion runs after all of a node's loadables were re-inserted for a
// load cycle. Cached entries at or past count are trailing removals; their
// types are reverted on subscribed entities.
func (b *Buffer) EndInsertion(ref domain.SceneRef, count int) {
	entries, known := b.loadables[ref]
	if !known || len(entries) <= count {
		return
	}

	removed := entries[count:]
	b.loadables[ref] = entries[:count]

	if !b.hotReload {
		return
	}
	subs := b.subscriptions[ref]
	if len(subs) == 0 {
		return
	}
	for _, gone := range removed {
		for _, sub := range subs {
			b.addRevert(sub, gone.Type)
			b.addUpdate(sub, ref)
		}
	}
}

// Track subscribes an entity to a scene node and loads the current values
// into it immediately. Manifest keys in the ref are resolved first.
func (b *Buffer) Track(entity domain.EntityID, ref domain.SceneRef, init NodeInitializer, handlers Handlers) {
	ref = b.subscribe(entity, ref, init)
	b.loadEntity(subscription{entity: entity, initializer: init}, ref, handlers)
}

// TrackQueued subscribes an entity but defers its initial load to the next
// ApplyPendingUpdates pass. Used while loading is blocked so a freshly
// spawned entity stays in sync with queued refresh edits to its ancestors.
func (b *Buffer) TrackQueued(entity domain.EntityID, ref domain.SceneRef, init NodeInitializer) {
	ref = b.subscribe(entity, ref, init)
	b.addUpdate(subscription{entity: entity, initializer: init}, ref)
}

func (b *Buffer) subscribe(entity domain.EntityID, ref domain.SceneRef, init NodeInitializer) domain.SceneRef {
	if !b.manifest.SwapForFile(&ref) {
		b.log.Warn(fmt.Sprintf("manifest key %q in tracked ref %s has no registered file", ref.File.String(), ref.String()))
	}

	if !b.hotReload {
		return ref
	}

	b.subscriptions[ref] = append(b.subscriptions[ref], subscription{entity: entity, initializer: init})
	if prev, tracked := b.subscriptionsRev[entity]; tracked {
		b.log.Warn(fmt.Sprintf(
			"overwriting scene node tracking for entity %d; prev: %s, new: %s",
			entity, prev.ref.String(), ref.String(),
		))
	}
	b.subscriptionsRev[entity] = subscriptionTarget{ref: ref, initializer: init}
	return ref
}

// RequestReload schedules a fresh load of the node an entity is subscribed
// to, without any underlying file change.
func (b *Buffer) RequestReload(entity domain.EntityID) {
	target, tracked := b.subscriptionsRev[entity]
	if !tracked {
		b.log.Warn(fmt.Sprintf("requested reload of entity %d that is not subscribed to any scene node", entity))
		return
	}
	b.addUpdate(subscription{entity: entity, initializer: target.initializer}, target.ref)
}

// ApplyPendingUpdates drains the scheduled reverts, then the scheduled
// reloads. The host calls this once per tick while loading is not blocked.
func (b *Buffer) ApplyPendingUpdates(handlers Handlers) {
	for _, entry := range b.needsRevert {
		for typeID := range entry.typeIDs {
			revert, ok := handlers.NodeReverter(typeID)
			if !ok {
				continue
			}
			revert(entry.entity)
		}
	}
	b.needsRevert = b.needsRevert[:0]

	updates := b.needsUpdate
	b.needsUpdate = nil
	for _, entry := range updates {
		b.loadEntity(subscription{entity: entry.entity, initializer: entry.initializer}, entry.ref, handlers)
	}
}

// RemoveEntity cleans up a dead entity's subscription.
func (b *Buffer) RemoveEntity(entity domain.EntityID) {
	target, tracked := b.subscriptionsRev[entity]
	if !tracked {
		return
	}
	delete(b.subscriptionsRev, entity)

	subs := b.subscriptions[target.ref]
	for i, sub := range subs {
		if sub.entity == entity {
			subs[i] = subs[len(subs)-1]
			b.subscriptions[target.ref] = subs[:len(subs)-1]
			break
		}
	}
}

// loadEntity initializes the entity and applies the node's current values in
// declaration order.
func (b *Buffer) loadEntity(sub subscription, ref domain.SceneRef, handlers Handlers) {
	if sub.initializer != nil {
		sub.initializer(sub.entity)
	}

	entries, known := b.loadables[ref]
	if !known {
		b.log.Warn(fmt.Sprintf(
			"failed loading %s into entity %d; the node path is unknown (invalid path, or the entity was loaded before loading finished)",
			ref.String(), sub.entity,
		))
		return
	}

	for _, entry := range entries {
		build, ok := handlers.NodeBuilder(entry.Type)
		if !ok {
			b.log.Warn(fmt.Sprintf("loadable type %q at %s was never registered; skipped", entry.Type.String(), ref.String()))
			continue
		}
		build(sub.entity, entry.Payload, ref)
	}
}

// CurrentValues returns the cached value list for a node, in order.
func (b *Buffer) CurrentValues(ref domain.SceneRef) ([]domain.ErasedValue, bool) {
	entries, ok := b.loadables[ref]
	return entries, ok
}

func (b *Buffer) addRevert(sub subscription, typeID domain.InternedString) {
	for i := range b.needsRevert {
		if b.needsRevert[i].entity == sub.entity {
			b.needsRevert[i].typeIDs[typeID] = struct{}{}
			return
		}
	}
	b.needsRevert = append(b.needsRevert, revertEntry{
		entity:  sub.entity,
		typeIDs: map[domain.InternedString]struct{}{typeID: {}},
	})
}

func (b *Buffer) addUpdate(sub subscription, ref domain.SceneRef) {
	for i := range b.needsUpdate {
		if b.needsUpdate[i].entity == sub.entity {
			return
		}
	}
	b.needsUpdate = append(b.needsUpdate, updateEntry{
		entity:      sub.entity,
		initializer: sub.initializer,
		ref:         ref,
	})
}
