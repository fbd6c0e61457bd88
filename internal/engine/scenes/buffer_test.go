package scenes_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports/mocks"
	"go.trai.ch/weft/internal/engine/manifest"
	"go.trai.ch/weft/internal/engine/registry"
	"go.trai.ch/weft/internal/engine/scenes"
	"go.uber.org/mock/gomock"
)

// recordingHandlers logs build and revert invocations as readable strings.
type recordingHandlers struct {
	events  []string
	missing map[string]bool
}

func (h *recordingHandlers) NodeBuilder(typeID domain.InternedString) (registry.BuilderFn, bool) {
	if h.missing[typeID.String()] {
		return nil, false
	}
	name := typeID.String()
	return func(entity domain.EntityID, _ any, _ domain.SceneRef) {
		h.events = append(h.events, fmt.Sprintf("build %s on %d", name, entity))
	}, true
}

func (h *recordingHandlers) NodeReverter(typeID domain.InternedString) (registry.ReverterFn, bool) {
	if h.missing[typeID.String()] {
		return nil, false
	}
	name := typeID.String()
	return func(entity domain.EntityID) {
		h.events = append(h.events, fmt.Sprintf("revert %s on %d", name, entity))
	}, true
}

func value(t *testing.T, typeName string, payload any) domain.ErasedValue {
	t.Helper()
	v, err := domain.NewErasedValue(typeName, payload)
	require.NoError(t, err)
	return v
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

func newBuffer(ctrl *gomock.Controller, opts ...scenes.Option) *scenes.Buffer {
	return scenes.New(quietLogger(ctrl), manifest.New(), opts...)
}

func TestInsert_Results(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl)
	ref := domain.NewSceneRef("menu.weft.yaml", "root", "button")

	assert.Equal(t, scenes.ResultAdded, buf.Insert(ref, 0, value(t, "Color", "red")))
	assert.Equal(t, scenes.ResultAdded, buf.Insert(ref, 1, value(t, "Size", 12)))

	// Identical re-insertion at the same index is suppressed.
	assert.Equal(t, scenes.ResultNoChange, buf.Insert(ref, 0, value(t, "Color", "red")))

	// A changed value replaces in place.
	assert.Equal(t, scenes.ResultChanged, buf.Insert(ref, 0, value(t, "Color", "blue")))

	// An unchanged value at a new index is a rearrangement.
	assert.Equal(t, scenes.ResultRearranged, buf.Insert(ref, 1, value(t, "Color", "blue")))

	values, ok := buf.CurrentValues(ref)
	require.True(t, ok)
	require.Len(t, values, 2)
	assert.Equal(t, "Size", values[0].Type.String())
	assert.Equal(t, "Color", values[1].Type.String())
}

func TestInsert_IndexPastEndRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any()).Times(2)
	buf := scenes.New(log, manifest.New())
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	// Empty node: only index 0 is valid.
	assert.Equal(t, scenes.ResultNoChange, buf.Insert(ref, 1, value(t, "Color", "red")))

	require.Equal(t, scenes.ResultAdded, buf.Insert(ref, 0, value(t, "Color", "red")))
	assert.Equal(t, scenes.ResultNoChange, buf.Insert(ref, 2, value(t, "Size", 12)))
}

func TestPrepareNode_EmptyNodeIsKnown(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl)
	ref := domain.NewSceneRef("menu.weft.yaml", "root", "spacer")

	_, ok := buf.CurrentValues(ref)
	require.False(t, ok)

	buf.PrepareNode(ref)
	values, ok := buf.CurrentValues(ref)
	assert.True(t, ok)
	assert.Empty(t, values)
}

func TestTrack_DeliversCurrentValuesImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root", "button")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.Insert(ref, 1, value(t, "Size", 12))

	inited := false
	buf.Track(7, ref, func(domain.EntityID) { inited = true }, handlers)

	assert.True(t, inited)
	assert.Equal(t, []string{"build Color on 7", "build Size on 7"}, handlers.events)
}

func TestTrack_ResolvesManifestKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := manifest.New()
	m.Insert(domain.NewInternedString("ui.menu"), domain.NewInternedString("menu.weft.yaml"))
	buf := scenes.New(quietLogger(ctrl), m, scenes.WithHotReload())
	handlers := &recordingHandlers{}

	fileRef := domain.NewSceneRef("menu.weft.yaml", "root")
	buf.Insert(fileRef, 0, value(t, "Color", "red"))

	keyRef := domain.NewSceneRef("ui.menu", "root")
	buf.Track(1, keyRef, nil, handlers)
	assert.Equal(t, []string{"build Color on 1"}, handlers.events)
}

func TestTrackQueued_DefersInitialLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.TrackQueued(3, ref, nil)
	assert.Empty(t, handlers.events)

	buf.ApplyPendingUpdates(handlers)
	assert.Equal(t, []string{"build Color on 3"}, handlers.events)
}

func TestApplyPendingUpdates_RevertsBeforeRebuild(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.Track(5, ref, nil, handlers)
	handlers.events = nil

	// Hot reload changes the value: the subscriber gets a revert for the
	// changed type, then a full rebuild.
	buf.Insert(ref, 0, value(t, "Color", "blue"))
	buf.EndInsertion(ref, 1)
	buf.ApplyPendingUpdates(handlers)

	assert.Equal(t, []string{"revert Color on 5", "build Color on 5"}, handlers.events)
}

func TestEndInsertion_TrailingRemovalTriggersRevert(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.Insert(ref, 1, value(t, "Size", 12))
	buf.Track(9, ref, nil, handlers)
	handlers.events = nil

	// Reload keeps only the first loadable.
	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.EndInsertion(ref, 1)
	buf.ApplyPendingUpdates(handlers)

	assert.Equal(t, []string{"revert Size on 9", "build Color on 9"}, handlers.events)

	values, ok := buf.CurrentValues(ref)
	require.True(t, ok)
	assert.Len(t, values, 1)
}

func TestInsert_IdenticalReloadDoesNotNotify(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.Track(2, ref, nil, handlers)
	handlers.events = nil

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.EndInsertion(ref, 1)
	buf.ApplyPendingUpdates(handlers)
	assert.Empty(t, handlers.events, "identical reload must not touch subscribers")
}

func TestRequestReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.Track(4, ref, nil, handlers)
	handlers.events = nil

	buf.RequestReload(4)
	buf.ApplyPendingUpdates(handlers)
	assert.Equal(t, []string{"build Color on 4"}, handlers.events)
}

func TestRemoveEntity_StopsNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	buf := newBuffer(ctrl, scenes.WithHotReload())
	handlers := &recordingHandlers{}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Color", "red"))
	buf.Track(6, ref, nil, handlers)
	handlers.events = nil

	buf.RemoveEntity(6)
	buf.Insert(ref, 0, value(t, "Color", "green"))
	buf.EndInsertion(ref, 1)
	buf.ApplyPendingUpdates(handlers)
	assert.Empty(t, handlers.events)
}

func TestLoadEntity_UnregisteredTypeSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)
	buf := scenes.New(log, manifest.New(), scenes.WithHotReload())
	handlers := &recordingHandlers{missing: map[string]bool{"Exotic": true}}
	ref := domain.NewSceneRef("menu.weft.yaml", "root")

	buf.Insert(ref, 0, value(t, "Exotic", 1))
	buf.Insert(ref, 1, value(t, "Color", "red"))
	buf.Track(8, ref, nil, handlers)

	assert.Equal(t, []string{"build Color on 8"}, handlers.events)
}
