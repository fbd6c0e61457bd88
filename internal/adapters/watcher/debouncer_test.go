package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weft/internal/adapters/watcher"
	"go.trai.ch/weft/internal/core/ports"
)

func TestDebouncer_CoalescesRapidEvents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var mu sync.Mutex
		var calls [][]string

		d := watcher.NewDebouncer(100*time.Millisecond, func(paths []string) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, paths)
		})

		// Several events for the same save burst.
		d.Add("/scenes/menu.weft.yaml")
		d.Add("/scenes/menu.weft.yaml")
		d.Add("/scenes/hud.weft.yaml")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, calls, 1, "burst must coalesce into one callback")
		assert.ElementsMatch(t, []string{"/scenes/menu.weft.yaml", "/scenes/hud.weft.yaml"}, calls[0])
	})
}

func TestDebouncer_WindowRearmsOnNewEvents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var mu sync.Mutex
		var calls int

		d := watcher.NewDebouncer(100*time.Millisecond, func([]string) {
			mu.Lock()
			defer mu.Unlock()
			calls++
		})

		d.Add("/scenes/a.weft.yaml")
		time.Sleep(60 * time.Millisecond)
		d.Add("/scenes/b.weft.yaml")
		time.Sleep(60 * time.Millisecond)

		mu.Lock()
		assert.Zero(t, calls, "window rearms while events keep arriving")
		mu.Unlock()

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, calls)
	})
}

func TestDebouncer_FlushDeliversSynchronously(t *testing.T) {
	var received []string
	d := watcher.NewDebouncer(time.Hour, func(paths []string) {
		received = paths
	})

	d.Add("/scenes/menu.weft.yaml")
	d.Flush()

	assert.Equal(t, []string{"/scenes/menu.weft.yaml"}, received)
}

func TestDebouncer_FlushWithNothingPending(t *testing.T) {
	called := false
	d := watcher.NewDebouncer(time.Hour, func([]string) { called = true })

	d.Flush()
	assert.False(t, called)
}

func TestConvertEvent_FiltersNonSceneFiles(t *testing.T) {
	w, err := watcher.NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  *ports.WatchEvent
	}{
		{
			name:  "scene file write",
			event: fsnotify.Event{Name: "/scenes/menu.weft.yaml", Op: fsnotify.Write},
			want:  &ports.WatchEvent{Path: "/scenes/menu.weft.yaml", Operation: ports.OpWrite},
		},
		{
			name:  "scene file create",
			event: fsnotify.Event{Name: "/scenes/hud.weft.yaml", Op: fsnotify.Create},
			want:  &ports.WatchEvent{Path: "/scenes/hud.weft.yaml", Operation: ports.OpCreate},
		},
		{
			name:  "scene file remove",
			event: fsnotify.Event{Name: "/scenes/hud.weft.yaml", Op: fsnotify.Remove},
			want:  &ports.WatchEvent{Path: "/scenes/hud.weft.yaml", Operation: ports.OpRemove},
		},
		{
			name:  "unrelated file ignored",
			event: fsnotify.Event{Name: "/scenes/readme.md", Op: fsnotify.Write},
			want:  nil,
		},
		{
			name:  "chmod ignored",
			event: fsnotify.Event{Name: "/scenes/menu.weft.yaml", Op: fsnotify.Chmod},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.ConvertEvent(tt.event))
		})
	}
}
