// Package app implements the application layer for weft: it drives the
// loading engine from parsed scene files and runs the tick loop.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/weft/internal/engine/commands"
	"go.trai.ch/weft/internal/engine/manifest"
	"go.trai.ch/weft/internal/engine/registry"
	"go.trai.ch/weft/internal/engine/scenes"
	"go.trai.ch/weft/internal/engine/treewalk"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// tickInterval paces the flush loop in watch mode between file events, so
// time locks and settling reloads drain without waiting for the next event.
const tickInterval = 250 * time.Millisecond

// RunOptions configures a load run.
type RunOptions struct {
	// Root is the directory scene file paths are resolved against.
	Root string
	// Watch keeps the process alive, hot-reloading scene files on change.
	Watch bool
}

// App represents the main application logic.
type App struct {
	log     ports.Logger
	loader  ports.SceneFileLoader
	watcher ports.Watcher
	tracer  ports.Tracer

	registry *registry.Registry
	manifest *manifest.Map
	clock    clockwork.Clock

	// autoRegister installs debug-logging callbacks for types encountered in
	// files that were never registered. Used by the CLI validation mode.
	autoRegister bool

	commands *commands.Buffer
	scenes   *scenes.Buffer

	lastPending, lastTotal int
	progressDirty          bool
}

// Option configures an App.
type Option func(*App)

// WithRegistry supplies the callback registry the host populated.
func WithRegistry(r *registry.Registry) Option {
	return func(a *App) {
		a.registry = r
	}
}

// WithClock overrides the engine clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(a *App) {
		a.clock = clock
	}
}

// WithAutoRegister enables validation mode: unknown command and loadable
// types get debug-logging callbacks instead of being dropped with warnings.
func WithAutoRegister() Option {
	return func(a *App) {
		a.autoRegister = true
	}
}

// New creates a new App instance.
func New(log ports.Logger, loader ports.SceneFileLoader, watcher ports.Watcher, tracer ports.Tracer, opts ...Option) *App {
	a := &App{
		log:      log,
		loader:   loader,
		watcher:  watcher,
		tracer:   tracer,
		registry: registry.New(),
		manifest: manifest.New(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run loads the given root scene files and their manifest trees, flushes all
// commands, and, in watch mode, keeps hot-reloading until the context is
// canceled.
func (a *App) Run(ctx context.Context, files []string, opts RunOptions) error {
	if len(files) == 0 {
		return domain.ErrNoRootFiles
	}
	for _, f := range files {
		if !domain.IsSceneFile(f) {
			return zerr.With(domain.ErrNotASceneFile, "path", f)
		}
	}
	if opts.Root == "" {
		opts.Root = "."
	}

	var cmdOpts []commands.Option
	var scnOpts []scenes.Option
	if opts.Watch {
		cmdOpts = append(cmdOpts, commands.WithHotReload(a.clock))
		scnOpts = append(scnOpts, scenes.WithHotReload())
	}
	a.commands = commands.New(a.log, cmdOpts...)
	a.scenes = scenes.New(a.log, a.manifest, scnOpts...)
	a.progressDirty = true

	for _, f := range files {
		a.commands.AddRootFile(domain.NewInternedString(filepath.ToSlash(f)))
	}

	if err := a.loadTree(ctx, opts.Root, files); err != nil {
		return zerr.Wrap(err, domain.ErrLoadFailed.Error())
	}

	a.tick(ctx)

	if !opts.Watch {
		return nil
	}
	return a.watch(ctx, opts.Root)
}

// loadTree loads the manifest tree breadth-first: each wave's files are read
// and parsed concurrently, then fed into the engine in order.
func (a *App) loadTree(ctx context.Context, root string, files []string) error {
	seen := make(map[domain.InternedString]bool, len(files))
	wave := make([]string, 0, len(files))
	for _, f := range files {
		f = filepath.ToSlash(f)
		seen[domain.NewInternedString(f)] = true
		wave = append(wave, f)
	}

	for depth := 0; len(wave) > 0; depth++ {
		if depth >= treewalk.DefaultMaxDepth {
			return zerr.With(domain.ErrTraversalDepthExceeded, "depth", depth)
		}

		results := make([]*domain.ParsedFile, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		for i, path := range wave {
			g.Go(func() error {
				_, span := a.tracer.StartFile(gctx, path)
				parsed, err := a.loader.Load(gctx, root, path)
				if err != nil {
					span.RecordError(err)
					span.End()
					return err
				}
				span.End()
				results[i] = parsed
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var next []string
		for _, parsed := range results {
			a.ingest(parsed)
			for _, imp := range parsed.Imports {
				if !seen[imp.File] {
					seen[imp.File] = true
					next = append(next, imp.File.String())
				}
			}
		}
		wave = next
	}
	return nil
}

// ingest feeds one parsed file into the engine: manifest keys, descendants,
// scene loadables, then commands.
func (a *App) ingest(parsed *domain.ParsedFile) {
	a.commands.Prepare(parsed.Name)
	a.registerKeys(parsed)
	if a.autoRegister {
		a.autoRegisterTypes(parsed)
	}

	a.commands.SetDescendants(parsed.Name, parsed.Descendants())

	for _, scene := range parsed.Scenes {
		a.scenes.PrepareNode(scene.Ref)
		for i, value := range scene.Loadables {
			a.scenes.Insert(scene.Ref, i, value)
		}
		a.scenes.EndInsertion(scene.Ref, len(scene.Loadables))
	}

	a.commands.SetCommands(parsed.Name, parsed.Commands)
	a.progressDirty = true
}

func (a *App) registerKeys(parsed *domain.ParsedFile) {
	if !parsed.SelfKey.IsZero() {
		if prev, replaced := a.manifest.Insert(parsed.SelfKey, parsed.Name); replaced {
			a.log.Warn(fmt.Sprintf(
				"manifest key %q moved from %q to %q",
				parsed.SelfKey.String(), prev.String(), parsed.Name.String(),
			))
		}
	}
	for _, imp := range parsed.Imports {
		if imp.Key.IsZero() {
			continue
		}
		if prev, replaced := a.manifest.Insert(imp.Key, imp.File); replaced {
			a.log.Warn(fmt.Sprintf(
				"manifest key %q moved from %q to %q",
				imp.Key.String(), prev.String(), imp.File.String(),
			))
		}
	}
}

// autoRegisterTypes installs debug-logging callbacks for every type the file
// declares that the registry does not know yet.
func (a *App) autoRegisterTypes(parsed *domain.ParsedFile) {
	for _, value := range parsed.Commands {
		if _, known := a.registry.CommandApplier(value.Type); known {
			continue
		}
		typeName := value.Type.String()
		a.registry.RegisterCommand(typeName, func(any) {
			a.log.Debug(fmt.Sprintf("applied command %s", typeName))
		})
	}
	for _, scene := range parsed.Scenes {
		for _, value := range scene.Loadables {
			if _, known := a.registry.NodeBuilder(value.Type); known {
				continue
			}
			typeName := value.Type.String()
			a.registry.RegisterLoadable(typeName,
				func(entity domain.EntityID, _ any, ref domain.SceneRef) {
					a.log.Debug(fmt.Sprintf("built %s on entity %d from %s", typeName, entity, ref.String()))
				},
				func(entity domain.EntityID) {
					a.log.Debug(fmt.Sprintf("reverted %s on entity %d", typeName, entity))
				},
			)
		}
	}
}

// tick runs one scheduling step: flush commands in tree order, then apply
// scene node updates if nothing blocks them, then report progress.
func (a *App) tick(ctx context.Context) {
	if err := a.commands.ApplyPending(a.registry); err != nil {
		a.log.Error(err)
	}
	if !a.commands.IsBlocked() {
		a.scenes.ApplyPendingUpdates(a.registry)
	}

	pending, total := a.commands.LoadingProgress()
	if a.progressDirty || pending != a.lastPending || total != a.lastTotal {
		a.tracer.EmitProgress(ctx, pending, total)
		a.lastPending, a.lastTotal = pending, total
		a.progressDirty = false
	}
}

// watch hot-reloads scene files until the context is canceled.
func (a *App) watch(ctx context.Context, root string) error {
	if err := a.watcher.Start(ctx, root); err != nil {
		return zerr.Wrap(err, domain.ErrWatcherStartFailed.Error())
	}
	defer func() {
		if err := a.watcher.Stop(); err != nil {
			a.log.Error(zerr.Wrap(err, "failed to stop watcher"))
		}
	}()
	a.log.Info("watching for scene file changes")

	// The watcher reports absolute paths; resolve the root so events map
	// back to the relative file names the engine tracks.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	events := make(chan ports.WatchEvent)
	go func() {
		defer close(events)
		for event := range a.watcher.Events() {
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-events:
			if !open {
				return nil
			}
			a.handleEvent(ctx, root, absRoot, event)
			a.tick(ctx)
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, root, absRoot string, event ports.WatchEvent) {
	rel, err := filepath.Rel(absRoot, event.Path)
	if err != nil {
		rel = event.Path
	}
	rel = filepath.ToSlash(rel)
	file := domain.NewInternedString(rel)

	switch event.Operation {
	case ports.OpWrite, ports.OpCreate:
		if _, known := a.commands.Status(file); !known {
			a.log.Debug(fmt.Sprintf("ignoring change to %s: not part of the loaded tree", rel))
			return
		}
		a.reloadFile(ctx, root, rel)
	case ports.OpRemove, ports.OpRename:
		// The tree repairs itself when the parent's manifest stops listing
		// the file; the cached state stays valid until then.
		a.log.Debug(fmt.Sprintf("scene file %s removed or renamed; keeping cached state", rel))
	}
}

func (a *App) reloadFile(ctx context.Context, root, path string) {
	_, span := a.tracer.StartFile(ctx, path)
	parsed, err := a.loader.Load(ctx, root, path)
	if err != nil {
		span.RecordError(err)
		span.End()
		a.log.Error(zerr.With(err, "file", path))
		return
	}
	span.End()

	a.ingest(parsed)
	a.log.Info(fmt.Sprintf("reloaded %s", path))

	// A reload can introduce new manifest imports that were never loaded.
	for _, imp := range parsed.Imports {
		if status, known := a.commands.Status(imp.File); known && status == commands.StatusPending {
			a.reloadFile(ctx, root, imp.File.String())
		}
	}
}

// Subscribe binds an entity to a scene node. While loading is blocked the
// initial delivery is queued so the entity stays in sync with in-flight
// refreshes; otherwise the current values are delivered immediately.
func (a *App) Subscribe(entity domain.EntityID, ref domain.SceneRef, init scenes.NodeInitializer) {
	if a.commands.IsBlocked() {
		a.scenes.TrackQueued(entity, ref, init)
		return
	}
	a.scenes.Track(entity, ref, init, a.registry)
}

// Unsubscribe cleans up a dead entity's subscription.
func (a *App) Unsubscribe(entity domain.EntityID) {
	a.scenes.RemoveEntity(entity)
}

// RequestReload schedules a fresh load of the node an entity is subscribed to.
func (a *App) RequestReload(entity domain.EntityID) {
	a.scenes.RequestReload(entity)
}

// LoadingProgress returns the pending and total file counts.
func (a *App) LoadingProgress() (pending, total int) {
	return a.commands.LoadingProgress()
}

// Registry exposes the callback registry for host registration.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
