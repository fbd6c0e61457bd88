// Package commands implements the command ordering engine: it owns the file
// hierarchy tracker and flushes cached commands to the live system in global
// manifest-tree order, no matter in which order the files actually finished
// loading.
package commands

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/weft/internal/engine/treewalk"
	"go.trai.ch/zerr"
)

// Status is the lifecycle state of a tracked file.
type Status uint8

const (
	// StatusPending means the file's descendants are not known yet.
	StatusPending Status = iota
	// StatusAwaitingCommands means the descendants are reconciled but the
	// file's commands have not been extracted yet.
	StatusAwaitingCommands
	// StatusLoaded means the file is fully processed for this cycle.
	StatusLoaded
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAwaitingCommands:
		return "awaiting-commands"
	case StatusLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// DefaultGracePeriod is how long command flushing stays suppressed after a
// subtree is orphaned. It covers the window in which a branch is detached
// from one parent and immediately reattached under another.
const DefaultGracePeriod = 500 * time.Millisecond

// rootFileName is the synthetic pseudo-file whose descendants are the files
// the host application loads explicitly. It can never collide with a real
// scene file because real files carry the scene file suffix.
const rootFileName = "<root>"

type parentKind uint8

const (
	// parentUnclaimed: the file was prepared but no manifest has claimed it.
	parentUnclaimed parentKind = iota
	// parentOrphan: the file was removed from its parent's manifest.
	parentOrphan
	// parentFile: the file is a live child of another file (or the root).
	parentFile
)

type parentLink struct {
	kind parentKind
	file domain.InternedString
}

type cachedCommand struct {
	value   domain.ErasedValue
	pending bool
}

type fileNode struct {
	status      Status
	parent      parentLink
	descendants []domain.InternedString
	commands    []cachedCommand
	// orphaned files keep their cached state but are excluded from the
	// counters and from the flush traversal.
	orphaned bool
	// everLoaded marks that the file completed at least one full load, so a
	// later SetDescendants call on it is a hot reload refresh.
	everLoaded bool
}

func (n *fileNode) pendingCommandCount() int {
	count := 0
	for _, c := range n.commands {
		if c.pending {
			count++
		}
	}
	return count
}

// Appliers resolves a command type to its apply callback. Implemented by the
// loadable registry.
type Appliers interface {
	CommandApplier(typeID domain.InternedString) (func(payload any), bool)
}

// Buffer is the command ordering engine. It is not safe for concurrent use;
// the host drives it from a single scheduling loop.
type Buffer struct {
	log ports.Logger

	root  domain.InternedString
	files map[domain.InternedString]*fileNode

	// cursor is the traversal point: the earliest file in tree order that
	// may still hold unapplied commands. hasCursor false means the whole
	// tree is known to be flushed.
	cursor    domain.InternedString
	hasCursor bool

	pendingFiles    int
	totalFiles      int
	pendingCommands int

	hotReload bool
	clock     clockwork.Clock
	grace     time.Duration
	// refreshed latches once any file reloads after its first full load.
	// From then on, flushing additionally waits for all in-flight loads.
	refreshed   bool
	lockedUntil time.Time

	maxDepth int

	// scratch buffers reused across walks.
	stack      []treewalk.Frame
	chainA     []domain.InternedString
	chainB     []domain.InternedString
	childSeen  map[domain.InternedString]struct{}
	childOrder []domain.InternedString
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithHotReload enables the hot reload paths: orphaning grace periods and the
// reload settling guard. The clock is injectable for tests.
func WithHotReload(clock clockwork.Clock) Option {
	return func(b *Buffer) {
		b.hotReload = true
		b.clock = clock
	}
}

// WithGracePeriod overrides the orphaning grace period.
func WithGracePeriod(d time.Duration) Option {
	return func(b *Buffer) {
		b.grace = d
	}
}

// WithMaxDepth overrides the traversal depth bound.
func WithMaxDepth(depth int) Option {
	return func(b *Buffer) {
		b.maxDepth = depth
	}
}

// New creates an empty Buffer holding only the synthetic root.
func New(log ports.Logger, opts ...Option) *Buffer {
	b := &Buffer{
		log:       log,
		root:      domain.NewInternedString(rootFileName),
		files:     make(map[domain.InternedString]*fileNode),
		grace:     DefaultGracePeriod,
		maxDepth:  treewalk.DefaultMaxDepth,
		childSeen: make(map[domain.InternedString]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.files[b.root] = &fileNode{
		status: StatusLoaded,
		parent: parentLink{kind: parentUnclaimed},
	}
	return b
}

// Prepare registers a file as expected but unloaded. Idempotent. The file
// stays outside the live tree (and the counters) until a manifest or
// AddRootFile claims it.
func (b *Buffer) Prepare(file domain.InternedString) {
	if _, ok := b.files[file]; ok {
		return
	}
	b.files[file] = &fileNode{
		status:   StatusPending,
		parent:   parentLink{kind: parentUnclaimed},
		orphaned: true,
	}
}

// AddRootFile attaches a file directly under the synthetic root, making it
// one of the application's explicitly loaded roots. Idempotent.
func (b *Buffer) AddRootFile(file domain.InternedString) {
	b.Prepare(file)
	root := b.files[b.root]

	node := b.files[file]
	if node.parent.kind == parentFile && node.parent.file == b.root {
		return
	}
	if node.parent.kind == parentFile {
		b.repairParent(file, node.parent.file)
	}

	root.descendants = append(root.descendants, file)
	node.parent = parentLink{kind: parentFile, file: b.root}
	b.setSubtreeOrphaned(file, false)
	b.moveCursorBack(file)
}

// SetDescendants reconciles a file's manifest-declared children once its
// manifest section is parsed. New children are created pending, vanished
// children are orphaned with their whole subtree, and children claimed by
// another parent are repaired with a warning. The file transitions to
// AwaitingCommands.
func (b *Buffer) SetDescendants(file domain.InternedString, children []domain.InternedString) {
	node, ok := b.files[file]
	if !ok {
		b.log.Error(zerr.With(zerr.With(domain.ErrUnknownFile, "op", "SetDescendants"), "file", file.String()))
		return
	}

	if node.status == StatusLoaded {
		if node.everLoaded && b.hotReload {
			b.refreshed = true
		}
		if !node.orphaned {
			b.pendingFiles++
		}
	}
	node.status = StatusAwaitingCommands

	// Dedupe while preserving declaration order; the manifest order is the
	// intended application order of the children.
	clear(b.childSeen)
	b.childOrder = b.childOrder[:0]
	for _, child := range children {
		if child == file || child == b.root {
			b.log.Warn(fmt.Sprintf("file %q imports itself; entry ignored", file.String()))
			continue
		}
		if _, dup := b.childSeen[child]; dup {
			b.log.Warn(fmt.Sprintf("file %q declares duplicate manifest entry %q; entry ignored", file.String(), child.String()))
			continue
		}
		b.childSeen[child] = struct{}{}
		b.childOrder = append(b.childOrder, child)
	}

	for _, child := range b.childOrder {
		existing, known := b.files[child]
		if !known {
			b.files[child] = &fileNode{
				status:   StatusPending,
				parent:   parentLink{kind: parentFile, file: file},
				orphaned: true,
			}
			b.setSubtreeOrphaned(child, node.orphaned)
			continue
		}

		switch existing.parent.kind {
		case parentFile:
			if existing.parent.file == file {
				// Already ours.
			} else {
				b.log.Warn(fmt.Sprintf(
					"file %q is declared by both %q and %q; reparenting under %q",
					child.String(), existing.parent.file.String(), file.String(), file.String(),
				))
				b.repairParent(child, existing.parent.file)
				existing.parent = parentLink{kind: parentFile, file: file}
			}
		case parentUnclaimed, parentOrphan:
			existing.parent = parentLink{kind: parentFile, file: file}
		}
		b.setSubtreeOrphaned(child, node.orphaned)
	}

	// Children present before but absent now are orphaned with their
	// subtrees. Their nodes are kept so a later reattach restores them.
	for _, old := range node.descendants {
		if _, kept := b.childSeen[old]; kept {
			continue
		}
		child, known := b.files[old]
		if !known {
			continue
		}
		if child.parent.kind == parentFile && child.parent.file != file {
			// Already reparented elsewhere; not ours to orphan.
			continue
		}
		child.parent = parentLink{kind: parentOrphan}
		b.setSubtreeOrphaned(old, true)
		b.armTimeLock()
	}

	node.descendants = append(node.descendants[:0:0], b.childOrder...)
}

// SetCommands replaces a file's command cache with the freshly extracted
// list, diffing by content hash so unchanged commands stay non-pending. The
// file transitions to Loaded. Calling this on a file that is not awaiting
// commands is logged and ignored.
func (b *Buffer) SetCommands(file domain.InternedString, values []domain.ErasedValue) {
	node, ok := b.files[file]
	if !ok {
		b.log.Error(zerr.With(zerr.With(domain.ErrUnknownFile, "op", "SetCommands"), "file", file.String()))
		return
	}
	if node.status != StatusAwaitingCommands {
		b.log.Error(zerr.With(zerr.With(
			domain.ErrNotAwaitingCommands,
			"file", file.String()),
			"status", node.status.String(),
		))
		return
	}

	fresh := make([]cachedCommand, 0, len(values))
	anyPending := false
	clear(b.childSeen)
	for _, v := range values {
		if _, dup := b.childSeen[v.Type]; dup {
			b.log.Warn(fmt.Sprintf("file %q declares command type %q twice; entry ignored", file.String(), v.Type.String()))
			continue
		}
		b.childSeen[v.Type] = struct{}{}

		if prev, found := b.cachedCommand(node, v.Type); found && prev.value.Equals(v) {
			// Unchanged: keep the cached entry, including an unflushed
			// pending flag from an earlier cycle.
			fresh = append(fresh, *prev)
			anyPending = anyPending || prev.pending
			continue
		}
		fresh = append(fresh, cachedCommand{value: v, pending: true})
		anyPending = true
		if !node.orphaned {
			b.pendingCommands++
		}
	}

	// Command types that vanished from the file are dropped; a pending one
	// leaves the counter with it.
	for _, prev := range node.commands {
		if _, kept := b.childSeen[prev.value.Type]; kept {
			continue
		}
		if prev.pending && !node.orphaned {
			b.pendingCommands--
		}
	}

	node.commands = fresh
	node.status = StatusLoaded
	node.everLoaded = true
	if !node.orphaned {
		b.pendingFiles--
		if anyPending {
			b.moveCursorBack(file)
		}
	}
}

func (b *Buffer) cachedCommand(node *fileNode, typeID domain.InternedString) (*cachedCommand, bool) {
	for i := range node.commands {
		if node.commands[i].value.Type == typeID {
			return &node.commands[i], true
		}
	}
	return nil, false
}

// ApplyPending flushes still-pending commands to the live system in global
// tree order: a file's own commands before any of its descendants', and
// descendants in declared order. The flush stops at the first file that is
// not fully loaded; that file becomes the new traversal point.
func (b *Buffer) ApplyPending(appliers Appliers) error {
	if b.pendingCommands == 0 {
		return nil
	}
	if b.hotReload {
		if b.clock.Now().Before(b.lockedUntil) {
			return nil
		}
		if b.refreshed && b.pendingFiles > 0 {
			return nil
		}
	}

	stack, err := b.seedStack()
	if err != nil {
		return err
	}

	stopped := false
	stack, err = treewalk.Resume(stack, treewalk.Callbacks{
		Children: b.childrenOf,
		Enter: func(id domain.InternedString) treewalk.Action {
			if id == b.root {
				return treewalk.Descend
			}
			node, known := b.files[id]
			if !known {
				b.log.Error(zerr.With(zerr.With(domain.ErrUnknownFile, "op", "ApplyPending"), "file", id.String()))
				return treewalk.SkipNode
			}
			if node.orphaned {
				return treewalk.SkipNode
			}
			if node.status != StatusLoaded {
				b.cursor = id
				b.hasCursor = true
				stopped = true
				return treewalk.Stop
			}
			b.emitCommands(id, node, appliers)
			return treewalk.Descend
		},
	}, b.maxDepth)
	b.stack = stack[:0]
	if err != nil {
		// Likely a manifest loop; keep the traversal point so the flush
		// retries from the same place next tick.
		return err
	}

	if !stopped {
		b.hasCursor = false
	}
	return nil
}

// emitCommands drains one file's pending commands completely before the walk
// moves on, so two files' commands never interleave.
func (b *Buffer) emitCommands(file domain.InternedString, node *fileNode, appliers Appliers) {
	for i := range node.commands {
		cmd := &node.commands[i]
		if !cmd.pending {
			continue
		}
		cmd.pending = false
		b.pendingCommands--

		apply, registered := appliers.CommandApplier(cmd.value.Type)
		if !registered {
			b.log.Warn(fmt.Sprintf(
				"no applier registered for command type %q in file %q; command dropped",
				cmd.value.Type.String(), file.String(),
			))
			continue
		}
		apply(cmd.value.Payload)
	}
}

func (b *Buffer) childrenOf(id domain.InternedString) []domain.InternedString {
	node, ok := b.files[id]
	if !ok {
		return nil
	}
	return node.descendants
}

// seedStack rebuilds the explicit walk stack positioned at the traversal
// point, with every ancestor frame marked entered so the walk resumes
// mid-tree instead of starting over.
func (b *Buffer) seedStack() ([]treewalk.Frame, error) {
	stack := b.stack[:0]

	if !b.hasCursor || b.cursor == b.root {
		return append(stack, treewalk.NewFrame([]domain.InternedString{b.root}, 0, false)), nil
	}

	chain, ok := b.ancestorChain(b.cursor, b.chainA[:0])
	b.chainA = chain[:0]
	if !ok {
		// The cursor's branch detached from the root; restart from the top.
		// Already-flushed files are skipped cheaply because their commands
		// are no longer pending.
		b.cursor = b.root
		return append(stack, treewalk.NewFrame([]domain.InternedString{b.root}, 0, false)), nil
	}

	stack = append(stack, treewalk.NewFrame([]domain.InternedString{b.root}, 0, true))
	for i := 1; i < len(chain); i++ {
		parent := b.files[chain[i-1]]
		idx := siblingIndex(parent.descendants, chain[i])
		if idx < 0 {
			b.cursor = b.root
			return append(stack[:0], treewalk.NewFrame([]domain.InternedString{b.root}, 0, false)), nil
		}
		stack = append(stack, treewalk.NewFrame(parent.descendants, idx, i < len(chain)-1))
	}
	return stack, nil
}

// moveCursorBack moves the traversal point to file if file precedes the
// current point in tree order. Moving backward is always safe; it only means
// re-walking files whose commands are already non-pending.
func (b *Buffer) moveCursorBack(file domain.InternedString) {
	if !b.hasCursor {
		b.cursor = file
		b.hasCursor = true
		return
	}
	if b.cursor == file {
		return
	}
	if b.isBefore(file, b.cursor) {
		b.cursor = file
	}
}

// isBefore reports whether a precedes z in a pre-order walk of the intended
// tree. Falls back to moving the cursor all the way to the root when either
// ancestor chain cannot be built.
func (b *Buffer) isBefore(a, z domain.InternedString) bool {
	chainA, okA := b.ancestorChain(a, b.chainA[:0])
	b.chainA = chainA
	if !okA {
		b.cursor = b.root
		return false
	}
	chainZ, okZ := b.ancestorChain(z, b.chainB[:0])
	b.chainB = chainZ
	if !okZ {
		b.cursor = b.root
		return false
	}

	limit := min(len(chainA), len(chainZ))
	for i := 1; i < limit; i++ {
		if chainA[i] == chainZ[i] {
			continue
		}
		parent := b.files[chainA[i-1]]
		idxA := siblingIndex(parent.descendants, chainA[i])
		idxZ := siblingIndex(parent.descendants, chainZ[i])
		if idxA < 0 || idxZ < 0 {
			b.cursor = b.root
			return false
		}
		return idxA < idxZ
	}
	// One chain is a prefix of the other: the ancestor comes first.
	return len(chainA) < len(chainZ)
}

// ancestorChain builds the root-to-file parent chain into buf. Returns false
// if the chain does not reach the root or exceeds the depth bound.
func (b *Buffer) ancestorChain(file domain.InternedString, buf []domain.InternedString) ([]domain.InternedString, bool) {
	buf = append(buf, file)
	current := file
	for range b.maxDepth {
		if current == b.root {
			// Reverse into root-first order.
			for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
				buf[i], buf[j] = buf[j], buf[i]
			}
			return buf, true
		}
		node, ok := b.files[current]
		if !ok || node.parent.kind != parentFile {
			return buf, false
		}
		current = node.parent.file
		buf = append(buf, current)
	}
	return buf, false
}

func siblingIndex(siblings []domain.InternedString, id domain.InternedString) int {
	for i, s := range siblings {
		if s == id {
			return i
		}
	}
	return -1
}

// repairParent removes child from oldParent's descendant list after a
// duplicate manifest entry or a reparent.
func (b *Buffer) repairParent(child, oldParent domain.InternedString) {
	parent, ok := b.files[oldParent]
	if !ok {
		return
	}
	for i, d := range parent.descendants {
		if d == child {
			parent.descendants = append(parent.descendants[:i:i], parent.descendants[i+1:]...)
			return
		}
	}
}

// setSubtreeOrphaned flips the orphan flag for a whole subtree via the
// pre-order walker and adjusts the counters for every node whose flag
// actually changed. Orphaning arms the time lock; reattaching moves the
// traversal point back to the subtree root.
func (b *Buffer) setSubtreeOrphaned(file domain.InternedString, orphaned bool) {
	stack, err := treewalk.PreOrder(b.stack, []domain.InternedString{file}, b.childrenOf,
		func(id domain.InternedString) treewalk.Action {
			node, ok := b.files[id]
			if !ok {
				return treewalk.SkipNode
			}
			if node.orphaned == orphaned {
				return treewalk.SkipNode
			}
			node.orphaned = orphaned
			pending := node.pendingCommandCount()
			if orphaned {
				b.totalFiles--
				b.pendingCommands -= pending
				if node.status != StatusLoaded {
					b.pendingFiles--
				}
			} else {
				b.totalFiles++
				b.pendingCommands += pending
				if node.status != StatusLoaded {
					b.pendingFiles++
				}
			}
			return treewalk.Descend
		}, b.maxDepth)
	b.stack = stack[:0]
	if err != nil {
		b.log.Error(zerr.With(zerr.With(err, "op", "setSubtreeOrphaned"), "file", file.String()))
	}
	if !orphaned {
		b.moveCursorBack(file)
	}
}

func (b *Buffer) armTimeLock() {
	if !b.hotReload {
		return
	}
	b.lockedUntil = b.clock.Now().Add(b.grace)
}

// IsBlocked reports whether downstream consumers (scene node initialization)
// must hold off: commands are still pending somewhere, a reload is settling,
// or the orphaning grace period is active.
func (b *Buffer) IsBlocked() bool {
	if b.pendingCommands > 0 {
		return true
	}
	if !b.hotReload {
		return false
	}
	if b.clock.Now().Before(b.lockedUntil) {
		return true
	}
	return b.refreshed && b.pendingFiles > 0
}

// LoadingProgress returns the pending and total live file counts for
// progress reporting. The synthetic root is not counted.
func (b *Buffer) LoadingProgress() (pending, total int) {
	return b.pendingFiles, b.totalFiles
}

// PendingCommands exposes the global pending-command counter, mainly for
// tests and diagnostics.
func (b *Buffer) PendingCommands() int {
	return b.pendingCommands
}

// Status returns a file's lifecycle status.
func (b *Buffer) Status(file domain.InternedString) (Status, bool) {
	node, ok := b.files[file]
	if !ok {
		return 0, false
	}
	return node.status, true
}

// IsOrphaned reports whether a file is currently excluded from the live tree.
func (b *Buffer) IsOrphaned(file domain.InternedString) bool {
	node, ok := b.files[file]
	return ok && node.orphaned
}
