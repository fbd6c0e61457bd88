// Package treewalk provides explicit-stack traversal primitives over file
// trees. Walks never use language recursion, so stack usage is bounded by the
// configured depth limit regardless of tree shape, and a tree that exceeds
// the limit (usually a manifest import loop) is reported as an error instead
// of overflowing.
package treewalk

import (
	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultMaxDepth is the depth bound applied when a caller passes a
// non-positive limit. Scene trees deeper than this are assumed to contain a
// manifest import loop.
const DefaultMaxDepth = 100

// Action tells the walker how to proceed after entering a node.
type Action uint8

const (
	// Descend continues into the node's descendants.
	Descend Action = iota
	// SkipNode advances to the next sibling without descending; the node's
	// Exit callback is not invoked.
	SkipNode
	// Stop aborts the walk immediately.
	Stop
)

// Frame is one level of an explicit traversal stack: an ordered sibling list
// and a cursor into it. Sibling lists are shared with the caller and never
// mutated by the walker.
type Frame struct {
	siblings []domain.InternedString
	idx      int
	entered  bool
}

// NewFrame builds a frame positioned at siblings[idx]. entered marks whether
// the node at the cursor has already had its Enter callback; resumed walks
// use this to continue from the middle of a tree.
func NewFrame(siblings []domain.InternedString, idx int, entered bool) Frame {
	return Frame{siblings: siblings, idx: idx, entered: entered}
}

// Callbacks configures a walk. Children is required; Enter and Exit are
// optional.
type Callbacks struct {
	// Children returns a node's ordered descendant list.
	Children func(domain.InternedString) []domain.InternedString
	// Enter fires before a node's descendants are walked (pre-order
	// position) and decides how to proceed.
	Enter func(domain.InternedString) Action
	// Exit fires once all of a node's descendants have been fully walked.
	Exit func(domain.InternedString)
}

// Walk drives a traversal from the given roots. The stack slice is reused as
// scratch space and returned so callers can keep it between walks instead of
// reallocating. Returns domain.ErrTraversalDepthExceeded if the stack grows
// past maxDepth.
func Walk(
	stack []Frame,
	roots []domain.InternedString,
	cb Callbacks,
	maxDepth int,
) ([]Frame, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	stack = stack[:0]
	stack = append(stack, NewFrame(roots, 0, false))

	return Resume(stack, cb, maxDepth)
}

// Resume continues a walk from a pre-built stack. The deepest frame's cursor
// is the next node to process; ancestor frames must have entered set so the
// walker only fires their Exit callbacks on the way back out.
func Resume(stack []Frame, cb Callbacks, maxDepth int) ([]Frame, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		// Frame exhausted: pop, and complete the parent's current node.
		if top.idx >= len(top.siblings) {
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			parent := &stack[len(stack)-1]
			if cb.Exit != nil {
				cb.Exit(parent.siblings[parent.idx])
			}
			parent.idx++
			parent.entered = false
			continue
		}

		id := top.siblings[top.idx]

		if top.entered {
			// The node was entered on a previous iteration (or before a
			// resume) and its child frame has been popped; finish it.
			if cb.Exit != nil {
				cb.Exit(id)
			}
			top.idx++
			top.entered = false
			continue
		}

		action := Descend
		if cb.Enter != nil {
			action = cb.Enter(id)
		}

		switch action {
		case Stop:
			return stack, nil
		case SkipNode:
			top.idx++
			continue
		case Descend:
		}

		children := cb.Children(id)
		if len(children) == 0 {
			if cb.Exit != nil {
				cb.Exit(id)
			}
			top.idx++
			continue
		}

		if len(stack) >= maxDepth {
			return stack, zerr.With(zerr.With(
				domain.ErrTraversalDepthExceeded,
				"depth", len(stack),
			), "file", id.String())
		}
		top.entered = true
		stack = append(stack, NewFrame(children, 0, false))
	}

	return stack, nil
}

// PreOrder walks the tree visiting each node before its descendants. Used
// for cascading state changes like orphan-flag propagation.
func PreOrder(
	stack []Frame,
	roots []domain.InternedString,
	children func(domain.InternedString) []domain.InternedString,
	visit func(domain.InternedString) Action,
	maxDepth int,
) ([]Frame, error) {
	return Walk(stack, roots, Callbacks{Children: children, Enter: visit}, maxDepth)
}

// DescendantsFirst walks the tree visiting each node only after all of its
// descendants have been visited.
func DescendantsFirst(
	stack []Frame,
	roots []domain.InternedString,
	children func(domain.InternedString) []domain.InternedString,
	visit func(domain.InternedString),
	maxDepth int,
) ([]Frame, error) {
	return Walk(stack, roots, Callbacks{Children: children, Exit: visit}, maxDepth)
}
