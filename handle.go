package pleb

import (
	"fmt"

	"github.com/plebsys/pleb/internal/pathutil"
	"github.com/plebsys/pleb/internal/trie"
)

// Handle is a topic handle (spec.md §3, §4.F): a user-facing reference
// to a node plus, for the lazy flavor, an unresolved tail path.
//
// Eager handles resolve at construction, forcing node creation, and
// hold one strong reference to the target node. Lazy handles hold a
// reference to the nearest currently-existing ancestor and a residual
// unresolved suffix; Resolve advances that anchor as far as existing
// children allow, and Realize creates whatever nodes the residual
// still names. Both flavors share this one Go type and the same
// method set — the zero-value distinction (lazy bool) picks the
// behavior spec.md §4.F assigns to each.
type Handle struct {
	node     *trie.Node[topicPayload]
	residual string
	lazy     bool
}

func assertLive(n *trie.Node[topicPayload]) {
	if n == nil {
		panic(fmt.Errorf("%w: operation on a null eager topic handle", ErrNullTopic))
	}
}

// IsNull reports whether h is the null eager handle (the result of
// calling Parent on an eager handle to the root).
func (h Handle) IsNull() bool { return h.node == nil }

// IsLazy reports whether h is a lazy handle.
func (h Handle) IsLazy() bool { return h.lazy }

// Child returns a handle to the named child segment. An eager handle
// forces creation immediately; a lazy handle extends its residual
// (or, if the exact child already exists, advances its anchor) without
// forcing creation of anything new.
func (h Handle) Child(segment string) Handle {
	assertLive(h.node)
	if !h.lazy {
		return Handle{node: h.node.GetChild(segment)}
	}
	if h.residual == "" {
		if c, ok := h.node.TryChild(segment); ok {
			return Handle{node: c, lazy: true}
		}
		return Handle{node: h.node, residual: segment, lazy: true}
	}
	segs := append(pathutil.Split(h.residual), segment)
	return Handle{node: h.node, residual: pathutil.Join(segs), lazy: true}
}

// Parent returns a handle to h's parent. For the eager flavor, the
// root's parent is the null handle. For the lazy flavor, the root's
// parent is the root itself (spec.md §4.F).
func (h Handle) Parent() Handle {
	assertLive(h.node)
	if !h.lazy {
		if h.node.IsRoot() {
			return Handle{}
		}
		return Handle{node: h.node.Parent()}
	}
	if h.residual != "" {
		segs := pathutil.Split(h.residual)
		if len(segs) > 1 {
			return Handle{node: h.node, residual: pathutil.Join(segs[:len(segs)-1]), lazy: true}
		}
		return Handle{node: h.node, lazy: true}
	}
	if h.node.IsRoot() {
		return h
	}
	return Handle{node: h.node.Parent(), lazy: true}
}

// Resolve advances a lazy handle's anchor as far as currently-existing
// children allow. It is a no-op for eager handles and for a lazy
// handle with no residual.
func (h Handle) Resolve() Handle {
	if !h.lazy || h.residual == "" {
		return h
	}
	n, residual := h.node.Nearest(h.residual)
	return Handle{node: n, residual: residual, lazy: true}
}

// Realize creates intermediate nodes for a lazy handle's residual tail
// and collapses the residual to empty. It is a no-op for eager
// handles.
func (h Handle) Realize() Handle {
	if !h.lazy || h.residual == "" {
		return h
	}
	n := h.node.Get(h.residual)
	return Handle{node: n, lazy: true}
}

// Path returns the canonical path (no redundant slashes).
func (h Handle) Path() string {
	assertLive(h.node)
	base := h.node.Path()
	if h.residual == "" {
		return base
	}
	if base == "" {
		return h.residual
	}
	return base + "/" + h.residual
}

// ID returns the terminal segment of Path().
func (h Handle) ID() string {
	segs := pathutil.Split(h.Path())
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Equal reports whether h and other name the same canonical path,
// regardless of flavor (spec.md §3, invariant P4).
func (h Handle) Equal(other Handle) bool {
	return h.Path() == other.Path()
}

// IsAncestorOf reports whether h's canonical path is a (non-strict)
// prefix of other's.
func (h Handle) IsAncestorOf(other Handle) bool {
	return pathutil.IsAncestorSegs(pathutil.Split(h.Path()), pathutil.Split(other.Path()))
}

// IsDescendantOf reports whether other's canonical path is a
// (non-strict) prefix of h's.
func (h Handle) IsDescendantOf(other Handle) bool {
	return other.IsAncestorOf(h)
}

// resolvedNode returns the node this handle currently names, forcing
// creation for lazy handles with a residual (equivalent to Realize
// then reading the node) — used internally by dispatch and install
// paths that must land on a concrete node.
func (h Handle) resolvedNode() *trie.Node[topicPayload] {
	assertLive(h.node)
	return h.Realize().node
}
