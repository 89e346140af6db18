// Package trie implements the cooperative trie: a path-addressed tree
// whose nodes exist only while they hold live payloads or live
// descendants, with concurrent child insertion.
//
// A Node pairs the trie structure with a payload of type P supplied by
// the caller (internal/slot.Slot or internal/pool.Pool in PLEB's own
// topic payload, for example). The child table is a plain Go map
// guarded by a reader-writer lock — spec.md §4.D explicitly flags this
// as provisional pending a lock-free split-ordered hashmap; structural
// mutation (child creation, removal) is rare relative to lookups, so
// the lock is acceptable for now.
//
// Lifetime is modeled with an explicit anchor count rather than true
// weak pointers: Go's tracing garbage collector does not need a
// hand-rolled weak reference to reclaim memory (design note in
// spec.md §9), but PLEB still needs to know *when a node should stop
// being reachable from its parent* so that find/nearest/get behave
// correctly (invariant I3). Pin/Unpin is that bookkeeping: a node
// with a live service, a live subscription, or a live (pinned) child
// is pinned; a node whose anchor count drops to zero is removed from
// its parent's child table and the parent's own anchor from this
// child is released, cascading toward the root. External topic
// handles hold a direct Go pointer to their target node and need no
// anchor of their own — the node they reference remains a valid,
// dereferenceable Go object for as long as the handle exists, even if
// it has been pruned from the table (spec.md §3: "handles may outlive
// their target's logical dissolution").
package trie

import (
	"strings"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/plebsys/pleb/internal/pathutil"
)

// Node is one node of the cooperative trie.
type Node[P any] struct {
	id      string
	parent  *Node[P]
	payload P

	mu       sync.RWMutex
	children map[string]*Node[P]

	anchors int64 // guarded by amu; see Pin/Unpin
	amu     sync.Mutex
}

// Initializable is implemented by payload types that need a back
// reference to their owning node (spec.md §4.E: "a back-reference
// (shared) to its trie node so that services and subscriptions can
// introspect their host"). Init is called exactly once, right after
// the node (and its zero-value payload) is constructed.
type Initializable[P any] interface {
	Init(n *Node[P])
}

func initPayload[P any](n *Node[P]) {
	if init, ok := any(&n.payload).(Initializable[P]); ok {
		init.Init(n)
	}
}

// NewRoot returns a fresh, unparented root node.
func NewRoot[P any]() *Node[P] {
	n := &Node[P]{children: make(map[string]*Node[P])}
	initPayload(n)
	return n
}

// ID returns the node's own segment identifier ("" for the root).
func (n *Node[P]) ID() string { return n.id }

// Parent returns the node's parent, or nil if n is the root.
func (n *Node[P]) Parent() *Node[P] { return n.parent }

// IsRoot reports whether n has no parent.
func (n *Node[P]) IsRoot() bool { return n.parent == nil }

// Payload returns a pointer to the node's payload value.
func (n *Node[P]) Payload() *P { return &n.payload }

// Path reconstructs the canonical path from the root to n.
func (n *Node[P]) Path() string {
	if n.parent == nil {
		return ""
	}
	var segs []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		segs = append(segs, cur.id)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/")
}

// Pin records one more reason this node (and transitively its
// ancestors) must remain reachable from the root. Call it whenever a
// service is installed, a subscription is added, or a child node
// transitions from unpinned to pinned.
func (n *Node[P]) Pin() {
	n.amu.Lock()
	n.anchors++
	becamePinned := n.anchors == 1
	n.amu.Unlock()
	if becamePinned && n.parent != nil {
		n.parent.Pin()
	}
}

// Unpin releases one reason this node must remain reachable. When the
// anchor count drops to zero, the node is removed from its parent's
// child table and the parent's corresponding anchor is released,
// cascading toward the root.
func (n *Node[P]) Unpin() {
	n.amu.Lock()
	n.anchors--
	becameUnpinned := n.anchors == 0
	n.amu.Unlock()
	if becameUnpinned && n.parent != nil {
		n.parent.removeChild(n.id, n)
		n.parent.Unpin()
	}
}

// Pinned reports whether the node currently has a nonzero anchor count.
func (n *Node[P]) Pinned() bool {
	n.amu.Lock()
	defer n.amu.Unlock()
	return n.anchors > 0
}

func (n *Node[P]) removeChild(id string, expect *Node[P]) {
	n.mu.Lock()
	if n.children[id] == expect {
		delete(n.children, id)
	}
	n.mu.Unlock()
}

// TryChild returns the child with the given segment id if it
// currently exists, without creating it.
func (n *Node[P]) TryChild(id string) (*Node[P], bool) {
	n.mu.RLock()
	c, ok := n.children[id]
	n.mu.RUnlock()
	return c, ok
}

// GetChild returns the child with the given segment id, creating it
// if absent. Creation first consults a shared-read section; on miss
// it takes the writer section, re-checks, and constructs — so
// concurrent GetChild calls for the same id race-free to a single
// winner.
func (n *Node[P]) GetChild(id string) *Node[P] {
	if c, ok := n.TryChild(id); ok {
		return c
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.children[id]; ok {
		return c
	}
	c := &Node[P]{id: id, parent: n, children: make(map[string]*Node[P])}
	initPayload(c)
	n.children[id] = c
	return c
}

// MakeLink installs target as the child identified by id, but only if
// that id is currently unused. It reports whether the link was
// installed. This aliases a subtree: subsequent lookups through id
// reach target directly, and target's lifetime is governed by
// whatever anchors it already has (the link itself contributes none).
func (n *Node[P]) MakeLink(id string, target *Node[P]) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.children[id]; exists {
		return false
	}
	n.children[id] = target
	return true
}

// Children returns a snapshot of the node's current children.
func (n *Node[P]) Children() []*Node[P] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return maps.Values(n.children)
}

// Find walks path one segment at a time via TryChild, never creating
// nodes. It returns false if any segment along the way is missing.
func (n *Node[P]) Find(path string) (*Node[P], bool) {
	cur := n
	for _, seg := range pathutil.Split(path) {
		c, ok := cur.TryChild(seg)
		if !ok {
			return nil, false
		}
		cur = c
	}
	return cur, true
}

// Nearest walks path as far as currently-existing children allow and
// returns the deepest existing ancestor (never nil — at worst n
// itself) along with the unresolved residual path.
func (n *Node[P]) Nearest(path string) (node *Node[P], residual string) {
	segs := pathutil.Split(path)
	cur := n
	i := 0
	for ; i < len(segs); i++ {
		c, ok := cur.TryChild(segs[i])
		if !ok {
			break
		}
		cur = c
	}
	return cur, pathutil.Join(segs[i:])
}

// Get walks path one segment at a time via GetChild, creating
// whatever nodes are missing, and always succeeds.
func (n *Node[P]) Get(path string) *Node[P] {
	cur := n
	for _, seg := range pathutil.Split(path) {
		cur = cur.GetChild(seg)
	}
	return cur
}
