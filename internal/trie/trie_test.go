package trie

import (
	"sync"
	"testing"
)

type payload struct {
	node *Node[payload]
}

func (p *payload) Init(n *Node[payload]) { p.node = n }

var _ Initializable[payload] = (*payload)(nil)

func TestGetChildCreatesAndReuses(t *testing.T) {
	root := NewRoot[payload]()
	a1 := root.GetChild("a")
	a2 := root.GetChild("a")
	if a1 != a2 {
		t.Fatal("GetChild should return the same node for the same id")
	}
	if a1.Payload().node != a1 {
		t.Fatal("Init should have wired the payload's back-reference to its own node")
	}
}

func TestTryChildDoesNotCreate(t *testing.T) {
	root := NewRoot[payload]()
	if _, ok := root.TryChild("missing"); ok {
		t.Fatal("TryChild should not find a node that was never created")
	}
	root.GetChild("present")
	if _, ok := root.TryChild("present"); !ok {
		t.Fatal("TryChild should find a node created via GetChild")
	}
}

func TestPathReconstructsFromRoot(t *testing.T) {
	root := NewRoot[payload]()
	n := root.Get("a/b/c")
	if got, want := n.Path(), "a/b/c"; got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
	if got := root.Path(); got != "" {
		t.Fatalf("root Path() = %q, want empty", got)
	}
}

func TestFindFailsOnMissingSegment(t *testing.T) {
	root := NewRoot[payload]()
	root.Get("a/b")
	if _, ok := root.Find("a/b"); !ok {
		t.Fatal("Find should succeed for an existing path")
	}
	if _, ok := root.Find("a/b/c"); ok {
		t.Fatal("Find should fail when a trailing segment is missing")
	}
}

func TestNearestReturnsResidual(t *testing.T) {
	root := NewRoot[payload]()
	root.Get("a/b")
	node, residual := root.Nearest("a/b/c/d")
	if got, want := node.Path(), "a/b"; got != want {
		t.Fatalf("Nearest node path = %q, want %q", got, want)
	}
	if got, want := residual, "c/d"; got != want {
		t.Fatalf("Nearest residual = %q, want %q", got, want)
	}
}

func TestPinUnpinCascadesAndPrunes(t *testing.T) {
	root := NewRoot[payload]()
	n := root.Get("a/b/c")
	n.Pin()
	if !n.Pinned() {
		t.Fatal("n should be pinned after Pin")
	}
	if !root.GetChild("a").Pinned() {
		t.Fatal("Pin should cascade to ancestors")
	}
	n.Unpin()
	if n.Pinned() {
		t.Fatal("n should not be pinned after matching Unpin")
	}
	if _, ok := root.TryChild("a"); ok {
		t.Fatal("the whole unpinned chain should be pruned back to the root")
	}
}

func TestPinKeepsAncestorAliveWhileSiblingPinned(t *testing.T) {
	root := NewRoot[payload]()
	sibling := root.Get("a/x")
	target := root.Get("a/y")
	sibling.Pin()
	target.Pin()
	target.Unpin()
	if _, ok := root.TryChild("a"); !ok {
		t.Fatal("ancestor a should remain reachable while sibling x is still pinned")
	}
	if _, ok := root.GetChild("a").TryChild("y"); ok {
		t.Fatal("y should have been pruned once its own pin dropped to zero")
	}
	sibling.Unpin()
}

func TestMakeLinkInstallsOnlyIfAbsent(t *testing.T) {
	root := NewRoot[payload]()
	target := root.Get("target")
	if !root.MakeLink("alias", target) {
		t.Fatal("MakeLink should install a link for an unused id")
	}
	other := root.Get("other")
	if root.MakeLink("alias", other) {
		t.Fatal("MakeLink should refuse to overwrite an existing child")
	}
	aliased, ok := root.TryChild("alias")
	if !ok || aliased != target {
		t.Fatal("alias should still resolve to the originally linked node")
	}
}

func TestConcurrentGetChildConverges(t *testing.T) {
	root := NewRoot[payload]()
	var wg sync.WaitGroup
	results := make([]*Node[payload], 64)
	wg.Add(len(results))
	for i := range results {
		i := i
		go func() {
			defer wg.Done()
			results[i] = root.GetChild("shared")
		}()
	}
	wg.Wait()
	for _, r := range results {
		if r != results[0] {
			t.Fatal("concurrent GetChild calls for the same id should converge on one node")
		}
	}
}
