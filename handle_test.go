package pleb_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/plebsys/pleb"
)

// uniquePath namespaces every test's topics under the test's own name
// so that different tests never collide in the single process-wide
// root topic (spec.md §9: there is no reset API).
func uniquePath(t *testing.T, suffix string) string {
	t.Helper()
	return fmt.Sprintf("%s/%s", t.Name(), suffix)
}

func TestEagerCreatesImmediately(t *testing.T) {
	h := pleb.Eager(uniquePath(t, "a/b"))
	if h.IsLazy() {
		t.Fatal("Eager should return a non-lazy handle")
	}
}

func TestLazyAnchorsAtNearestExisting(t *testing.T) {
	base := uniquePath(t, "a")
	pleb.Eager(base + "/b") // realize a/b eagerly first

	h := pleb.Lazy(base + "/b/c/d")
	if !h.IsLazy() {
		t.Fatal("Lazy should return a lazy handle")
	}
	resolved := h.Resolve()
	if got, want := resolved.Path(), base+"/b"; got != want {
		t.Fatalf("Resolve anchored at %q, want %q", got, want)
	}
}

func TestRealizeCreatesResidual(t *testing.T) {
	base := uniquePath(t, "x")
	h := pleb.Lazy(base + "/y/z")
	realized := h.Realize()
	if realized.IsLazy() == false {
		t.Fatal("Realize should keep the lazy flavor, only collapse the residual")
	}
	if got, want := realized.Path(), base+"/y/z"; got != want {
		t.Fatalf("Realize path = %q, want %q", got, want)
	}
}

func TestEqualIgnoresFlavor(t *testing.T) {
	base := uniquePath(t, "p")
	eager := pleb.Eager(base + "/q")
	lazy := pleb.Lazy(base + "/q")
	if !eager.Equal(lazy) {
		t.Fatal("an eager and a lazy handle to the same canonical path should be Equal")
	}
}

func TestEagerParentOfRootIsNull(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("operating on the null eager handle should panic with ErrNullTopic")
		}
	}()
	null := pleb.Root().Parent()
	if !null.IsNull() {
		t.Fatal("Parent of the eager root should be the null handle")
	}
	_ = null.Path() // must panic
}

func TestLazyParentOfRootIsItself(t *testing.T) {
	root := pleb.Lazy("")
	if got := root.Parent(); !got.Equal(root) {
		t.Fatal("the lazy root's parent should be itself")
	}
}

func TestIsAncestorOf(t *testing.T) {
	base := uniquePath(t, "m")
	parent := pleb.Eager(base)
	child := pleb.Eager(base + "/n/o")
	if !parent.IsAncestorOf(child) {
		t.Fatal("parent should be an ancestor of child")
	}
	if child.IsAncestorOf(parent) {
		t.Fatal("child should not be an ancestor of parent")
	}
	if !parent.IsAncestorOf(parent) {
		t.Fatal("a path is considered its own ancestor")
	}
}

func TestConcurrentChildCreationConverges(t *testing.T) {
	base := uniquePath(t, "shared")
	var wg sync.WaitGroup
	paths := make([]string, 32)
	wg.Add(len(paths))
	for i := range paths {
		i := i
		go func() {
			defer wg.Done()
			paths[i] = pleb.Eager(base).Child("leaf").Path()
		}()
	}
	wg.Wait()
	for _, p := range paths {
		if p != paths[0] {
			t.Fatal("concurrent Child creation for the same segment should converge on one path")
		}
	}
}
