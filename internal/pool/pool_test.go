package pool

import (
	"sync"
	"testing"
)

func TestEmplaceAndCount(t *testing.T) {
	p := New[int](2)
	for i := 0; i < 5; i++ {
		ref := p.Emplace(func() int { return i })
		defer ref.Release()
	}
	if got := p.Count(); got != 5 {
		t.Fatalf("Count() = %d, want 5", got)
	}
}

func TestGrowthAcrossLinks(t *testing.T) {
	p := New[int](2)
	refs := make([]interface {
		Release()
	}, 0, 10)
	for i := 0; i < 10; i++ {
		r := p.Emplace(func() int { return i })
		refs = append(refs, r)
	}
	if got := p.Count(); got != 10 {
		t.Fatalf("Count() = %d, want 10 after growing past the initial capacity", got)
	}
	for _, r := range refs {
		r.Release()
	}
	if got := p.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0 after releasing every element", got)
	}
}

func TestIterationSkipsReleasedSlots(t *testing.T) {
	p := New[string](4)
	a := p.Emplace(func() string { return "a" })
	b := p.Emplace(func() string { return "b" })
	a.Release()

	seen := map[string]bool{}
	p.Each(func(v *string) bool {
		seen[*v] = true
		return true
	})
	if seen["a"] {
		t.Fatal("a released element should not be visited")
	}
	if !seen["b"] {
		t.Fatal("a live element should be visited")
	}
	b.Release()
}

func TestIteratorHoldsStrongRefAcrossConcurrentRelease(t *testing.T) {
	p := New[int](4)
	ref := p.Emplace(func() int { return 99 })

	it := p.Iterate()
	v, ok := it.Next()
	if !ok {
		t.Fatal("expected a live element")
	}
	if *v != 99 {
		t.Fatalf("got %d, want 99", *v)
	}
	// Release concurrently with the iterator holding its own strong ref;
	// the value the iterator already captured must remain valid until
	// the iterator itself advances or closes (spec.md §4.H: "a subscription
	// that was just destroyed while an iterator holds a strong reference
	// to it is still invoked").
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ref.Release()
	}()
	wg.Wait()
	if *v != 99 {
		t.Fatalf("iterator's captured value changed after concurrent release: got %d", *v)
	}
	it.Close()
}
