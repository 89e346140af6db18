// Package pool implements the cooperative pool: a chain of fixed-size
// slot buffers with wait-free iteration and append-on-full growth.
package pool

import (
	"sync/atomic"

	"github.com/plebsys/pleb/internal/slot"
)

const defaultInitialCapacity = 4

type link[T any] struct {
	slots []*slot.Slot[T]
	next  atomic.Pointer[link[T]]
}

func newLink[T any](capacity int) *link[T] {
	l := &link[T]{slots: make([]*slot.Slot[T], capacity)}
	for i := range l.slots {
		l.slots[i] = slot.New[T]()
	}
	return l
}

// Pool is a growing chain of slot buffers. Capacity doubles per link.
type Pool[T any] struct {
	head        link[T] // embedded so the chain always has a first link
	initialized atomic.Bool
	initCap     int
}

// New returns an empty pool whose first chain link holds initialCap
// slots (a non-positive value falls back to a small default).
func New[T any](initialCap int) *Pool[T] {
	if initialCap <= 0 {
		initialCap = defaultInitialCapacity
	}
	p := &Pool[T]{initCap: initialCap}
	p.head.slots = make([]*slot.Slot[T], initialCap)
	for i := range p.head.slots {
		p.head.slots[i] = slot.New[T]()
	}
	return p
}

// Emplace constructs a new element via ctor and returns a strong
// reference to it, extending the chain if every existing slot is
// occupied or momentarily contended.
func (p *Pool[T]) Emplace(ctor func() T) *slot.Strong[T] {
	for {
		cap := p.initCap
		for l := &p.head; l != nil; l = l.next.Load() {
			for _, s := range l.slots {
				if ref, ok := s.TryEmplace(ctor); ok {
					return ref
				}
			}
			cap = len(l.slots)
			if l.next.Load() == nil {
				p.grow(l, cap)
			}
		}
	}
}

// grow appends a new link of double capacity after tail, via a single
// compare-and-swap; a losing concurrent caller simply drops its
// unpublished buffer (Go's GC reclaims it — there is no explicit free).
func (p *Pool[T]) grow(tail *link[T], tailCap int) {
	next := newLink[T](tailCap * 2)
	tail.next.CompareAndSwap(nil, next)
}

// Iterator walks live elements across the chain, yielding only slots
// whose Lock succeeds. Each yielded element is held by a strong
// reference until the iterator advances or is closed, so iteration is
// safe against concurrent removal elsewhere in the pool.
type Iterator[T any] struct {
	link *link[T]
	idx  int
	cur  *slot.Strong[T]
}

// Iterate returns a fresh iterator positioned before the first slot.
func (p *Pool[T]) Iterate() *Iterator[T] {
	return &Iterator[T]{link: &p.head}
}

// Next advances the iterator and reports whether a live element was
// found. The returned pointer is valid until the next call to Next or
// Close.
func (it *Iterator[T]) Next() (*T, bool) {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
	for it.link != nil {
		for it.idx < len(it.link.slots) {
			s := it.link.slots[it.idx]
			it.idx++
			if ref, ok := s.Lock(); ok {
				it.cur = ref
				return ref.Get(), true
			}
		}
		it.link = it.link.next.Load()
		it.idx = 0
	}
	return nil, false
}

// Close releases the strong reference held for the current element,
// if any. Safe to call multiple times.
func (it *Iterator[T]) Close() {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
}

// Each is a convenience wrapper running fn over every live element.
// Returning false from fn stops iteration early.
func (p *Pool[T]) Each(fn func(*T) bool) {
	it := p.Iterate()
	defer it.Close()
	for {
		v, ok := it.Next()
		if !ok {
			return
		}
		if !fn(v) {
			return
		}
	}
}

// Count returns the number of currently live elements. It is a
// snapshot, racy by nature like every other pool observation.
func (p *Pool[T]) Count() int {
	n := 0
	p.Each(func(*T) bool { n++; return true })
	return n
}
