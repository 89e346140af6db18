// Package slot implements the cooperative slot: storage for at most one
// value of type T, read under a guard.Guard and written only when no
// reader currently holds it.
//
// A Slot never blocks. Lock and TryEmplace either succeed immediately
// or report failure for the caller to retry or treat as benign
// contention. The weak reference returned by Weak always succeeds to
// construct but may fail to upgrade once the slot has been emptied.
package slot

import (
	"runtime"
	"sync/atomic"

	"github.com/plebsys/pleb/internal/guard"
)

// Slot is a storage cell for at most one value of type T.
type Slot[T any] struct {
	g      *guard.Guard
	value  T
	strong atomic.Int64 // 0 means empty; otherwise the live external refcount
}

// New returns an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{g: guard.NewOpen()}
}

// Strong is a strong reference to a slot's current value. It must be
// released exactly once with Release.
type Strong[T any] struct {
	s *Slot[T]
}

// Get returns a pointer to the referenced value. The pointer is only
// valid until Release is called.
func (r *Strong[T]) Get() *T { return &r.s.value }

// Release drops this strong reference. When the last strong reference
// to a slot's value is released, the value is cleared in place; the
// Slot itself is never freed (it lives for as long as its backing
// storage — see internal/pool — making the Weak below always safe to
// dereference).
func (r *Strong[T]) Release() {
	s := r.s
	if s.strong.Add(-1) != 0 {
		return
	}
	for {
		if s.strong.Load() != 0 {
			// Reinstalled by a concurrent TryEmplace; nothing to clear.
			return
		}
		if s.g.TryLock() {
			if s.strong.Load() == 0 {
				var zero T
				s.value = zero
			}
			s.g.Unlock()
			return
		}
		runtime.Gosched()
	}
}

// Weak is a weak reference to a slot. It is always safe to hold and
// copy; Lock attempts to upgrade it to a Strong reference.
type Weak[T any] struct {
	s *Slot[T]
}

// Lock attempts to upgrade a slot (or weak reference) to a strong
// reference. It succeeds only if the slot currently holds a live
// value and no writer holds the guard.
func (s *Slot[T]) Lock() (*Strong[T], bool) {
	if !s.g.Enter() {
		return nil, false
	}
	defer s.g.Leave()
	if s.strong.Load() == 0 {
		return nil, false
	}
	s.strong.Add(1)
	return &Strong[T]{s: s}, true
}

// Lock attempts to upgrade the weak reference the same way Slot.Lock does.
func (w Weak[T]) Lock() (*Strong[T], bool) { return w.s.Lock() }

// Weak returns a weak reference to the slot, valid regardless of
// whether the slot currently holds a value.
func (s *Slot[T]) Weak() Weak[T] { return Weak[T]{s: s} }

// Live reports whether the slot currently holds a value, without
// acquiring a strong reference. It is a snapshot, racy by nature.
func (s *Slot[T]) Live() bool { return s.strong.Load() != 0 }

// TryEmplace constructs a value in place via ctor, but only if the
// slot is currently empty and not contended by a concurrent reader.
// On success it returns a strong reference with refcount 1; on
// contention (either already occupied, or a reader currently holds
// the guard) it returns false, leaving the slot untouched.
func (s *Slot[T]) TryEmplace(ctor func() T) (*Strong[T], bool) {
	if s.strong.Load() != 0 {
		return nil, false
	}
	if !s.g.TryLock() {
		return nil, false
	}
	defer s.g.Unlock()
	if s.strong.Load() != 0 {
		return nil, false
	}
	s.value = ctor()
	s.strong.Store(1)
	return &Strong[T]{s: s}, true
}
