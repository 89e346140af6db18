// Package guard implements the atomic access token that arbitrates
// readers, writers, and administrative open/closed state for a
// cooperative slot (see internal/slot) or pool element.
//
// The whole state triple — open flag, locked flag, visitor count — is
// packed into a single uint64 and mutated with compare-and-swap, so a
// guard never blocks: every operation either succeeds immediately or
// reports failure for the caller to retry or treat as benign.
package guard

import "sync/atomic"

const (
	openBit   = uint64(1) << 0
	lockedBit = uint64(1) << 1
	countUnit = uint64(1) << 2
	countMask = ^uint64(0) &^ (openBit | lockedBit)
)

// Guard is the atomic state triple (open, locked, visitor count).
// Zero value is closed, unlocked, no visitors.
type Guard struct {
	state uint64
}

// NewOpen returns a guard that starts open.
func NewOpen() *Guard {
	g := &Guard{}
	g.state = openBit
	return g
}

func split(state uint64) (open, locked bool, count uint64) {
	return state&openBit != 0, state&lockedBit != 0, (state & countMask) >> 2
}

// Visit succeeds only if the guard is open and not locked, and
// increments the visitor count. Every successful Visit must be paired
// with a Leave.
func (g *Guard) Visit() bool {
	for {
		cur := atomic.LoadUint64(&g.state)
		open, locked, _ := split(cur)
		if locked || !open {
			return false
		}
		next := cur + countUnit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return true
		}
	}
}

// Enter succeeds whenever the guard is not locked, regardless of the
// open/closed flag, and increments the visitor count. It is used by
// non-blocking readers that must observe the contained value even
// while the guard has been administratively closed to new Visits.
func (g *Guard) Enter() bool {
	for {
		cur := atomic.LoadUint64(&g.state)
		_, locked, _ := split(cur)
		if locked {
			return false
		}
		next := cur + countUnit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return true
		}
	}
}

// Leave releases one visitor slot acquired by Visit or Enter. It is a
// programmer error to call Leave without a matching successful Visit
// or Enter: Leave always decrements, and panics if the visitor count
// is already zero.
func (g *Guard) Leave() {
	for {
		cur := atomic.LoadUint64(&g.state)
		_, _, count := split(cur)
		if count == 0 {
			panic("guard: Leave called without a matching Visit/Enter")
		}
		next := cur - countUnit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return
		}
	}
}

// TryLock succeeds only if the guard is quiescent — zero visitors and
// not already locked — establishing exclusive access for content
// replacement. The open/closed flag is irrelevant to locking: a closed
// guard may still be locked (e.g. to destroy its contents).
func (g *Guard) TryLock() bool {
	for {
		cur := atomic.LoadUint64(&g.state)
		_, locked, count := split(cur)
		if locked || count != 0 {
			return false
		}
		next := cur | lockedBit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return true
		}
	}
}

// Unlock releases an exclusive lock acquired by TryLock.
func (g *Guard) Unlock() {
	for {
		cur := atomic.LoadUint64(&g.state)
		if cur&lockedBit == 0 {
			panic("guard: Unlock called without a held lock")
		}
		next := cur &^ lockedBit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return
		}
	}
}

// Close clears the open flag: subsequent Visit calls fail, but Enter
// and TryLock are unaffected.
func (g *Guard) Close() {
	for {
		cur := atomic.LoadUint64(&g.state)
		next := cur &^ openBit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return
		}
	}
}

// Reopen sets the open flag, allowing Visit to succeed again.
func (g *Guard) Reopen() {
	for {
		cur := atomic.LoadUint64(&g.state)
		next := cur | openBit
		if atomic.CompareAndSwapUint64(&g.state, cur, next) {
			return
		}
	}
}

// Open reports whether the guard currently accepts Visit calls.
func (g *Guard) Open() bool {
	cur := atomic.LoadUint64(&g.state)
	open, _, _ := split(cur)
	return open
}

// Locked reports whether the guard is currently exclusively locked.
func (g *Guard) Locked() bool {
	cur := atomic.LoadUint64(&g.state)
	_, locked, _ := split(cur)
	return locked
}

// Visitors returns the current visitor count, for diagnostics only.
func (g *Guard) Visitors() uint64 {
	cur := atomic.LoadUint64(&g.state)
	_, _, count := split(cur)
	return count
}

// Quiescent reports whether the guard has no visitors and is unlocked.
func (g *Guard) Quiescent() bool {
	cur := atomic.LoadUint64(&g.state)
	_, locked, count := split(cur)
	return !locked && count == 0
}
