package pleb

import "sync/atomic"

// boolFlag is a one-shot latch: set reports true exactly once, on its
// first call, across any number of concurrent callers.
type boolFlag struct {
	v atomic.Bool
}

func (f *boolFlag) set() bool { return f.v.CompareAndSwap(false, true) }
