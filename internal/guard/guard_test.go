package guard

import (
	"sync"
	"testing"
)

func TestVisitRequiresOpenAndUnlocked(t *testing.T) {
	g := NewOpen()
	if !g.Visit() {
		t.Fatal("Visit on a fresh open guard should succeed")
	}
	g.Leave()

	g.Close()
	if g.Visit() {
		t.Fatal("Visit on a closed guard should fail")
	}
	g.Reopen()
	if !g.Visit() {
		t.Fatal("Visit after Reopen should succeed")
	}
	g.Leave()
}

func TestEnterIgnoresClosedFlag(t *testing.T) {
	g := NewOpen()
	g.Close()
	if !g.Enter() {
		t.Fatal("Enter should succeed on a closed-but-unlocked guard")
	}
	g.Leave()
}

func TestTryLockRequiresQuiescence(t *testing.T) {
	g := NewOpen()
	if !g.Enter() {
		t.Fatal("Enter should succeed")
	}
	if g.TryLock() {
		t.Fatal("TryLock should fail while a visitor is present")
	}
	g.Leave()
	if !g.TryLock() {
		t.Fatal("TryLock should succeed once quiescent")
	}
	if g.Enter() {
		t.Fatal("Enter should fail while locked")
	}
	g.Unlock()
	if !g.Enter() {
		t.Fatal("Enter should succeed once unlocked")
	}
	g.Leave()
}

func TestLeaveWithoutVisitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Leave without a matching Visit/Enter should panic")
		}
	}()
	g := NewOpen()
	g.Leave()
}

func TestConcurrentVisitorsAreCounted(t *testing.T) {
	g := NewOpen()
	var wg sync.WaitGroup
	const n = 64
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if g.Visit() {
				g.Leave()
			}
		}()
	}
	wg.Wait()
	if !g.Quiescent() {
		t.Fatal("guard should return to quiescent once all visitors leave")
	}
}
