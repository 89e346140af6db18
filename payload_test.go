package pleb_test

import (
	"testing"

	"github.com/plebsys/pleb"
)

func TestSetPoolCapacityIgnoresNonPositive(t *testing.T) {
	// Must not panic and must not disturb ordinary subscribe/publish
	// behavior; the pool's internal chain size is not independently
	// observable, so this only exercises the guard clause.
	pleb.SetPoolCapacity(0)
	pleb.SetPoolCapacity(-1)

	base := uniquePath(t, "cap")
	sub := pleb.Subscribe(pleb.Eager(base), func(pleb.Event) {})
	defer sub.Close()
	if pleb.Eager(base).SubscriberCount() != 1 {
		t.Fatal("subscribing after an ignored SetPoolCapacity call should still work")
	}
}
