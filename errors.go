package pleb

import (
	"errors"

	"github.com/plebsys/pleb/internal/value"
)

// Error kinds, spec.md §7. Each is a sentinel wrapped with context via
// fmt.Errorf("...: %w", ErrX) so callers can compare with errors.Is.
var (
	// ErrServiceNotFound is raised when a request walks past the root
	// with no accepting service along the ancestor chain.
	ErrServiceNotFound = errors.New("pleb: service not found")

	// ErrNoSuchTopic reports that a topic-string lookup demanded
	// existence and the subtree is missing. No function in this package
	// returns it: Eager creates missing nodes and Lazy anchors at the
	// nearest existing one.
	ErrNoSuchTopic = errors.New("pleb: no such topic")

	// ErrIncompatibleType is raised when a handler's expected type does
	// not match the value it received. Re-exported from internal/value
	// so callers never need to import that package directly.
	ErrIncompatibleType = value.ErrIncompatibleType

	// ErrHandlingUnavailable is raised when a message's handling
	// requirements cannot be satisfied and no intervention handler
	// rescues it.
	ErrHandlingUnavailable = errors.New("pleb: handling unavailable")

	// ErrNullTopic is raised when an eager handle constructed from nil
	// is used for any operation.
	ErrNullTopic = errors.New("pleb: null topic handle")

	// ErrServiceExists is raised by InstallService when a service is
	// already installed at the target topic.
	ErrServiceExists = errors.New("pleb: service already installed")

	// ErrRelayLoop is raised when a relay's target would, if followed
	// repeatedly, revisit its own source topic.
	ErrRelayLoop = errors.New("pleb: relay target would form a loop")
)
