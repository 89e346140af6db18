package pleb

import (
	"github.com/plebsys/pleb/internal/rule"
	"github.com/plebsys/pleb/internal/slot"
	"github.com/plebsys/pleb/internal/trie"
)

// ServiceHandler handles a request. It takes a mutable *Request so it
// can call Respond (spec.md §9: "Handler functions are polymorphic
// over capability set {take mutable request, take read-only event}.
// Represent as two distinct handler traits; do not try to unify into
// one.").
type ServiceHandler func(*Request)

// Service is the single request handler bound to a topic (spec.md §3).
type Service struct {
	Topic        Handle
	Handler      ServiceHandler
	Ignored      Filtering // filtering bits this service does not accept
	Capabilities Handling  // handling requirements this service supports
	Predicate    *rule.Rule // optional CEL predicate narrowing acceptance further

	ref  *slot.Strong[*Service]
	node *trie.Node[topicPayload]
}

// accepts reports whether this service accepts message m when reached
// directly at its own topic: the filtering mask (minus the recursive
// bit, which governs ancestor-fallback eligibility, not local
// delivery — see acceptsAncestor) and the optional predicate (spec.md
// §4.G, §4.H step 2, §4.L). Handling-capability is deliberately not
// checked here; Request surfaces a mismatch as the distinct
// ErrHandlingUnavailable rather than folding it into "not found".
func (s *Service) accepts(m Message) bool {
	f := m.Filtering &^ FilterRecursive
	if !f.Accepts(s.Ignored) {
		return false
	}
	if s.Predicate != nil && !s.Predicate.Eval(m.Code, uint16(m.Filtering), uint16(m.Handling), s.Topic.Path()) {
		return false
	}
	return true
}

// acceptsAncestor reports whether this service accepts message m when
// reached via the ancestor walk (spec.md §4.H step 3): in addition to
// accepts, the service must not have opted out of recursive delivery
// (DefaultServiceIgnore ignores it; installing with the bit cleared —
// e.g. WithServiceIgnored(DefaultServiceIgnore&^FilterRecursive) — opts
// in).
func (s *Service) acceptsAncestor(m Message) bool {
	if s.Ignored.Has(FilterRecursive) {
		return false
	}
	return s.accepts(m)
}

// ServiceOption configures a Service at install time.
type ServiceOption func(*Service)

// WithServiceIgnored overrides the default service-ignore mask.
func WithServiceIgnored(f Filtering) ServiceOption { return func(s *Service) { s.Ignored = f } }

// WithServiceCapabilities declares the handling requirements this
// service supports.
func WithServiceCapabilities(h Handling) ServiceOption {
	return func(s *Service) { s.Capabilities = h }
}

// WithServicePredicate attaches an optional CEL predicate.
func WithServicePredicate(r *rule.Rule) ServiceOption {
	return func(s *Service) { s.Predicate = r }
}

// ServiceHandle represents a live service installation; Close
// uninstalls it.
type ServiceHandle struct {
	svc    *Service
	closed boolFlag
}

// Close uninstalls the service. It is idempotent; only the first call
// has any effect.
func (h *ServiceHandle) Close() {
	if !h.closed.set() {
		return
	}
	h.svc.ref.Release()
	h.svc.node.Unpin()
}

// Topic returns the topic this service is bound to.
func (h *ServiceHandle) Topic() Handle { return h.svc.Topic }
