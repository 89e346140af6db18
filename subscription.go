package pleb

import (
	"github.com/google/uuid"

	"github.com/plebsys/pleb/internal/rule"
	"github.com/plebsys/pleb/internal/slot"
	"github.com/plebsys/pleb/internal/trie"
)

// Event is the read-only view of a message a subscriber receives
// (spec.md §9: subscriptions take a read-only event, services take a
// mutable request).
type Event struct {
	Message
}

// EventHandler handles a published event.
type EventHandler func(Event)

// Subscription is one of many event handlers bound to a topic
// (spec.md §3). Its shape mirrors Service but with different
// filtering defaults: it accepts recursive messages and rejects
// internal PLEB status events unless opted in.
type Subscription struct {
	Topic        Handle
	Handler      EventHandler
	Ignored      Filtering
	Capabilities Handling
	Predicate    *rule.Rule

	id   uuid.UUID // stable identity for metrics sketches; see internal/metrics
	ref  *slot.Strong[*Subscription]
	node *trie.Node[topicPayload]
}

// ID returns the subscription's process-unique identity.
func (sub *Subscription) ID() uuid.UUID { return sub.id }

func (sub *Subscription) accepts(m Message) bool {
	if !m.Filtering.Accepts(sub.Ignored) {
		return false
	}
	if !sub.Capabilities.Supports(m.Handling) {
		return false
	}
	if sub.Predicate != nil && !sub.Predicate.Eval(m.Code, uint16(m.Filtering), uint16(m.Handling), sub.Topic.Path()) {
		return false
	}
	return true
}

// SubscriptionOption configures a Subscription at install time.
type SubscriptionOption func(*Subscription)

// WithSubscriptionIgnored overrides the default subscriber-ignore mask.
func WithSubscriptionIgnored(f Filtering) SubscriptionOption {
	return func(s *Subscription) { s.Ignored = f }
}

// WithSubscriptionCapabilities declares the handling requirements this
// subscription supports.
func WithSubscriptionCapabilities(h Handling) SubscriptionOption {
	return func(s *Subscription) { s.Capabilities = h }
}

// WithSubscriptionPredicate attaches an optional CEL predicate.
func WithSubscriptionPredicate(r *rule.Rule) SubscriptionOption {
	return func(s *Subscription) { s.Predicate = r }
}

// SubscriptionHandle represents a live subscription; Close unsubscribes.
type SubscriptionHandle struct {
	sub    *Subscription
	closed boolFlag
}

// Close unsubscribes. It is idempotent.
func (h *SubscriptionHandle) Close() {
	if !h.closed.set() {
		return
	}
	h.sub.ref.Release()
	h.sub.node.Unpin()
}

// Topic returns the topic this subscription is bound to.
func (h *SubscriptionHandle) Topic() Handle { return h.sub.Topic }

// ID returns the subscription's process-unique identity, suitable as
// the key fed into a distinct-subscriber cardinality sketch
// (internal/metrics.Collector.RecordSubscriber).
func (h *SubscriptionHandle) ID() uuid.UUID { return h.sub.ID() }
