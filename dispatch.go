package pleb

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plebsys/pleb/internal/httpstatus"
	"github.com/plebsys/pleb/internal/slot"
	"github.com/plebsys/pleb/internal/trie"
	"github.com/plebsys/pleb/internal/value"
)

// InstallService installs handler as the single service at topic
// (spec.md §4.H, §3). It fails with ErrServiceExists if a service is
// already installed there. Installing realizes a lazy topic handle and
// pins the target node so it remains structurally reachable for the
// lifetime of the returned handle.
func InstallService(topic Handle, handler ServiceHandler, opts ...ServiceOption) (*ServiceHandle, error) {
	node := topic.resolvedNode()
	svc := &Service{
		Topic:        topic,
		Handler:      handler,
		Ignored:      DefaultServiceIgnore,
		Capabilities: 0,
		node:         node,
	}
	for _, opt := range opts {
		opt(svc)
	}
	ref, ok := node.Payload().tryInstallService(svc)
	if !ok {
		return nil, fmt.Errorf("pleb: install service at %q: %w", topic.Path(), ErrServiceExists)
	}
	svc.ref = ref
	node.Pin()
	return &ServiceHandle{svc: svc}, nil
}

// Subscribe adds handler as one of potentially many subscriptions at
// topic (spec.md §4.H, §3). Installing realizes a lazy topic handle
// and pins the target node for the lifetime of the returned handle.
func Subscribe(topic Handle, handler EventHandler, opts ...SubscriptionOption) *SubscriptionHandle {
	node := topic.resolvedNode()
	sub := &Subscription{
		Topic:        topic,
		Handler:      handler,
		Ignored:      DefaultSubscriberIgnore,
		Capabilities: 0,
		id:           uuid.New(),
		node:         node,
	}
	for _, opt := range opts {
		opt(sub)
	}
	sub.ref = node.Payload().installSubscription(sub)
	node.Pin()
	if m := metrics(); m != nil {
		m.RecordSubscriber(topic.Path(), sub.id)
	}
	return &SubscriptionHandle{sub: sub}
}

// Request dispatches a request to topic following the ancestor
// fallback described in spec.md §4.H: the named node's own service is
// tried first, and only if absent or non-accepting, and the message's
// recursive bit is set, does the walk continue toward the root. It
// returns ErrServiceNotFound if no ancestor accepts, and
// ErrHandlingUnavailable if an accepting service's capabilities do not
// cover the message's handling requirements.
func Request(topic Handle, methodCode int, v value.Value, client ClientEndpoint, opts ...func(*Message)) error {
	req := NewRequest(topic, methodCode, v, client)
	for _, opt := range opts {
		opt(&req.Message)
	}
	node := topic.resolvedNode()

	svc, capRef, found := findAcceptingService(node, req.Message)
	if !found {
		return fmt.Errorf("pleb: request %q: %w", topic.Path(), ErrServiceNotFound)
	}
	defer capRef.Release()

	if !svc.Capabilities.Supports(req.Handling) {
		return fmt.Errorf("pleb: request %q: %w", topic.Path(), ErrHandlingUnavailable)
	}

	req.Features |= FeatureDidSend
	start := time.Now()
	svc.Handler(req)
	if m := metrics(); m != nil {
		m.RecordRequest(topic.Path(), time.Since(start))
	}
	if !req.Responded() && client != nil {
		client.Deliver(Response{
			Topic:     req.Topic,
			Status:    httpstatus.InternalServerError,
			Filtering: FilterRegular,
		})
	}
	if m := metrics(); m != nil {
		m.RecordResponse(topic.Path())
	}
	return nil
}

// findAcceptingService implements the nearest-then-ancestors walk
// shared by Request: try node's own service first regardless of the
// recursive bit, then — only if the message is recursive — continue
// toward the root, at each level considering only services that do
// not ignore the recursive bit.
func findAcceptingService(node *trie.Node[topicPayload], m Message) (*Service, *slot.Strong[*Service], bool) {
	if ref, ok := node.Payload().currentService(); ok {
		svc := *ref.Get()
		if svc.accepts(m) {
			return svc, ref, true
		}
		ref.Release()
	}
	if !m.Filtering.Has(FilterRecursive) {
		return nil, nil, false
	}
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		ref, ok := cur.Payload().currentService()
		if !ok {
			continue
		}
		svc := *ref.Get()
		if svc.acceptsAncestor(m) {
			return svc, ref, true
		}
		ref.Release()
	}
	return nil, nil, false
}

// Publish broadcasts an event to topic's subscriptions, and — when the
// message's recursive bit is set (the default) — to every ancestor's
// subscriptions up to and including the root (spec.md §4.H). A
// subscriber handler that panics is captured; the engine publishes a
// FilterSubscriberException-flagged event on the same topic instead of
// propagating, then continues with the remaining subscribers.
func Publish(topic Handle, code int, v value.Value, opts ...func(*Message)) {
	m := NewMessage(topic, code, v)
	for _, opt := range opts {
		opt(&m)
	}
	node := topic.resolvedNode()

	if sink := metrics(); sink != nil {
		sink.RecordPublish(topic.Path())
	}
	broadcastLevel(node, m)
	if !m.Filtering.Has(FilterRecursive) {
		return
	}
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		broadcastLevel(cur, m)
	}
}

func broadcastLevel(node *trie.Node[topicPayload], m Message) {
	node.Payload().eachSubscription(func(sub *Subscription) {
		if !sub.accepts(m) {
			return
		}
		dispatchSubscriber(sub, m)
	})
}

// SubscriberException is the value carried by the FilterSubscriberException
// event the engine publishes when a subscriber handler panics (spec.md
// §4.H: "publishes a subscriber-exception-flagged event... with a
// reference to the raising subscription"). SubscriptionID identifies
// the specific subscription that panicked, so a logging/alerting
// subscriber observing the exception event can single it out — e.g. to
// disable it — among several subscriptions sharing the same topic.
type SubscriberException struct {
	SubscriptionID uuid.UUID
	Panic          any
}

func dispatchSubscriber(sub *Subscription, m Message) {
	defer func() {
		if r := recover(); r != nil {
			if sink := metrics(); sink != nil {
				sink.RecordSubscriberException(sub.Topic.Path())
			}
			exceptionMsg := NewMessage(sub.Topic, m.Code, value.Of(SubscriberException{
				SubscriptionID: sub.ID(),
				Panic:          r,
			}))
			exceptionMsg.Filtering |= FilterSubscriberException
			exceptionMsg.Filtering &^= FilterRecursive
			broadcastLevel(sub.node, exceptionMsg)
		}
	}()
	sub.Handler(Event{Message: m})
}
