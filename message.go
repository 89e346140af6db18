package pleb

import (
	"sync/atomic"

	"github.com/plebsys/pleb/internal/httpstatus"
	"github.com/plebsys/pleb/internal/value"
)

// Features are PLEB-internal bookkeeping bits on a message (spec.md §3).
type Features uint8

const (
	FeatureDidSend    Features = 1 << 0
	FeatureDidRespond Features = 1 << 1
)

// Message is the common envelope carried by every publish, request,
// and response (spec.md §3). Code holds a method code for requests or
// a status code for responses/events.
type Message struct {
	Topic     Handle
	Code      int
	Features  Features
	Filtering Filtering
	Handling  Handling
	Value     value.Value
}

// NewMessage returns a message addressed to topic with PLEB's default
// filtering mask (spec.md §6: regular|recursive).
func NewMessage(topic Handle, code int, v value.Value) Message {
	return Message{
		Topic:     topic,
		Code:      code,
		Filtering: DefaultMessageFiltering,
		Value:     v,
	}
}

// Response is the payload delivered back to a request's client
// endpoint (spec.md §3, §4.H).
type Response struct {
	Topic     Handle
	Status    httpstatus.Code
	Value     value.Value
	Filtering Filtering
}

// ClientEndpoint is a drop target for a request's eventual response
// (spec.md §3: "a shared reference to a client object, a future-setter,
// or a callback"). Implementations must be safe to call from any
// goroutine, exactly once.
type ClientEndpoint interface {
	Deliver(Response)
}

// ClientFunc adapts a plain function to a ClientEndpoint (the
// "callback" flavor).
type ClientFunc func(Response)

// Deliver implements ClientEndpoint.
func (f ClientFunc) Deliver(r Response) { f(r) }

// FutureEndpoint is the "future-setter" flavor: a one-shot channel the
// requester can receive on. Callers that don't want to block forever
// are responsible for wrapping the receive in their own select/timeout
// (spec.md §5: "Clients that await a response via a future-style
// endpoint are responsible for their own timeout wrapping").
type FutureEndpoint struct {
	ch chan Response
}

// NewFuture returns a FutureEndpoint and the channel it will deliver
// exactly one Response on.
func NewFuture() (*FutureEndpoint, <-chan Response) {
	ch := make(chan Response, 1)
	return &FutureEndpoint{ch: ch}, ch
}

// Deliver implements ClientEndpoint.
func (f *FutureEndpoint) Deliver(r Response) { f.ch <- r; close(f.ch) }

// Request carries an in-flight request to a service handler (spec.md
// §3). A request is responded to at most once (invariant I4):
// Respond after the first call is a silent no-op.
type Request struct {
	Message
	client    ClientEndpoint
	responded atomic.Bool
}

// NewRequest returns a request addressed to topic, optionally wired to
// a client endpoint that will receive the eventual response.
func NewRequest(topic Handle, methodCode int, v value.Value, client ClientEndpoint) *Request {
	return &Request{
		Message: NewMessage(topic, methodCode, v),
		client:  client,
	}
}

// Responded reports whether Respond has already been called.
func (r *Request) Responded() bool { return r.responded.Load() }

// Respond delivers a response to the request's client endpoint, if
// any. Only the first call has any effect; every subsequent call is a
// silent no-op, satisfying invariant I4.
func (r *Request) Respond(status httpstatus.Code, v value.Value, filtering Filtering) {
	if !r.responded.CompareAndSwap(false, true) {
		return
	}
	r.Features |= FeatureDidRespond
	if r.client != nil {
		r.client.Deliver(Response{Topic: r.Topic, Status: status, Value: v, Filtering: filtering})
	}
}
