package pleb

import (
	"errors"
	"fmt"

	"github.com/plebsys/pleb/internal/httpstatus"
	"github.com/plebsys/pleb/internal/value"
)

// NewServiceRelay returns a ServiceHandler that mutates an incoming
// request's topic to target and re-enters dispatch there (spec.md
// §4.H: "A service relay is a service whose handler mutates the
// request's topic to a preconfigured target and re-enters dispatch at
// that target"). Construction is refused with ErrRelayLoop if target
// is a descendant of source and recursive is true, since a recursive
// request arriving back at source would re-enter the relay forever.
func NewServiceRelay(source, target Handle, recursive bool) (ServiceHandler, error) {
	if recursive && target.IsDescendantOf(source) {
		return nil, fmt.Errorf("pleb: service relay %q -> %q: %w", source.Path(), target.Path(), ErrRelayLoop)
	}
	return func(req *Request) {
		req.Topic = target
		if err := Request(target, req.Code, req.Value, relayClient{req}, withFiltering(req.Filtering), withHandling(req.Handling)); err != nil {
			req.Respond(statusFor(err), value.Of(err.Error()), req.Filtering)
		}
	}, nil
}

// statusFor maps a dispatch error to the status code a relay
// synthesizes when it cannot reach the target service itself.
func statusFor(err error) httpstatus.Code {
	switch {
	case errors.Is(err, ErrServiceNotFound):
		return httpstatus.NotImplemented
	case errors.Is(err, ErrHandlingUnavailable):
		return httpstatus.UnsupportedMediaType
	default:
		return httpstatus.InternalServerError
	}
}

// relayClient forwards a relayed request's eventual response back to
// the original request's own client endpoint, preserving the
// original's respond-once semantics.
type relayClient struct {
	orig *Request
}

func (c relayClient) Deliver(r Response) {
	c.orig.Respond(r.Status, r.Value, r.Filtering)
}

// NewEventRelay returns an EventHandler that republishes an incoming
// event at target (spec.md §4.H: "An event relay is a subscription
// whose handler re-publishes the event at a preconfigured target").
// Construction is refused with ErrRelayLoop under the same condition
// as NewServiceRelay.
func NewEventRelay(source, target Handle, recursive bool) (EventHandler, error) {
	if recursive && target.IsDescendantOf(source) {
		return nil, fmt.Errorf("pleb: event relay %q -> %q: %w", source.Path(), target.Path(), ErrRelayLoop)
	}
	return func(ev Event) {
		Publish(target, ev.Code, ev.Value, withFiltering(ev.Filtering), withHandling(ev.Handling))
	}, nil
}

// withFiltering and withHandling are small, unexported Message option
// helpers shared by the relay constructors; they override the default
// masks stamped by NewMessage. Callers outside this package pass their
// own func(*Message) options to Publish/Request instead.
func withFiltering(f Filtering) func(*Message) {
	return func(m *Message) { m.Filtering = f }
}

func withHandling(h Handling) func(*Message) {
	return func(m *Message) { m.Handling = h }
}
