// Package metrics collects per-topic dispatch counters and sampled
// latencies for the diagnostics dashboard, grounded on
// internal/babysitter's statsProcessor/CollectMetrics pair: a
// background goroutine periodically drains live counters into an
// exportable snapshot, started the same way babysitter.go starts its
// own collector (`go b.statsProcessor.CollectMetrics(...)`), but
// managed here by an errgroup so the caller can stop it cleanly via
// context cancellation.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/DataDog/hyperloglog"
	"github.com/google/pprof/profile"
	"github.com/google/uuid"
	"github.com/lightstep/varopt"
	"golang.org/x/sync/errgroup"
)

// TopicMetrics is a point-in-time snapshot of one topic's activity.
type TopicMetrics struct {
	Topic                string
	Publishes            int64
	Requests             int64
	Responses            int64
	SubscriberExceptions int64
	DistinctSubscribers  uint64 // HyperLogLog estimate, not exact
	LatencySamples       int    // size of the retained varopt reservoir
}

// String renders a TopicMetrics as one dashboard log line.
func (m TopicMetrics) String() string {
	return fmt.Sprintf("%-32s publishes=%d requests=%d responses=%d exceptions=%d subscribers~%d samples=%d",
		m.Topic, m.Publishes, m.Requests, m.Responses, m.SubscriberExceptions, m.DistinctSubscribers, m.LatencySamples)
}

type counters struct {
	publishes            int64
	requests             int64
	responses            int64
	subscriberExceptions int64
}

type topicState struct {
	mu          sync.Mutex
	counters    counters
	cardinality *hyperloglog.HyperLogLog
	latencies   *varopt.Varopt[latencySample]
}

type latencySample struct {
	at       time.Time
	duration time.Duration
}

// Collector accumulates per-topic counters and sampled latencies and
// periodically snapshots them for the diagnostics dashboard.
type Collector struct {
	mu     sync.Mutex
	topics map[string]*topicState
	rnd    *rand.Rand

	reservoirSize int
}

// NewCollector returns a Collector whose per-topic latency reservoirs
// each retain up to reservoirSize samples.
func NewCollector(reservoirSize int) *Collector {
	if reservoirSize <= 0 {
		reservoirSize = 256
	}
	return &Collector{
		topics:        make(map[string]*topicState),
		rnd:           rand.New(rand.NewSource(1)),
		reservoirSize: reservoirSize,
	}
}

func (c *Collector) stateFor(topic string) *topicState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.topics[topic]
	if !ok {
		hll, _ := hyperloglog.New(16)
		ts = &topicState{
			cardinality: hll,
			latencies:   varopt.New[latencySample](c.reservoirSize, c.rnd),
		}
		c.topics[topic] = ts
	}
	return ts
}

// RecordPublish counts one publish dispatched to topic.
func (c *Collector) RecordPublish(topic string) {
	ts := c.stateFor(topic)
	ts.mu.Lock()
	ts.counters.publishes++
	ts.mu.Unlock()
}

// RecordRequest counts one request dispatched to topic, along with the
// time it took the accepting service to return.
func (c *Collector) RecordRequest(topic string, d time.Duration) {
	ts := c.stateFor(topic)
	ts.mu.Lock()
	ts.counters.requests++
	ts.latencies.Add(latencySample{at: timeNow(), duration: d}, 1.0)
	ts.mu.Unlock()
}

// RecordResponse counts one response delivered on topic.
func (c *Collector) RecordResponse(topic string) {
	ts := c.stateFor(topic)
	ts.mu.Lock()
	ts.counters.responses++
	ts.mu.Unlock()
}

// RecordSubscriberException counts one captured subscriber panic on topic.
func (c *Collector) RecordSubscriberException(topic string) {
	ts := c.stateFor(topic)
	ts.mu.Lock()
	ts.counters.subscriberExceptions++
	ts.mu.Unlock()
}

// RecordSubscriber feeds a subscription's identity into topic's
// distinct-subscriber cardinality sketch. Calling it twice for the
// same id does not change the estimate, within the sketch's error
// bound.
func (c *Collector) RecordSubscriber(topic string, subscriptionID uuid.UUID) {
	ts := c.stateFor(topic)
	ts.mu.Lock()
	ts.cardinality.Add(subscriptionID[:])
	ts.mu.Unlock()
}

// Snapshot returns a point-in-time copy of every topic's metrics.
func (c *Collector) Snapshot() []TopicMetrics {
	c.mu.Lock()
	names := make([]string, 0, len(c.topics))
	states := make([]*topicState, 0, len(c.topics))
	for name, ts := range c.topics {
		names = append(names, name)
		states = append(states, ts)
	}
	c.mu.Unlock()

	out := make([]TopicMetrics, len(names))
	for i, ts := range states {
		ts.mu.Lock()
		out[i] = TopicMetrics{
			Topic:                names[i],
			Publishes:            ts.counters.publishes,
			Requests:             ts.counters.requests,
			Responses:            ts.counters.responses,
			SubscriberExceptions: ts.counters.subscriberExceptions,
			DistinctSubscribers:  ts.cardinality.Count(),
			LatencySamples:       ts.latencies.Size(),
		}
		ts.mu.Unlock()
	}
	return out
}

// Run starts a background loop that snapshots metrics every interval
// and hands the result to onSnapshot, until ctx is cancelled. It
// mirrors babysitter.go's `go b.statsProcessor.CollectMetrics(b.ctx,
// b.readMetrics)`, but returns the errgroup-managed goroutine's error
// (always nil here; context.Canceled is swallowed) so callers can
// g.Wait() it alongside the rest of a bus's background work.
func (c *Collector) Run(ctx context.Context, interval time.Duration, onSnapshot func([]TopicMetrics)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				onSnapshot(c.Snapshot())
			}
		}
	})
	return g.Wait()
}

// Profile merges every topic's retained latency samples into a single
// pprof profile and returns it (WriteProfile encodes it to the
// gzip-encoded wire format), mirroring
// babysitter.go's runProfiling/tool.ProfileGroups merge step — except
// here there is exactly one in-process source to merge, the
// collector's own reservoirs, rather than a fleet of remote envelopes.
func (c *Collector) Profile() (*profile.Profile, error) {
	c.mu.Lock()
	states := make([]*topicState, 0, len(c.topics))
	names := make([]string, 0, len(c.topics))
	for name, ts := range c.topics {
		states = append(states, ts)
		names = append(names, name)
	}
	c.mu.Unlock()

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "latency", Unit: "nanoseconds"}},
		PeriodType: &profile.ValueType{Type: "latency", Unit: "nanoseconds"},
		Period:     1,
	}
	locsByTopic := make(map[string]*profile.Location, len(names))
	for i, name := range names {
		fn := &profile.Function{ID: uint64(i + 1), Name: name}
		loc := &profile.Location{ID: uint64(i + 1), Line: []profile.Line{{Function: fn}}}
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		locsByTopic[name] = loc
	}
	for i, ts := range states {
		ts.mu.Lock()
		n := ts.latencies.Size()
		for j := 0; j < n; j++ {
			sample, _ := ts.latencies.Get(j)
			prof.Sample = append(prof.Sample, &profile.Sample{
				Location: []*profile.Location{locsByTopic[names[i]]},
				Value:    []int64{int64(sample.duration)},
			})
		}
		ts.mu.Unlock()
	}
	if err := prof.CheckValid(); err != nil {
		return nil, err
	}
	return prof, nil
}

// WriteProfile writes the merged profile's gzip-encoded pprof wire
// format, ready for `go tool pprof`.
func (c *Collector) WriteProfile() ([]byte, error) {
	prof, err := c.Profile()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// timeNow exists so tests can see a deterministic clock is not
// required: it is the only call site of the wall clock in this
// package, kept tiny on purpose.
func timeNow() time.Time { return time.Now() }
