package pleb

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MetricsSink receives dispatch activity as it happens. internal/metrics.Collector
// satisfies this interface structurally; the dependency runs one way, from an
// embedder's metrics package toward this one, never the reverse, so this
// package stays agnostic of any particular collection strategy.
type MetricsSink interface {
	RecordPublish(topic string)
	RecordRequest(topic string, d time.Duration)
	RecordResponse(topic string)
	RecordSubscriberException(topic string)
	RecordSubscriber(topic string, subscriptionID uuid.UUID)
}

var metricsSink atomic.Pointer[MetricsSink]

// SetMetrics installs the process-wide metrics sink that Publish,
// Request, Subscribe, and the dispatch engine's exception path report
// to. Passing nil disables reporting (the default). There is no
// per-call override: like the global root topic, this is a one-time,
// process-wide wiring decision (spec.md §9's "no reset API" pattern
// extended to this ambient concern).
func SetMetrics(sink MetricsSink) {
	if sink == nil {
		metricsSink.Store(nil)
		return
	}
	metricsSink.Store(&sink)
}

func metrics() MetricsSink {
	p := metricsSink.Load()
	if p == nil {
		return nil
	}
	return *p
}
