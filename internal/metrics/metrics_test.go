package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordersAccumulatePerTopic(t *testing.T) {
	c := NewCollector(64)
	c.RecordPublish("/a")
	c.RecordPublish("/a")
	c.RecordRequest("/a", 5*time.Millisecond)
	c.RecordResponse("/a")
	c.RecordSubscriberException("/a")
	c.RecordPublish("/b")

	rows := c.Snapshot()
	byTopic := make(map[string]TopicMetrics, len(rows))
	for _, r := range rows {
		byTopic[r.Topic] = r
	}

	a, ok := byTopic["/a"]
	if !ok {
		t.Fatal("missing snapshot row for /a")
	}
	if a.Publishes != 2 || a.Requests != 1 || a.Responses != 1 || a.SubscriberExceptions != 1 {
		t.Fatalf("unexpected counters for /a: %+v", a)
	}
	if a.LatencySamples != 1 {
		t.Fatalf("LatencySamples = %d, want 1", a.LatencySamples)
	}

	b, ok := byTopic["/b"]
	if !ok {
		t.Fatal("missing snapshot row for /b")
	}
	if b.Publishes != 1 {
		t.Fatalf("Publishes for /b = %d, want 1", b.Publishes)
	}
}

func TestRecordSubscriberFeedsCardinalitySketch(t *testing.T) {
	c := NewCollector(64)
	for i := 0; i < 10; i++ {
		c.RecordSubscriber("/fanout", uuid.New())
	}
	// Recording the same id repeatedly should not move the estimate much.
	repeat := uuid.New()
	for i := 0; i < 5; i++ {
		c.RecordSubscriber("/fanout", repeat)
	}

	rows := c.Snapshot()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].DistinctSubscribers == 0 {
		t.Fatal("DistinctSubscribers estimate should be nonzero after recording distinct ids")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c := NewCollector(8)
	c.RecordPublish("/x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var snapshots int
	go func() {
		done <- c.Run(ctx, time.Millisecond, func([]TopicMetrics) { snapshots++ })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestWriteProfileProducesValidPprofBytes(t *testing.T) {
	c := NewCollector(8)
	c.RecordRequest("/latency", time.Millisecond)
	c.RecordRequest("/latency", 2*time.Millisecond)

	data, err := c.WriteProfile()
	if err != nil {
		t.Fatalf("WriteProfile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("WriteProfile returned no bytes")
	}
}
