package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for the sampler.
type metrics struct {
	// recordsSampled counts records accepted into the queue.
	recordsSampled metric.Int64Counter

	// recordsDropped counts records dropped because the queue was full.
	recordsDropped metric.Int64Counter

	// headersAttached counts telemetry header values handed out.
	headersAttached metric.Int64Counter

	// queueDepth tracks the current number of queued records.
	queueDepth metric.Int64UpDownCounter
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.recordsSampled, err = meter.Int64Counter(
		"telemetry.records.sampled",
		metric.WithDescription("Number of request metrics records accepted into the queue"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.recordsDropped, err = meter.Int64Counter(
		"telemetry.records.dropped",
		metric.WithDescription("Number of request metrics records dropped because the queue was full"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.headersAttached, err = meter.Int64Counter(
		"telemetry.headers.attached",
		metric.WithDescription("Number of telemetry header values handed out"),
		metric.WithUnit("{header}"),
	)
	if err != nil {
		return nil, err
	}

	m.queueDepth, err = meter.Int64UpDownCounter(
		"telemetry.queue.depth",
		metric.WithDescription("Current number of queued request metrics records"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// recordEnqueued records a sample entering the queue.
func (m *metrics) recordEnqueued(ctx context.Context) {
	if m == nil || m.recordsSampled == nil {
		return
	}
	m.recordsSampled.Add(ctx, 1)
	m.queueDepth.Add(ctx, 1)
}

// recordDequeued records a sample leaving the queue.
func (m *metrics) recordDequeued(ctx context.Context) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Add(ctx, -1)
}

// recordDropped records a sample dropped at a full queue.
func (m *metrics) recordDropped(ctx context.Context) {
	if m == nil || m.recordsDropped == nil {
		return
	}
	m.recordsDropped.Add(ctx, 1)
}

// recordAttached records a header value handed out.
func (m *metrics) recordAttached(ctx context.Context) {
	if m == nil || m.headersAttached == nil {
		return
	}
	m.headersAttached.Add(ctx, 1)
}
