package formenc

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for body construction.
type metrics struct {
	// bodiesBuilt counts built bodies by encoding.
	bodiesBuilt metric.Int64Counter

	// bodySize measures serialized body sizes in bytes.
	bodySize metric.Int64Histogram

	// flattenedPairs measures the number of flattened pairs per body.
	flattenedPairs metric.Int64Histogram

	// buildErrors counts failed builds by error type.
	buildErrors metric.Int64Counter
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.bodiesBuilt, err = meter.Int64Counter(
		"formenc.body.built",
		metric.WithDescription("Number of request bodies built"),
		metric.WithUnit("{body}"),
	)
	if err != nil {
		return nil, err
	}

	m.bodySize, err = meter.Int64Histogram(
		"formenc.body.size",
		metric.WithDescription("Size of serialized request bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(
			0, 100, 1024, 10*1024, 100*1024, 1024*1024, 10*1024*1024,
		),
	)
	if err != nil {
		return nil, err
	}

	m.flattenedPairs, err = meter.Int64Histogram(
		"formenc.flatten.pairs",
		metric.WithDescription("Number of flattened pairs per built body"),
		metric.WithUnit("{pair}"),
		metric.WithExplicitBucketBoundaries(
			0, 1, 5, 10, 25, 50, 100, 250, 1000,
		),
	)
	if err != nil {
		return nil, err
	}

	m.buildErrors, err = meter.Int64Counter(
		"formenc.build.error",
		metric.WithDescription("Number of failed body builds"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// recordBody records one successfully built body.
func (m *metrics) recordBody(ctx context.Context, kind string, size, pairs int) {
	if m == nil || m.bodiesBuilt == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("body.encoding", kind))
	m.bodiesBuilt.Add(ctx, 1, attrs)
	m.bodySize.Record(ctx, int64(size), attrs)
	m.flattenedPairs.Record(ctx, int64(pairs), attrs)
}

// recordError records a failed body build.
func (m *metrics) recordError(ctx context.Context, errorType string) {
	if m == nil || m.buildErrors == nil {
		return
	}
	m.buildErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", errorType)))
}
