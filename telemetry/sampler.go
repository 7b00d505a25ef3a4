package telemetry

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// HeaderName is the request header that carries the telemetry payload.
	// A request that already has this header is never modified.
	HeaderName = "X-Client-Telemetry"

	// DefaultRequestIDHeader is the response header the request identifier
	// is read from when none is configured.
	DefaultRequestIDHeader = "Request-Id"

	// DefaultQueueCapacity is the sample queue capacity when none is
	// configured. Once full, new samples are dropped.
	DefaultQueueCapacity = 100
)

// SendFunc performs one HTTP request exchange, e.g. (*http.Client).Do.
type SendFunc func(*http.Request) (*http.Response, error)

// requestMetrics is one sampled request measurement. The field names are
// part of the wire contract.
type requestMetrics struct {
	RequestID         string `json:"request_id"`
	RequestDurationMS int64  `json:"request_duration_ms"`
}

// headerPayload is the JSON shape of the telemetry header value.
type headerPayload struct {
	LastRequestMetrics requestMetrics `json:"last_request_metrics"`
}

// Sampler collects timing metrics from completed requests in a bounded
// FIFO queue and exposes them, one at a time, as telemetry header values
// for subsequent requests.
//
// Construct one Sampler per client and share it across that client's
// requests:
//
//	sampler := telemetry.New()
//	resp, err := sampler.Send(req, client.Do)
//
// All methods are safe for concurrent use and none of them block.
type Sampler struct {
	// queue holds the sampled records. A buffered channel gives bounded
	// FIFO enqueue/dequeue without a lock serializing unrelated requests.
	queue chan requestMetrics

	// enabled gates both sampling and header emission. It is read fresh
	// on every call so it can be toggled at runtime.
	enabled atomic.Bool

	// requestIDHeader is the response header carrying the server-assigned
	// request identifier.
	requestIDHeader string

	// capacity is the queue size, fixed at construction.
	capacity int

	// debug enables sample/drop/attach logging.
	debug bool

	// logger receives debug output.
	logger zerolog.Logger

	// meterProvider supplies the OpenTelemetry meter.
	meterProvider metric.MeterProvider

	// metrics holds the metric instruments, nil if registration failed.
	metrics *metrics
}

// New creates a Sampler with the given options applied.
//
// Sampling starts enabled unless WithEnabled(false) is passed.
//
// Example:
//
//	sampler := telemetry.New(
//	    telemetry.WithRequestIDHeader("X-Request-Id"),
//	)
func New(opts ...Option) *Sampler {
	s := &Sampler{
		requestIDHeader: DefaultRequestIDHeader,
		capacity:        DefaultQueueCapacity,
		logger:          debugLogger,
		meterProvider:   otel.GetMeterProvider(),
	}
	s.enabled.Store(true)
	for _, opt := range opts {
		opt(s)
	}

	if s.capacity <= 0 {
		s.capacity = DefaultQueueCapacity
	}
	s.queue = make(chan requestMetrics, s.capacity)

	// Instrument registration failures are non-fatal; recording is skipped.
	s.metrics, _ = newMetrics(s.meterProvider.Meter(scope))

	return s
}

// HeaderValue returns the telemetry header value for an outgoing request,
// dequeuing at most one sampled record.
//
// No value is produced when the given headers already carry the telemetry
// header (caller opt-out), when sampling is disabled, or when no record is
// queued. The payload is JSON of the form
//
//	{"last_request_metrics":{"request_id":"req_123","request_duration_ms":42}}
//
// A record returned here is consumed: calling HeaderValue twice with one
// queued record yields a value once, then nothing.
func (s *Sampler) HeaderValue(headers http.Header) (string, bool) {
	if len(headers.Values(HeaderName)) > 0 {
		return "", false
	}
	if !s.enabled.Load() {
		return "", false
	}

	select {
	case rec := <-s.queue:
		s.metrics.recordDequeued(context.Background())
		data, err := json.Marshal(headerPayload{LastRequestMetrics: rec})
		if err != nil {
			// Telemetry is best-effort; a marshal failure costs only the
			// record, never the request.
			logMarshalFailure(s.logger, rec.RequestID, err)
			return "", false
		}
		s.metrics.recordAttached(context.Background())
		if s.debug {
			logHeaderAttached(s.logger, rec)
		}
		return string(data), true
	default:
		return "", false
	}
}

// Record samples one completed request.
//
// It is a no-op when sampling is disabled, resp is nil, or the response
// carries no request identifier. When the queue is full the new sample is
// dropped and the older ones kept.
func (s *Sampler) Record(resp *http.Response, duration time.Duration) {
	if !s.enabled.Load() || resp == nil {
		return
	}
	requestID := resp.Header.Get(s.requestIDHeader)
	if requestID == "" {
		return
	}

	rec := requestMetrics{
		RequestID:         requestID,
		RequestDurationMS: duration.Milliseconds(),
	}

	select {
	case s.queue <- rec:
		s.metrics.recordEnqueued(context.Background())
		if s.debug {
			logSampled(s.logger, rec)
		}
	default:
		// Queue full: drop the new sample.
		s.metrics.recordDropped(context.Background())
		if s.debug {
			logDropped(s.logger, rec)
		}
	}
}

// Send wraps one request exchange with telemetry bookkeeping: attach a
// header value if one is available, measure the wall-clock time around
// send, and record the completed response.
//
// The given request is never mutated; when a header is attached, send
// receives a clone. A send failure propagates unchanged and records
// nothing.
//
// Example:
//
//	resp, err := sampler.Send(req, client.Do)
func (s *Sampler) Send(req *http.Request, send SendFunc) (*http.Response, error) {
	if value, ok := s.HeaderValue(req.Header); ok {
		req = req.Clone(req.Context())
		req.Header.Set(HeaderName, value)
	}

	start := time.Now()
	resp, err := send(req)
	if err != nil {
		return resp, err
	}

	s.Record(resp, time.Since(start))
	return resp, nil
}

// SetEnabled turns sampling on or off at runtime. In-flight requests
// observe the change on their next call.
func (s *Sampler) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports whether sampling is currently on.
func (s *Sampler) Enabled() bool {
	return s.enabled.Load()
}

// Count returns the number of currently queued records.
func (s *Sampler) Count() int {
	return len(s.queue)
}
