package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// headerPayloadJSON mirrors the wire shape for parsing in assertions.
type headerPayloadJSON struct {
	LastRequestMetrics struct {
		RequestID         string `json:"request_id"`
		RequestDurationMS int64  `json:"request_duration_ms"`
	} `json:"last_request_metrics"`
}

// respWithID builds a minimal response carrying a request identifier under
// the default header name.
func respWithID(id string) *http.Response {
	header := http.Header{}
	if id != "" {
		header.Set(DefaultRequestIDHeader, id)
	}
	return &http.Response{StatusCode: http.StatusOK, Header: header}
}

func TestNew(t *testing.T) {
	t.Run("given no options, then sampling starts enabled with an empty queue", func(t *testing.T) {
		s := New()

		assert.True(t, s.Enabled())
		assert.Zero(t, s.Count())
	})

	t.Run("given WithEnabled false, then sampling starts disabled", func(t *testing.T) {
		s := New(WithEnabled(false))

		assert.False(t, s.Enabled())
	})

	t.Run("given a custom capacity, then the queue caps there", func(t *testing.T) {
		s := New(WithQueueCapacity(3))

		for i := 0; i < 5; i++ {
			s.Record(respWithID(fmt.Sprintf("req_%d", i)), time.Millisecond)
		}

		assert.Equal(t, 3, s.Count())
	})

	t.Run("given a non-positive capacity, then the default applies", func(t *testing.T) {
		s := New(WithQueueCapacity(-1))

		for i := 0; i < DefaultQueueCapacity+1; i++ {
			s.Record(respWithID(fmt.Sprintf("req_%d", i)), time.Millisecond)
		}

		assert.Equal(t, DefaultQueueCapacity, s.Count())
	})

	t.Run("given a custom request id header, then only that header is read", func(t *testing.T) {
		s := New(WithRequestIDHeader("X-Request-Id"))

		s.Record(respWithID("req_default"), time.Millisecond)
		assert.Zero(t, s.Count())

		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
		resp.Header.Set("X-Request-Id", "req_custom")
		s.Record(resp, time.Millisecond)
		assert.Equal(t, 1, s.Count())
	})
}

func TestSampler_Record(t *testing.T) {
	t.Run("given a response with a request id, then queues one record", func(t *testing.T) {
		s := New()

		s.Record(respWithID("req_123"), 42*time.Millisecond)

		assert.Equal(t, 1, s.Count())
	})

	t.Run("given a nil response, then records nothing", func(t *testing.T) {
		s := New()

		s.Record(nil, time.Millisecond)

		assert.Zero(t, s.Count())
	})

	t.Run("given a response without a request id, then records nothing", func(t *testing.T) {
		s := New()

		s.Record(&http.Response{StatusCode: http.StatusOK, Header: http.Header{}}, time.Millisecond)

		assert.Zero(t, s.Count())
	})

	t.Run("given sampling disabled, then records nothing", func(t *testing.T) {
		s := New(WithEnabled(false))

		s.Record(respWithID("req_123"), time.Millisecond)

		assert.Zero(t, s.Count())
	})

	t.Run("given a full queue, then drops the new record and keeps the old", func(t *testing.T) {
		s := New(WithQueueCapacity(2))

		s.Record(respWithID("req_a"), time.Millisecond)
		s.Record(respWithID("req_b"), time.Millisecond)
		s.Record(respWithID("req_c"), time.Millisecond)

		assert.Equal(t, 2, s.Count())
		assert.Equal(t, "req_a", dequeueID(t, s))
		assert.Equal(t, "req_b", dequeueID(t, s))
		_, ok := s.HeaderValue(http.Header{})
		assert.False(t, ok)
	})
}

func TestSampler_HeaderValue(t *testing.T) {
	t.Run("given an empty queue, then produces nothing", func(t *testing.T) {
		s := New()

		value, ok := s.HeaderValue(http.Header{})

		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("given a queued record, then produces the exact JSON payload", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_123"), 42*time.Millisecond)

		value, ok := s.HeaderValue(http.Header{})

		require.True(t, ok)
		assert.Equal(t,
			`{"last_request_metrics":{"request_id":"req_123","request_duration_ms":42}}`,
			value,
		)
	})

	t.Run("given a sub-millisecond duration, then reports zero milliseconds", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_fast"), 999*time.Microsecond)

		value, ok := s.HeaderValue(http.Header{})

		require.True(t, ok)
		var payload headerPayloadJSON
		require.NoError(t, json.Unmarshal([]byte(value), &payload))
		assert.Zero(t, payload.LastRequestMetrics.RequestDurationMS)
	})

	t.Run("given one queued record, then it is consumed exactly once", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_123"), time.Millisecond)

		_, ok := s.HeaderValue(http.Header{})
		require.True(t, ok)

		_, ok = s.HeaderValue(http.Header{})
		assert.False(t, ok)
	})

	t.Run("given multiple queued records, then dequeues in arrival order", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_a"), time.Millisecond)
		s.Record(respWithID("req_b"), time.Millisecond)
		s.Record(respWithID("req_c"), time.Millisecond)

		assert.Equal(t, "req_a", dequeueID(t, s))
		assert.Equal(t, "req_b", dequeueID(t, s))
		assert.Equal(t, "req_c", dequeueID(t, s))
	})

	t.Run("given the telemetry header is already set, then keeps the record queued", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_123"), time.Millisecond)

		headers := http.Header{}
		headers.Set(HeaderName, "caller-supplied")
		value, ok := s.HeaderValue(headers)

		assert.False(t, ok)
		assert.Empty(t, value)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("given sampling disabled, then keeps the record queued", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_123"), time.Millisecond)
		s.SetEnabled(false)

		_, ok := s.HeaderValue(http.Header{})

		assert.False(t, ok)
		assert.Equal(t, 1, s.Count())
	})
}

func TestSampler_SetEnabled(t *testing.T) {
	t.Run("given a runtime toggle, then sampling resumes where it left off", func(t *testing.T) {
		s := New()
		s.Record(respWithID("req_before"), time.Millisecond)

		s.SetEnabled(false)
		s.Record(respWithID("req_ignored"), time.Millisecond)
		_, ok := s.HeaderValue(http.Header{})
		assert.False(t, ok)
		assert.Equal(t, 1, s.Count())

		s.SetEnabled(true)
		assert.Equal(t, "req_before", dequeueID(t, s))
	})
}

func TestSampler_Send(t *testing.T) {
	t.Run("given consecutive sends, then the second carries the first's metrics", func(t *testing.T) {
		var mu sync.Mutex
		var seenHeaders []string
		requestCount := 0

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			requestCount++
			seenHeaders = append(seenHeaders, r.Header.Get(HeaderName))
			id := fmt.Sprintf("req_%d", requestCount)
			mu.Unlock()
			w.Header().Set(DefaultRequestIDHeader, id)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		s := New()
		client := server.Client()

		first, err := http.NewRequest(http.MethodPost, server.URL, nil)
		require.NoError(t, err)
		resp, err := s.Send(first, client.Do)
		require.NoError(t, err)
		resp.Body.Close()

		second, err := http.NewRequest(http.MethodPost, server.URL, nil)
		require.NoError(t, err)
		resp, err = s.Send(second, client.Do)
		require.NoError(t, err)
		resp.Body.Close()

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, seenHeaders, 2)
		assert.Empty(t, seenHeaders[0])

		var payload headerPayloadJSON
		require.NoError(t, json.Unmarshal([]byte(seenHeaders[1]), &payload))
		assert.Equal(t, "req_1", payload.LastRequestMetrics.RequestID)
		assert.GreaterOrEqual(t, payload.LastRequestMetrics.RequestDurationMS, int64(0))

		// The caller's request object stays untouched.
		assert.Empty(t, second.Header.Get(HeaderName))

		// Each send recorded its own response; the first record was consumed.
		assert.Equal(t, 1, s.Count())
	})

	t.Run("given a send failure, then the error propagates and nothing is recorded", func(t *testing.T) {
		s := New()
		sendErr := errors.New("connection reset")

		req, err := http.NewRequest(http.MethodGet, "http://unreachable.invalid", nil)
		require.NoError(t, err)

		resp, err := s.Send(req, func(*http.Request) (*http.Response, error) {
			return nil, sendErr
		})

		assert.Nil(t, resp)
		assert.Equal(t, sendErr, err)
		assert.Zero(t, s.Count())
	})

	t.Run("given a caller-supplied telemetry header, then it is passed through untouched", func(t *testing.T) {
		var seen string
		s := New()
		s.Record(respWithID("req_queued"), time.Millisecond)

		req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
		require.NoError(t, err)
		req.Header.Set(HeaderName, "caller-value")

		resp, err := s.Send(req, func(r *http.Request) (*http.Response, error) {
			seen = r.Header.Get(HeaderName)
			return respWithID("req_next"), nil
		})
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Equal(t, "caller-value", seen)
		assert.Equal(t, 2, s.Count())
	})

	t.Run("given sampling disabled, then sends pass through without bookkeeping", func(t *testing.T) {
		var seen string
		s := New(WithEnabled(false))

		req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
		require.NoError(t, err)

		_, err = s.Send(req, func(r *http.Request) (*http.Response, error) {
			seen = r.Header.Get(HeaderName)
			return respWithID("req_1"), nil
		})
		require.NoError(t, err)

		assert.Empty(t, seen)
		assert.Zero(t, s.Count())
	})

	t.Run("given a response without a request id, then nothing is queued", func(t *testing.T) {
		s := New()

		req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
		require.NoError(t, err)

		_, err = s.Send(req, func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}, nil
		})
		require.NoError(t, err)

		assert.Zero(t, s.Count())
	})
}

func TestSampler_ConcurrentSends(t *testing.T) {
	t.Run("given concurrent sends, then every response is sampled exactly once", func(t *testing.T) {
		var nextID atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(DefaultRequestIDHeader, fmt.Sprintf("req_%d", nextID.Add(1)))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		const numRequests = 50
		s := New()
		client := server.Client()

		g := new(errgroup.Group)
		for i := 0; i < numRequests; i++ {
			g.Go(func() error {
				req, err := http.NewRequest(http.MethodGet, server.URL, nil)
				if err != nil {
					return err
				}
				// Opt out of header attachment so no record is consumed
				// while the burst is still producing.
				req.Header.Set(HeaderName, "opt-out")

				resp, err := s.Send(req, client.Do)
				if err != nil {
					return err
				}
				return resp.Body.Close()
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, numRequests, s.Count())

		ids := make(map[string]bool)
		for {
			value, ok := s.HeaderValue(http.Header{})
			if !ok {
				break
			}
			var payload headerPayloadJSON
			require.NoError(t, json.Unmarshal([]byte(value), &payload))
			ids[payload.LastRequestMetrics.RequestID] = true
		}
		assert.Len(t, ids, numRequests)
	})
}

func TestSampler_ConcurrentBurst(t *testing.T) {
	t.Run("given a burst past capacity, then the queue never exceeds it", func(t *testing.T) {
		const capacity = 10
		s := New(WithQueueCapacity(capacity))

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				s.Record(respWithID(fmt.Sprintf("req_%d", idx)), time.Millisecond)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, capacity, s.Count())

		drained := 0
		for {
			if _, ok := s.HeaderValue(http.Header{}); !ok {
				break
			}
			drained++
		}
		assert.Equal(t, capacity, drained)
	})

	t.Run("given concurrent dequeues, then each record is handed out once", func(t *testing.T) {
		const queued = 20
		s := New()
		for i := 0; i < queued; i++ {
			s.Record(respWithID(fmt.Sprintf("req_%d", i)), time.Millisecond)
		}

		results := make(chan string, queued+10)
		var wg sync.WaitGroup
		for i := 0; i < queued+10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if value, ok := s.HeaderValue(http.Header{}); ok {
					results <- value
				}
			}()
		}
		wg.Wait()
		close(results)

		ids := make(map[string]bool)
		for value := range results {
			var payload headerPayloadJSON
			require.NoError(t, json.Unmarshal([]byte(value), &payload))
			ids[payload.LastRequestMetrics.RequestID] = true
		}
		assert.Len(t, ids, queued)
		assert.Zero(t, s.Count())
	})
}

func TestSampler_DebugLogging(t *testing.T) {
	t.Run("given debug on, then queue activity is logged", func(t *testing.T) {
		var buf bytes.Buffer
		s := New(
			WithQueueCapacity(1),
			WithDebug(true),
			WithLogger(zerolog.New(&buf)),
		)

		s.Record(respWithID("req_kept"), time.Millisecond)
		s.Record(respWithID("req_dropped"), time.Millisecond)
		_, ok := s.HeaderValue(http.Header{})
		require.True(t, ok)

		logged := buf.String()
		assert.Contains(t, logged, "request metrics sampled")
		assert.Contains(t, logged, "metrics queue full, sample dropped")
		assert.Contains(t, logged, "telemetry header attached")
	})

	t.Run("given debug off, then nothing is logged", func(t *testing.T) {
		var buf bytes.Buffer
		s := New(WithLogger(zerolog.New(&buf)))

		s.Record(respWithID("req_1"), time.Millisecond)
		_, ok := s.HeaderValue(http.Header{})
		require.True(t, ok)

		assert.Empty(t, buf.String())
	})
}

// dequeueID pulls one header value off the sampler and returns the request
// id inside it.
func dequeueID(t *testing.T, s *Sampler) string {
	t.Helper()

	value, ok := s.HeaderValue(http.Header{})
	require.True(t, ok)

	var payload headerPayloadJSON
	require.NoError(t, json.Unmarshal([]byte(value), &payload))
	return payload.LastRequestMetrics.RequestID
}
