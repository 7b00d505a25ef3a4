package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport(t *testing.T) {
	t.Run("given a wrapped client, then successive requests carry prior metrics", func(t *testing.T) {
		var mu sync.Mutex
		var seenHeaders []string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			seenHeaders = append(seenHeaders, r.Header.Get(HeaderName))
			id := fmt.Sprintf("req_%d", len(seenHeaders))
			mu.Unlock()
			w.Header().Set(DefaultRequestIDHeader, id)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		s := New()
		client := &http.Client{Transport: s.Transport(http.DefaultTransport)}

		for i := 0; i < 3; i++ {
			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			resp.Body.Close()
		}

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, seenHeaders, 3)
		assert.Empty(t, seenHeaders[0])

		var payload headerPayloadJSON
		require.NoError(t, json.Unmarshal([]byte(seenHeaders[1]), &payload))
		assert.Equal(t, "req_1", payload.LastRequestMetrics.RequestID)

		require.NoError(t, json.Unmarshal([]byte(seenHeaders[2]), &payload))
		assert.Equal(t, "req_2", payload.LastRequestMetrics.RequestID)
	})

	t.Run("given a nil next, then the default transport is used", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(DefaultRequestIDHeader, "req_1")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		s := New()
		client := &http.Client{Transport: s.Transport(nil)}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, 1, s.Count())
	})

	t.Run("given an unreachable server, then the error propagates unsampled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		server.Close()

		s := New()
		client := &http.Client{Transport: s.Transport(http.DefaultTransport)}

		_, err := client.Get(server.URL)

		require.Error(t, err)
		assert.Zero(t, s.Count())
	})

	t.Run("given a disabled sampler, then requests pass through untouched", func(t *testing.T) {
		var seen string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r.Header.Get(HeaderName)
			w.Header().Set(DefaultRequestIDHeader, "req_1")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		s := New(WithEnabled(false))
		client := &http.Client{Transport: s.Transport(http.DefaultTransport)}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, seen)
		assert.Zero(t, s.Count())
	})
}
