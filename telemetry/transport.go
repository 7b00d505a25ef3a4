package telemetry

import (
	"net/http"
)

// Transport wraps next with telemetry bookkeeping so the sampler can sit
// directly in an http.Client's transport chain.
//
// Requests flowing through the returned RoundTripper behave exactly as if
// each were passed to Send: a header value is attached when available,
// the exchange is timed, and successful responses are recorded.
//
// A nil next uses http.DefaultTransport.
//
// Example:
//
//	sampler := telemetry.New()
//	client := &http.Client{
//	    Transport: sampler.Transport(http.DefaultTransport),
//	}
func (s *Sampler) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{sampler: s, next: next}
}

// transport is the RoundTripper returned by Sampler.Transport.
type transport struct {
	sampler *Sampler
	next    http.RoundTripper
}

// RoundTrip implements http.RoundTripper. The incoming request is never
// mutated; Send clones it before attaching the header.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.sampler.Send(req, t.next.RoundTrip)
}
