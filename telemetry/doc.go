// Package telemetry samples timing metrics from completed HTTP requests
// and feeds them back to the server as a request header.
//
// A Sampler keeps a small bounded queue of (request id, duration) records.
// Before a request goes out, the sampler dequeues at most one record and
// offers it as the value of the "X-Client-Telemetry" header; after a
// response comes back, the sampler records how long the exchange took,
// keyed by the server-assigned request identifier. Each request therefore
// carries the metrics of an earlier one.
//
// # Quick Start
//
// Construct one Sampler per client and wrap each send with it:
//
//	sampler := telemetry.New()
//
//	resp, err := sampler.Send(req, client.Do)
//
// Or drop it into a client's transport chain:
//
//	client := &http.Client{
//	    Transport: sampler.Transport(http.DefaultTransport),
//	}
//
// # Behavior
//
// Telemetry is best-effort. The queue holds at most 100 records
// (configurable); when it is full, new samples are dropped and old ones
// kept. A request whose headers already carry "X-Client-Telemetry" is
// left alone. Send failures propagate unchanged and record nothing.
// Nothing in this package blocks, performs I/O, or can fail a request.
//
// All operations are safe for concurrent use by any number of in-flight
// requests. Sampling can be toggled at runtime with SetEnabled; the flag
// is read fresh on every call.
package telemetry
