package telemetry

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/formwire-go/telemetry"
)

// Option configures a Sampler.
type Option func(*Sampler)

// WithEnabled sets the initial state of the sampling gate.
//
// The default is enabled. The gate can be flipped later with SetEnabled;
// this option only controls where it starts.
//
// Example:
//
//	sampler := telemetry.New(telemetry.WithEnabled(false))
func WithEnabled(enabled bool) Option {
	return func(s *Sampler) {
		s.enabled.Store(enabled)
	}
}

// WithRequestIDHeader sets the response header the request identifier is
// read from. The default is "Request-Id".
//
// Example:
//
//	sampler := telemetry.New(telemetry.WithRequestIDHeader("X-Request-Id"))
func WithRequestIDHeader(name string) Option {
	return func(s *Sampler) {
		s.requestIDHeader = name
	}
}

// WithQueueCapacity sets the sample queue capacity. The default is 100.
// Values below 1 fall back to the default.
//
// Example:
//
//	sampler := telemetry.New(telemetry.WithQueueCapacity(10))
func WithQueueCapacity(n int) Option {
	return func(s *Sampler) {
		s.capacity = n
	}
}

// WithDebug enables structured logging of sampled, dropped, and attached
// records via zerolog.
//
// Example:
//
//	sampler := telemetry.New(telemetry.WithDebug(true))
func WithDebug(enabled bool) Option {
	return func(s *Sampler) {
		s.debug = enabled
	}
}

// WithLogger replaces the logger used for debug output. The default
// writes to stdout with timestamps.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	sampler := telemetry.New(
//	    telemetry.WithDebug(true),
//	    telemetry.WithLogger(logger),
//	)
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sampler) {
		s.logger = logger
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
//
// Example:
//
//	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
//	sampler := telemetry.New(telemetry.WithMeterProvider(mp))
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Sampler) {
		s.meterProvider = mp
	}
}
