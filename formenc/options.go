package formenc

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/formwire-go/formenc"
)

// Option configures an Encoder.
type Option func(*Encoder)

// WithCharset sets the charset label emitted in the urlencoded content
// type and used to convert the encoded body to bytes.
//
// The default is "UTF-8". Any label known to the IANA character set
// registry is accepted (e.g. "ISO-8859-1"); an unknown label surfaces as
// ErrUnsupportedCharset from every urlencoded body build.
//
// Example:
//
//	enc := formenc.New(formenc.WithCharset("ISO-8859-1"))
func WithCharset(label string) Option {
	return func(e *Encoder) {
		e.charset = label
	}
}

// WithDebug enables structured logging of built bodies (content type,
// pair count, size) via zerolog.
//
// Example:
//
//	enc := formenc.New(formenc.WithDebug(true))
func WithDebug(enabled bool) Option {
	return func(e *Encoder) {
		e.debug = enabled
	}
}

// WithLogger replaces the logger used for debug output. The default
// writes to stdout with timestamps.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	enc := formenc.New(
//	    formenc.WithDebug(true),
//	    formenc.WithLogger(logger),
//	)
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
//
// Example:
//
//	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
//	enc := formenc.New(formenc.WithMeterProvider(mp))
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Encoder) {
		e.meterProvider = mp
	}
}
