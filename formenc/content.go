package formenc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrUnsupportedCharset reports a configured charset label that cannot be
// resolved to a byte encoding.
var ErrUnsupportedCharset = errors.New("formenc: unsupported charset")

// DefaultCharset is the charset label used when none is configured.
const DefaultCharset = "UTF-8"

// Content is an immutable HTTP body artifact: the serialized bytes plus
// the exact Content-Type header value they were built for.
//
// A Content is created once per outgoing request and never mutated.
// Attach it with Reader() and ContentType():
//
//	req, _ := http.NewRequest(http.MethodPost, url, content.Reader())
//	req.Header.Set("Content-Type", content.ContentType())
type Content struct {
	body        []byte
	contentType string
}

// Bytes returns a copy of the serialized body.
func (c Content) Bytes() []byte {
	return append([]byte(nil), c.body...)
}

// ContentType returns the exact Content-Type header value for the body.
func (c Content) ContentType() string {
	return c.contentType
}

// Len returns the body length in bytes.
func (c Content) Len() int {
	return len(c.body)
}

// Reader returns a fresh reader over the body. Every call starts at the
// beginning, so a single Content can back retried requests.
func (c Content) Reader() io.Reader {
	return bytes.NewReader(c.body)
}

// String returns the body as a string. Mainly useful for urlencoded
// bodies and debug output.
func (c Content) String() string {
	return string(c.body)
}

// Encoder builds request bodies with a fixed configuration.
//
// The zero configuration (UTF-8 charset, no debug logging, global meter
// provider) is what the package-level functions use. Construct an Encoder
// to change any of it:
//
//	enc := formenc.New(
//	    formenc.WithCharset("ISO-8859-1"),
//	    formenc.WithDebug(true),
//	)
//
// An Encoder holds no per-call state and is safe for concurrent use.
type Encoder struct {
	// charset is the label emitted in the urlencoded content type.
	charset string

	// transcoder converts encoded bodies out of UTF-8; nil means UTF-8.
	transcoder encoding.Encoding

	// charsetErr is set when the configured charset label is unknown. It
	// surfaces from every urlencoded build rather than at construction.
	charsetErr error

	// debug enables body construction logging.
	debug bool

	// logger receives debug output.
	logger zerolog.Logger

	// meterProvider supplies the OpenTelemetry meter.
	meterProvider metric.MeterProvider

	// metrics holds the metric instruments, nil if registration failed.
	metrics *metrics
}

// New creates an Encoder with the given options applied.
//
// Example:
//
//	enc := formenc.New(formenc.WithCharset("ISO-8859-1"))
//	content, err := enc.BuildContent(params)
func New(opts ...Option) *Encoder {
	e := &Encoder{
		charset:       DefaultCharset,
		logger:        debugLogger,
		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.transcoder, e.charsetErr = resolveCharset(e.charset)

	// Instrument registration failures are non-fatal; recording is skipped.
	e.metrics, _ = newMetrics(e.meterProvider.Meter(scope))

	return e
}

// resolveCharset maps an IANA charset label to a transcoder. UTF-8 needs
// no transcoding and resolves to nil.
func resolveCharset(label string) (encoding.Encoding, error) {
	if strings.EqualFold(label, DefaultCharset) {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCharset, label)
	}
	return enc, nil
}

// BuildContent flattens params and serializes them into a ready-to-send
// body, choosing the encoding automatically.
//
// When every flattened value is a string the body is URL-encoded; a
// single *Blob anywhere in the tree switches the whole body to
// multipart/form-data with a fresh random boundary. A nil or empty map
// yields an empty urlencoded body, so callers always get a content type.
//
// Example:
//
//	content, err := enc.BuildContent(map[string]any{
//	    "purpose": "dispute_evidence",
//	    "file":    formenc.BlobFromFile(path),
//	})
//	// content.ContentType() == "multipart/form-data; boundary=..."
func (e *Encoder) BuildContent(params map[string]any) (Content, error) {
	pairs, err := FlattenParams(params)
	if err != nil {
		e.metrics.recordError(context.Background(), "malformed_params")
		return Content{}, err
	}

	for _, p := range pairs {
		if _, ok := p.Value.(*Blob); ok {
			return e.EncodeMultipart(pairs, uuid.NewString())
		}
	}
	return e.EncodeURLEncoded(pairs)
}

// BuildQueryString flattens params into a percent-encoded query string,
// keeping only string values.
//
// Binary payloads are never valid in a URL, so pairs whose value is not a
// plain string are silently dropped rather than rejected.
//
// Example:
//
//	qs, err := enc.BuildQueryString(map[string]any{"limit": 10})
//	u := endpoint + "?" + qs
func (e *Encoder) BuildQueryString(params map[string]any) (string, error) {
	pairs, err := FlattenParams(params)
	if err != nil {
		e.metrics.recordError(context.Background(), "malformed_params")
		return "", err
	}

	kept := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := p.Value.(string); ok {
			kept = append(kept, p)
		}
	}
	return EncodeQueryString(kept), nil
}

// EncodeURLEncoded serializes flattened string pairs into an
// application/x-www-form-urlencoded body in the configured charset.
//
// The content type is "application/x-www-form-urlencoded;charset=<label>".
// An empty pair slice produces an empty body that still carries the
// content type. An unknown charset label fails here with
// ErrUnsupportedCharset.
func (e *Encoder) EncodeURLEncoded(pairs []Pair) (Content, error) {
	if e.charsetErr != nil {
		e.metrics.recordError(context.Background(), "unsupported_charset")
		return Content{}, e.charsetErr
	}

	body := []byte(EncodeQueryString(pairs))
	if e.transcoder != nil {
		out, err := encoding.ReplaceUnsupported(e.transcoder.NewEncoder()).Bytes(body)
		if err != nil {
			e.metrics.recordError(context.Background(), "transcode")
			return Content{}, fmt.Errorf("formenc: transcoding to %s: %w", e.charset, err)
		}
		body = out
	}

	content := Content{
		body:        body,
		contentType: "application/x-www-form-urlencoded;charset=" + e.charset,
	}
	e.finishBody(content, len(pairs), "urlencoded")
	return content, nil
}

// finishBody records metrics and debug output for a built body.
func (e *Encoder) finishBody(c Content, pairs int, kind string) {
	e.metrics.recordBody(context.Background(), kind, c.Len(), pairs)
	if e.debug {
		logBodyBuilt(e.logger, c, pairs, kind)
	}
}

// defaultEncoder backs the package-level convenience functions.
var defaultEncoder = New()

// BuildContent builds a body with the default Encoder.
//
// See Encoder.BuildContent.
func BuildContent(params map[string]any) (Content, error) {
	return defaultEncoder.BuildContent(params)
}

// BuildQueryString builds a query string with the default Encoder.
//
// See Encoder.BuildQueryString.
func BuildQueryString(params map[string]any) (string, error) {
	return defaultEncoder.BuildQueryString(params)
}

// EncodeURLEncoded encodes pairs with the default Encoder.
//
// See Encoder.EncodeURLEncoded.
func EncodeURLEncoded(pairs []Pair) (Content, error) {
	return defaultEncoder.EncodeURLEncoded(pairs)
}

// EncodeMultipart encodes pairs with the default Encoder.
//
// See Encoder.EncodeMultipart.
func EncodeMultipart(pairs []Pair, boundary string) (Content, error) {
	return defaultEncoder.EncodeMultipart(pairs, boundary)
}
