package telemetry

import (
	"os"

	"github.com/rs/zerolog"
)

// debugLogger is the package-level zerolog logger for debug output.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// logSampled logs a record entering the queue using zerolog.
func logSampled(logger zerolog.Logger, rec requestMetrics) {
	logger.Debug().
		Str("request_id", rec.RequestID).
		Int64("duration_ms", rec.RequestDurationMS).
		Msg("request metrics sampled")
}

// logDropped logs a record dropped at a full queue.
func logDropped(logger zerolog.Logger, rec requestMetrics) {
	logger.Debug().
		Str("request_id", rec.RequestID).
		Msg("metrics queue full, sample dropped")
}

// logHeaderAttached logs a header value being handed out.
func logHeaderAttached(logger zerolog.Logger, rec requestMetrics) {
	logger.Debug().
		Str("request_id", rec.RequestID).
		Int64("duration_ms", rec.RequestDurationMS).
		Msg("telemetry header attached")
}

// logMarshalFailure logs a payload that could not be serialized. The
// record is lost but the request proceeds without a header.
func logMarshalFailure(logger zerolog.Logger, requestID string, err error) {
	logger.Warn().
		Err(err).
		Str("request_id", requestID).
		Msg("telemetry payload marshal failed")
}
