package formenc

import (
	"os"

	"github.com/rs/zerolog"
)

// debugLogger is the package-level zerolog logger for debug output.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// logBodyBuilt logs the outcome of a body build using zerolog.
func logBodyBuilt(logger zerolog.Logger, c Content, pairs int, kind string) {
	logger.Debug().
		Str("content_type", c.ContentType()).
		Str("encoding", kind).
		Int("pairs", pairs).
		Int("bytes", c.Len()).
		Msg("form body built")
}
