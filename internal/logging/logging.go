// Package logging configures the daemon's zerolog root logger: a console
// writer on stderr (the daemon runs attached, its stdio owned by whatever
// supervises it), leveled by Config.Verbose, one "component" field per
// subsystem (see the New() calls throughout the internal packages).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the daemon's root logger. verbose selects debug level;
// otherwise info.
func New(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
