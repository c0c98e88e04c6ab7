// Package obslog provides the structured logger shared by every awf
// component. It binds a component name to each logger the same way
// the sandbox manager bound a single "[fence]" prefix, but routes
// through zerolog so fields (run_id, container, stage) stay queryable
// instead of living inside a format string.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New returns a logger for the given component, writing to w at the
// given level. debug forces zerolog.DebugLevel regardless of level.
func New(w io.Writer, component string, level zerolog.Level, debug bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Nop returns a logger that discards everything, used by tests that
// don't care about log output.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel maps a CLI-supplied log-level string to a zerolog.Level,
// defaulting to Info on an empty or unrecognized string.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
