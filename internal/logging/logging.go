// Package logging builds the zerolog logger shared by a gcm run.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New constructs a logger writing to w (stderr when nil) at the given level
// and format ("console" or "json"). Every entry carries the run id.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, errors.Wrapf(err, "log level %q", level)
	}

	var base zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		base = zerolog.New(w)
	case "console", "":
		base = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	default:
		return zerolog.Logger{}, errors.Newf("unsupported log format %q", format)
	}

	return base.Level(lvl).With().
		Timestamp().
		Str("run", uuid.NewString()[:8]).
		Logger(), nil
}
