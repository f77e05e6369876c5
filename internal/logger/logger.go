// Package logger provides configured zerolog loggers.
package logger

import (
	"io"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a JSON logger writing to w, tagged with component.
// Call sites should use .Stack() on error events to include stacks.
func New(w io.Writer, component string, level zerolog.Level) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}

	return zerolog.New(w).Level(level).With().
		Str("component", component).
		Timestamp().
		Logger()
}

// NewConsole returns a human-readable logger for the CLI. A nil w means stderr.
func NewConsole(w io.Writer, component, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	return New(out, component, ParseLevel(level))
}

// ParseLevel maps a level name to a zerolog level, defaulting to warn.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.WarnLevel
	}
	return lvl
}
