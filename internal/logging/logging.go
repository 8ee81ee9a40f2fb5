// Package logging wraps zerolog so every component logs the same way.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger to provide a consistent interface
type Logger struct {
	zerolog.Logger
}

// New creates a logger at level. Format "console" writes human readable
// lines to stderr, anything else writes JSON.
func New(level, format string) *Logger {
	var out io.Writer = os.Stderr
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewWithOutput(level, out)
}

// NewWithOutput creates a logger writing to a specific output
func NewWithOutput(level string, w io.Writer) *Logger {
	logger := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{Logger: logger}
}

// NewSilent creates a logger that discards all output
func NewSilent() *Logger {
	return &Logger{Logger: zerolog.New(io.Discard)}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With().Str("component", name).Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
