// Package logging wraps the program logger with short leveled print helpers.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level gates D and S calls: messages logged with a level at or above
// this value are suppressed. Set from the debug-level config flag.
var Level int

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
	With().Timestamp().Logger()

// Setup points the logger at the given writer and sets the debug level.
func Setup(level int, out io.Writer) {
	Level = level
	if out == nil {
		out = os.Stderr
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// I logs an informational message.
func I(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

// S logs a success message at the given debug level.
func S(l int, format string, args ...any) {
	if l > Level {
		return
	}
	logger.Info().Bool("ok", true).Msgf(format, args...)
}

// W logs a warning.
func W(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

// E logs an error message.
func E(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// D logs a debug message at the given debug level.
func D(l int, format string, args ...any) {
	if l > Level {
		return
	}
	logger.Debug().Msgf(format, args...)
}
