// Package logging builds the zerolog loggers used across pqdash.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where logs go and how much is written.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// File, when set, receives the log. The dashboard logs here so output
	// does not tear the screen.
	File string
	// Console writes to Writer (stderr by default) instead of File.
	Console bool
	Writer  io.Writer
}

// New returns a logger and a closer for its output. Output is JSON when
// APP_ENV=production and zerolog's console format otherwise.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var (
		out    io.Writer = opts.Writer
		closer io.Closer = nopCloser{}
		color            = true
	)
	switch {
	case opts.Console || opts.File == "":
		if out == nil {
			out = os.Stderr
		}
	default:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		out, closer, color = f, f, false
	}

	if os.Getenv("APP_ENV") != "production" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !color}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", "pqdash").
		Logger()
	return logger, closer, nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
