// Package logging builds the stderr loggers shared by every pipeline stage.
//
// Basic usage:
//
//	logger := logging.New(os.Stderr, logging.Config{Level: "info"})
//	scanLog := logging.Component(logger, "scanner")
//	scanLog.Debug("skipping directory", "path", dir, "err", err)
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// Config configures a logger.
type Config struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string
}

// ParseLevel parses a string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// New creates a logger writing to w. An unparsable level falls back to info;
// callers that care validate with ParseLevel first.
func New(w io.Writer, cfg Config) *log.Logger {
	level, _ := ParseLevel(cfg.Level)
	return log.NewWithOptions(w, log.Options{
		Prefix: "dupes",
		Level:  level,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component returns l tagged with a component name, or a discarding logger
// when l is nil.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l.With("component", name)
}
