package engine

import (
	"github.com/charmbracelet/log"

	"github.com/ivoronin/dupes/internal/types"
)

// ErrorSink receives per-file read errors. Errors never stop the run.
type ErrorSink interface {
	ReadError(fe types.FileError)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(fe types.FileError)

// ReadError calls f(fe).
func (f ErrorSinkFunc) ReadError(fe types.FileError) { f(fe) }

type discard struct{}

func (discard) ReadError(types.FileError) {}

// Discard drops every error.
var Discard ErrorSink = discard{}

// LogSink logs each read error at warn level.
type LogSink struct {
	Logger *log.Logger
}

// ReadError logs fe.
func (s LogSink) ReadError(fe types.FileError) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn("error reading file", "size", fe.Size, "path", fe.Path, "err", fe.Err)
}

// Collect accumulates errors in memory. Not safe for concurrent use; the
// engine only calls sinks from Run's goroutine.
type Collect struct {
	Errors []types.FileError
}

// ReadError appends fe.
func (c *Collect) ReadError(fe types.FileError) { c.Errors = append(c.Errors, fe) }
