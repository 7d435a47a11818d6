package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogWriters holds the io.Writers for the three logging streams used by the
// processing packages:
//
//   - Ops: actionable warnings, failed requests, lifecycle events.
//   - Diag: per-request diagnostics (timings, field statistics).
//   - Trace: high-frequency telemetry (viewer ticks, queue depth).
//
// A nil writer disables that stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// Legacy routes all three streams to a single writer.
func Legacy(w io.Writer) LogWriters {
	return LogWriters{Ops: w, Diag: w, Trace: w}
}

// NewLogger creates a *log.Logger for a given writer, or returns nil if w is nil.
func NewLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}
