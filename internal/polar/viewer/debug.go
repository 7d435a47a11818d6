package viewer

import (
	"log"
	"sync"

	"github.com/banshee-data/polarview/internal/monitoring"
)

var (
	logMu       sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams for the viewer package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w monitoring.LogWriters) {
	logMu.Lock()
	defer logMu.Unlock()
	opsLogger = monitoring.NewLogger("[viewer] ", w.Ops)
	diagLogger = monitoring.NewLogger("[viewer] ", w.Diag)
	traceLogger = monitoring.NewLogger("[viewer] ", w.Trace)
}

func logTo(l **log.Logger, format string, args ...interface{}) {
	logMu.RLock()
	lg := *l
	logMu.RUnlock()
	if lg != nil {
		lg.Printf(format, args...)
	}
}

func opsf(format string, args ...interface{})   { logTo(&opsLogger, format, args...) }
func diagf(format string, args ...interface{})  { logTo(&diagLogger, format, args...) }
func tracef(format string, args ...interface{}) { logTo(&traceLogger, format, args...) }
