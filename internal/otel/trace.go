package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled turns on per-stage events. Read once at init from
// SPONTIS_TRACE.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("SPONTIS_TRACE") != "")
}

// TraceEnabled reports whether per-stage pipeline events should be emitted.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides SPONTIS_TRACE, for the --trace flag.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
