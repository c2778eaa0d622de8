// Package otel records structured run events for spontis.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional Recorder keeps the most recent events in memory so the CLI can
// print per-stage timings after a run.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Pipeline events
	KindRunStart    EventKind = "pipeline.start"
	KindStage       EventKind = "pipeline.stage"
	KindDedupe      EventKind = "pipeline.dedupe"
	KindRunComplete EventKind = "pipeline.complete"
	KindRunError    EventKind = "pipeline.error"

	// Dataset IO
	KindDatasetLoad  EventKind = "dataset.load"
	KindDatasetWrite EventKind = "dataset.write"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal run record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "pipeline", "cli", "view"
	SessionID string         `json:"session_id,omitempty"` // same for the whole process
	RunID     string         `json:"run_id,omitempty"`     // one pipeline run
	Dataset   string         `json:"dataset,omitempty"`    // all, today, tonight
	Stage     string         `json:"stage,omitempty"`
	Dur       time.Duration  `json:"-"`                // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	p := plain(e)
	if e.Dur > 0 {
		p.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(p)
}
