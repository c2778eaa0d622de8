package otel

import (
	"sync"
	"time"
)

// DefaultRecorderSize bounds a Recorder created with size <= 0.
const DefaultRecorderSize = 256

// Recorder keeps the most recent events in memory, oldest dropped first.
// Goroutine-safe.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder creates a recorder holding at most size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{limit: size, events: make([]Event, 0, size)}
}

// Add stores e, evicting the oldest event when full.
func (r *Recorder) Add(e Event) {
	if e.Extra != nil {
		extra := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
		e.Extra = extra
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.limit {
		copy(r.events, r.events[1:])
		r.events = r.events[:len(r.events)-1]
	}
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the recorded events of one kind, oldest first.
func (r *Recorder) Filter(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// StageTimings sums pipeline.stage durations by stage name.
func (r *Recorder) StageTimings() map[string]time.Duration {
	totals := make(map[string]time.Duration)
	for _, e := range r.Filter(KindStage) {
		totals[e.Stage] += e.Dur
	}
	return totals
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
