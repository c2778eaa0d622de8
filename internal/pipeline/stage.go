// Package pipeline runs a batch of raw events through every normalization
// stage and composes the display feed.
//
// # Stages
//
// Dedupe turns raw records into events. Every later step is a [Stage]:
//
//	raws -> dedupe -> tags -> vibe -> display -> order -> balanced feed
//
// Each stage receives the output of the previous one. Stages are pure: they
// copy what they change and never keep state between runs.
//
// # Context Cancellation
//
// The stages themselves never block. Run checks ctx between stages and
// returns ctx.Err() if the caller gave up.
package pipeline

import (
	"context"

	"github.com/abelbrown/spontis/internal/event"
)

// Stage transforms a batch of normalized events.
//
// Stages SHOULD NOT modify the input slice; create a new slice for output.
type Stage interface {
	// Name returns the stage name for logging and run events.
	Name() string

	// Run executes the stage. It returns ctx.Err() if ctx is already done.
	Run(ctx context.Context, events []event.Event) ([]event.Event, error)
}

// SyncStage adapts a plain function to Stage.
//
// Example:
//
//	stage := NewSyncStage("drop-untitled", func(events []event.Event) []event.Event {
//	    out := make([]event.Event, 0, len(events))
//	    for _, ev := range events {
//	        if ev.Title != "" {
//	            out = append(out, ev)
//	        }
//	    }
//	    return out
//	})
type SyncStage struct {
	name string
	fn   func(events []event.Event) []event.Event
}

// NewSyncStage creates a synchronous stage from a function.
func NewSyncStage(name string, fn func(events []event.Event) []event.Event) *SyncStage {
	return &SyncStage{name: name, fn: fn}
}

// Name returns the stage name.
func (s *SyncStage) Name() string {
	return s.name
}

// Run executes the stage synchronously.
func (s *SyncStage) Run(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fn(events), nil
}

// mapStage applies fn to a clone of every event.
func mapStage(name string, fn func(ev *event.Event)) *SyncStage {
	return NewSyncStage(name, func(events []event.Event) []event.Event {
		out := make([]event.Event, len(events))
		for i, ev := range events {
			c := ev.Clone()
			fn(&c)
			out[i] = c
		}
		return out
	})
}
