package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/spontis/internal/dedupe"
	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/feed"
	"github.com/abelbrown/spontis/internal/logging"
	"github.com/abelbrown/spontis/internal/otel"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/tags"
	"github.com/abelbrown/spontis/internal/vibe"
)

// Options configure a Pipeline. Zero values fall back to defaults.
type Options struct {
	// Loc is the zone for dates without offset. Nil means Europe/Oslo.
	Loc *time.Location
	// Now is the run clock. Nil means time.Now.
	Now func() time.Time
	// Feed configures the balanced feed. Zero means feed.DefaultConfig.
	Feed *feed.Config
	// RelatedThreshold turns on the fuzzy title merge after dedupe.
	// Zero disables it.
	RelatedThreshold float64
	// Events receives run events. Nil disables them.
	Events *otel.Logger
}

// Pipeline holds everything a run needs. It has no package-level state,
// so several pipelines with different clocks or zones can coexist.
type Pipeline struct {
	loc     *time.Location
	now     func() time.Time
	feed    feed.Config
	related float64
	events  *otel.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		loc:     opts.Loc,
		now:     opts.Now,
		feed:    feed.DefaultConfig(),
		related: opts.RelatedThreshold,
		events:  opts.Events,
	}
	if p.loc == nil {
		p.loc = schedule.DefaultLocation()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if opts.Feed != nil {
		p.feed = *opts.Feed
	}
	if p.feed.Window.Loc == nil {
		p.feed.Window.Loc = p.loc
	}
	return p
}

// Location returns the pipeline's zone.
func (p *Pipeline) Location() *time.Location {
	return p.loc
}

// Stats summarizes one run.
type Stats struct {
	Dedupe   dedupe.Stats   `json:"dedupe"`
	Events   int            `json:"events"`
	Upcoming int            `json:"upcoming"`
	Vibes    map[string]int `json:"vibes"`
	Tags     map[string]int `json:"tags"`
}

// Result is the output of one run.
type Result struct {
	RunID       string        `json:"run_id"`
	Dataset     string        `json:"dataset,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Events      []event.Event `json:"events"` // chronological, every stage applied
	Feed        []event.Event `json:"feed"`
	Upcoming    []event.Event `json:"upcoming"`
	Stats       Stats         `json:"stats"`
}

// Stages returns the stages that run after dedupe, in order.
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		mapStage("tags", func(ev *event.Event) {
			tags.Apply(ev, tags.CombinedText(*ev))
			tags.ApplyTimeRules(ev, p.loc)
		}),
		mapStage("vibe", func(ev *event.Event) {
			ev.Vibe = vibe.Detect(*ev, tags.CombinedText(*ev))
		}),
		mapStage("display", func(ev *event.Event) {
			applyDisplay(ev, p.loc)
		}),
		NewSyncStage("order", func(events []event.Event) []event.Event {
			return feed.Sort(events, p.loc)
		}),
	}
}

// RunJSON parses a JSON array batch and runs it. A batch that is not an
// array fails with an error wrapping event.ErrNotArray.
func (p *Pipeline) RunJSON(ctx context.Context, dataset string, data []byte) (*Result, error) {
	raws, err := event.ParseBatch(data)
	if err != nil {
		p.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindRunError, Comp: "pipeline", Dataset: dataset, Err: err.Error()})
		logging.Error("dataset rejected", "dataset", dataset, "err", err)
		return nil, fmt.Errorf("dataset %s: %w", dataset, err)
	}
	return p.Run(ctx, dataset, raws)
}

// Run normalizes raws and composes the feed. The whole batch must be
// loaded before calling Run.
func (p *Pipeline) Run(ctx context.Context, dataset string, raws []event.Raw) (*Result, error) {
	start := time.Now()
	now := p.now()
	runID := uuid.NewString()

	p.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRunStart, Comp: "pipeline", RunID: runID, Dataset: dataset, Count: len(raws)})

	fail := func(stage string, err error) (*Result, error) {
		p.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindRunError, Comp: "pipeline", RunID: runID, Dataset: dataset, Stage: stage, Err: err.Error()})
		logging.Warn("pipeline aborted", "dataset", dataset, "stage", stage, "err", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail("dedupe", err)
	}
	stageStart := time.Now()
	events, dstats := dedupe.Dedupe(raws, dedupe.Options{Now: now, Loc: p.loc, RelatedThreshold: p.related})
	p.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindDedupe,
		Comp:    "pipeline",
		RunID:   runID,
		Dataset: dataset,
		Dur:     time.Since(stageStart),
		Count:   len(events),
		Extra:   map[string]any{"merged": dstats.Merged, "related": dstats.Related, "kept": dstats.Kept, "skipped": dstats.Skipped},
	})
	p.traceStage(runID, dataset, "dedupe", time.Since(stageStart), len(events))

	for _, stage := range p.Stages() {
		stageStart = time.Now()
		out, err := stage.Run(ctx, events)
		if err != nil {
			return fail(stage.Name(), err)
		}
		events = out
		p.traceStage(runID, dataset, stage.Name(), time.Since(stageStart), len(events))
	}

	if err := ctx.Err(); err != nil {
		return fail("feed", err)
	}
	balanced := feed.CreateBalancedFeed(events, now, p.feed)

	res := &Result{
		RunID:       runID,
		Dataset:     dataset,
		GeneratedAt: now,
		Events:      events,
		Feed:        balanced.Feed,
		Upcoming:    balanced.Upcoming,
		Stats:       summarize(events, dstats, len(balanced.Upcoming)),
	}

	dur := time.Since(start)
	p.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRunComplete, Comp: "pipeline", RunID: runID, Dataset: dataset, Dur: dur, Count: len(events)})
	logging.Info("pipeline complete", "dataset", dataset, "input", len(raws), "events", len(events), "upcoming", len(balanced.Upcoming), "dur", dur)
	return res, nil
}

// RunAll runs every batch concurrently, keyed by dataset name. The first
// failure cancels the remaining runs and is returned.
func (p *Pipeline) RunAll(ctx context.Context, batches map[string][]byte) (map[string]*Result, error) {
	var mu sync.Mutex
	results := make(map[string]*Result, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	for name, data := range batches {
		name, data := name, data
		g.Go(func() error {
			res, err := p.RunJSON(ctx, name, data)
			if err != nil {
				return err
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) traceStage(runID, dataset, stage string, dur time.Duration, count int) {
	if !otel.TraceEnabled() {
		return
	}
	p.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindStage, Comp: "pipeline", RunID: runID, Dataset: dataset, Stage: stage, Dur: dur, Count: count})
}

func summarize(events []event.Event, d dedupe.Stats, upcoming int) Stats {
	s := Stats{
		Dedupe:   d,
		Events:   len(events),
		Upcoming: upcoming,
		Vibes:    make(map[string]int),
		Tags:     make(map[string]int),
	}
	for _, ev := range events {
		s.Vibes[ev.Vibe]++
		for _, t := range ev.Tags {
			s.Tags[t]++
		}
	}
	return s
}
