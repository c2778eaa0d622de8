package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/spontis/internal/dedupe"
	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/otel"
	"github.com/abelbrown/spontis/internal/schedule"
)

// Thursday 2025-10-09 12:00 in Oslo.
func fixedClock() time.Time {
	return time.Date(2025, 10, 9, 12, 0, 0, 0, schedule.DefaultLocation())
}

func newTestPipeline(logger *otel.Logger) *Pipeline {
	return New(Options{Now: fixedClock, Events: logger})
}

func TestRun_JazzNight(t *testing.T) {
	batch := []byte(`[
		{"title":"Jazz Night","venue":"Kvarteret","when":"Fri 20:00","source":"RA"},
		{"title":"Jazz Night","venue":"Kvarteret","when":"Fri 20:00","source":"NattJazz","url":"https://nattjazz.no"}
	]`)

	res, err := newTestPipeline(nil).RunJSON(context.Background(), DatasetAll, batch)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)

	ev := res.Events[0]
	assert.Equal(t, []string{"RA", "NattJazz"}, ev.Sources)
	assert.Equal(t, "https://nattjazz.no", ev.URL)
	assert.Contains(t, ev.Tags, "jazz")
	assert.Equal(t, "jazz", ev.Vibe)
	assert.Equal(t, "Jazz Night", ev.DisplayHeadline)
	assert.Equal(t, "Fri 20:00", ev.DisplayWhen)
	assert.Equal(t, "Kvarteret", ev.DisplayWhere)

	assert.Len(t, res.Feed, 1)
	assert.Equal(t, 1, res.Stats.Dedupe.Merged)
	assert.Equal(t, 1, res.Stats.Vibes["jazz"])
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, fixedClock(), res.GeneratedAt)
}

func TestRunJSON_NotArray(t *testing.T) {
	_, err := newTestPipeline(nil).RunJSON(context.Background(), DatasetTonight, []byte(`{"title":"x"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, event.ErrNotArray))
	assert.Contains(t, err.Error(), "tonight")
}

func TestRunJSON_MalformedFieldsTolerated(t *testing.T) {
	batch := []byte(`[
		{"title": 42, "tags": ["Bar!!", 7, null, "xyz123"], "starts_at": "not a date", "dayIndex": 12},
		"just a string",
		{"title": "Quiz", "when": "Tonight 20:00", "url_status": "200"}
	]`)
	res, err := newTestPipeline(nil).RunJSON(context.Background(), DatasetAll, batch)
	require.NoError(t, err)
	require.Len(t, res.Events, 3)

	for _, ev := range res.Events {
		assert.NotNil(t, ev.Tags)
		assert.NotEmpty(t, ev.Vibe)
		assert.NotEmpty(t, ev.DisplayHeadline)
		assert.NotEmpty(t, ev.DisplayWhen)
	}

	var quiz event.Event
	for _, ev := range res.Events {
		if ev.Title == "Quiz" {
			quiz = ev
		}
	}
	require.NotNil(t, quiz.DayIndex)
	assert.Equal(t, 4, *quiz.DayIndex, "tonight resolves against the run clock")
	assert.Nil(t, quiz.URLStatus)
}

func TestRun_DisplayFallbacks(t *testing.T) {
	raws := []event.Raw{
		{Title: "   ", City: "Bergen"},
		{Title: "Dated", StartsAt: "2025-10-10T20:00:00+02:00", Location: "Bryggen"},
	}
	res, err := newTestPipeline(nil).Run(context.Background(), DatasetAll, raws)
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	// Absolute start sorts first.
	assert.Equal(t, "Dated", res.Events[0].DisplayHeadline)
	assert.Equal(t, "Fri 20:00", res.Events[0].DisplayWhen)
	assert.Equal(t, "Bryggen", res.Events[0].DisplayWhere)

	assert.Equal(t, UntitledHeadline, res.Events[1].DisplayHeadline)
	assert.Equal(t, TimeTBA, res.Events[1].DisplayWhen)
	assert.Equal(t, "Bergen", res.Events[1].DisplayWhere)
}

func TestRun_Idempotent(t *testing.T) {
	raws := []event.Raw{
		{Title: "Techno til 05", When: "Sat 23:00", Venue: "Hulen", Source: "RA", Tags: []string{"Club"}},
		{Title: "Filmkveld", StartsAt: "2025-10-09T19:00:00+02:00", Source: "Bergen Kino"},
		{Title: "Foredrag", When: "Tomorrow 18:00", Source: "Litteraturhuset"},
	}
	p := newTestPipeline(nil)
	a, err := p.Run(context.Background(), DatasetAll, raws)
	require.NoError(t, err)
	b, err := p.Run(context.Background(), DatasetAll, raws)
	require.NoError(t, err)

	assert.Equal(t, a.Events, b.Events)
	assert.Equal(t, a.Feed, b.Feed)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRun_FeedIsPermutationOfEvents(t *testing.T) {
	var raws []event.Raw
	sources := []string{"RA", "Bergen Kino", "", "Hulen", "RA", "RA"}
	for i := 0; i < 30; i++ {
		r := event.Raw{Title: fmt.Sprintf("Event %d", i), Source: sources[i%len(sources)], Venue: "Sted"}
		if i%2 == 0 {
			r.StartsAt = fixedClock().Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		} else {
			r.When = "Sat"
		}
		raws = append(raws, r)
	}

	res, err := newTestPipeline(nil).Run(context.Background(), DatasetAll, raws)
	require.NoError(t, err)
	require.Len(t, res.Feed, len(res.Events))

	seen := map[string]int{}
	for _, ev := range res.Feed {
		seen[ev.Title]++
	}
	for _, ev := range res.Events {
		assert.Equal(t, 1, seen[ev.Title], ev.Title)
	}
	assert.LessOrEqual(t, len(res.Upcoming), 8)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(nil).Run(ctx, DatasetAll, []event.Raw{{Title: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmitsRunEvents(t *testing.T) {
	orig := otel.TraceEnabled()
	defer otel.SetTraceEnabled(orig)
	otel.SetTraceEnabled(true)

	logger := otel.NewNullLogger()
	rec := otel.NewRecorder(64)
	logger.SetRecorder(rec)

	_, err := newTestPipeline(logger).Run(context.Background(), DatasetToday, []event.Raw{{Title: "a"}, {Title: "a"}})
	require.NoError(t, err)
	logger.Close()

	require.Len(t, rec.Filter(otel.KindRunStart), 1)
	require.Len(t, rec.Filter(otel.KindRunComplete), 1)
	dd := rec.Filter(otel.KindDedupe)
	require.Len(t, dd, 1)
	assert.Equal(t, 1, dd[0].Extra["merged"])
	assert.Equal(t, DatasetToday, dd[0].Dataset)

	timings := rec.StageTimings()
	for _, stage := range []string{"dedupe", "tags", "vibe", "display", "order"} {
		_, ok := timings[stage]
		assert.True(t, ok, "missing stage event %s", stage)
	}
}

func TestRunAll(t *testing.T) {
	batches := map[string][]byte{
		DatasetAll:     []byte(`[{"title":"Quiz","when":"Thu 20:00"},{"title":"Jazz","when":"Fri"}]`),
		DatasetToday:   []byte(`[{"title":"Quiz","when":"Thu 20:00"}]`),
		DatasetTonight: []byte(`[]`),
	}
	results, err := newTestPipeline(nil).RunAll(context.Background(), batches)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, results[DatasetAll].Events, 2)
	assert.Len(t, results[DatasetToday].Events, 1)
	assert.Empty(t, results[DatasetTonight].Events)
	assert.NotNil(t, results[DatasetTonight].Feed)
	assert.Equal(t, DatasetToday, results[DatasetToday].Dataset)
}

func TestRunAll_FirstErrorWins(t *testing.T) {
	batches := map[string][]byte{
		DatasetAll:   []byte(`[{"title":"ok"}]`),
		DatasetToday: []byte(`"nope"`),
	}
	results, err := newTestPipeline(nil).RunAll(context.Background(), batches)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, event.ErrNotArray)
	assert.Contains(t, err.Error(), "dataset today")
}

func TestSyncStageHonoursContext(t *testing.T) {
	stage := NewSyncStage("noop", func(events []event.Event) []event.Event { return events })
	assert.Equal(t, "noop", stage.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := stage.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStagesDoNotMutateInput(t *testing.T) {
	in := []event.Event{{Title: "Jazz", Tags: []string{}, Sources: []string{}}}
	p := newTestPipeline(nil)
	_, err := p.Stages()[0].Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, in[0].Tags)
}

func TestDatasets(t *testing.T) {
	d := NewDatasets()
	_, ok := d.Get(DatasetAll)
	assert.False(t, ok)

	d.Set(DatasetTonight, &Result{RunID: "b"})
	d.SetAll(map[string]*Result{DatasetAll: {RunID: "a"}, "weekend": {RunID: "c"}})

	res, ok := d.Get(DatasetAll)
	require.True(t, ok)
	assert.Equal(t, "a", res.RunID)
	assert.Equal(t, []string{DatasetAll, DatasetTonight, "weekend"}, d.Names())

	snap := d.Snapshot()
	delete(snap, DatasetAll)
	_, ok = d.Get(DatasetAll)
	assert.True(t, ok, "snapshot is a copy")
}

func TestDatasetsConcurrentAccess(t *testing.T) {
	d := NewDatasets()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			d.Set(DatasetNames[i%3], &Result{RunID: fmt.Sprint(i)})
		}(i)
		go func() {
			defer wg.Done()
			d.Get(DatasetAll)
			d.Names()
		}()
	}
	wg.Wait()
	assert.Len(t, d.Snapshot(), 3)
}

func TestRun_RelatedThreshold(t *testing.T) {
	raws := []event.Raw{
		{Title: "Jazz Night w/ Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret", Source: "RA"},
		{Title: "Jazz Night with Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret", Source: "NattJazz"},
	}

	res, err := newTestPipeline(nil).Run(context.Background(), DatasetAll, raws)
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)

	p := New(Options{Now: fixedClock, RelatedThreshold: dedupe.DefaultRelatedThreshold})
	res, err = p.Run(context.Background(), DatasetAll, raws)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, []string{"RA", "NattJazz"}, res.Events[0].Sources)
	assert.Equal(t, 1, res.Stats.Dedupe.Related)
	assert.Len(t, res.Feed, 1)
}
