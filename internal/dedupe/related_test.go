package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/spontis/internal/event"
)

func TestMergeRelated_SimilarTitlesSameDayAndVenue(t *testing.T) {
	events := []event.Event{
		Normalize(event.Raw{Title: "Jazz Night w/ Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret", Source: "RA"}),
		Normalize(event.Raw{Title: "Jazz Night with Hanna", StartsAt: "2025-10-10T20:30:00+02:00", Venue: "kvarteret", Source: "NattJazz", URL: "https://nattjazz.no"}),
	}

	out, n := MergeRelated(events, DefaultRelatedThreshold, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Jazz Night w/ Hanna", out[0].Title)
	assert.Equal(t, []string{"RA", "NattJazz"}, out[0].Sources)
	assert.Equal(t, "https://nattjazz.no", out[0].URL)
}

func TestMergeRelated_KeepsDistinctEvents(t *testing.T) {
	base := event.Raw{Title: "Jazz Night w/ Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret"}

	tests := []struct {
		name  string
		other event.Raw
	}{
		{"different title", event.Raw{Title: "Quiz Night", StartsAt: base.StartsAt, Venue: base.Venue}},
		{"different venue", event.Raw{Title: "Jazz Night with Hanna", StartsAt: base.StartsAt, Venue: "Hulen"}},
		{"different date", event.Raw{Title: "Jazz Night with Hanna", StartsAt: "2025-10-11T20:00:00+02:00", Venue: base.Venue}},
		{"no start", event.Raw{Title: "Jazz Night with Hanna", When: "Fri 20:00", Venue: base.Venue}},
		{"no venue", event.Raw{Title: "Jazz Night with Hanna", StartsAt: base.StartsAt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := []event.Event{Normalize(base), Normalize(tt.other)}
			out, n := MergeRelated(events, DefaultRelatedThreshold, nil)
			assert.Len(t, out, 2)
			assert.Zero(t, n)
		})
	}
}

func TestMergeRelated_Disabled(t *testing.T) {
	events := []event.Event{
		Normalize(event.Raw{Title: "Jazz Night w/ Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret"}),
		Normalize(event.Raw{Title: "Jazz Night with Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret"}),
	}
	out, n := MergeRelated(events, 0, nil)
	assert.Len(t, out, 2)
	assert.Zero(t, n)
}

func TestDedupe_RelatedThreshold(t *testing.T) {
	raws := []event.Raw{
		{Title: "Jazz Night w/ Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret", Source: "RA"},
		{Title: "Quiz", When: "Thu 20:00", Venue: "Hulen"},
		{Title: "Jazz Night with Hanna", StartsAt: "2025-10-10T20:00:00+02:00", Venue: "Kvarteret", Source: "NattJazz"},
		{},
	}

	out, stats := Dedupe(raws, testOptions())
	assert.Len(t, out, 4, "off by default")
	assert.Zero(t, stats.Related)

	opts := testOptions()
	opts.RelatedThreshold = DefaultRelatedThreshold
	out, stats = Dedupe(raws, opts)
	require.Len(t, out, 3)
	assert.Equal(t, Stats{Input: 4, Related: 1, Kept: 2, Skipped: 1}, stats)
	assert.Equal(t, stats.Input, stats.Merged+stats.Related+stats.Kept+stats.Skipped)
	assert.Equal(t, []string{"RA", "NattJazz"}, out[0].Sources)
	assert.Equal(t, "Quiz", out[1].Title)
}
