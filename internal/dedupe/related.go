package dedupe

import (
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/textutil"
)

// DefaultRelatedThreshold is the title similarity the scrapers used when
// folding cross-source listings.
const DefaultRelatedThreshold = 0.8

// relatedKey is what MergeRelated compares. ok is false for events that
// cannot take part: no title, no parseable start or no venue.
type relatedKey struct {
	title string
	day   string
	venue string
	ok    bool
}

func relatedKeyOf(ev event.Event, loc *time.Location) relatedKey {
	title := textutil.NormalizeWords(ev.Title)
	venue := textutil.NormalizeWords(textutil.FirstNonEmpty(ev.Venue, ev.Where))
	t, ok := schedule.ParseStartsAt(ev.StartsAt, loc)
	if !ok || title == "" || venue == "" {
		return relatedKey{}
	}
	return relatedKey{title: title, day: t.In(loc).Format("2006-01-02"), venue: venue, ok: true}
}

// MergeRelated folds listings of one event whose titles differ slightly
// between sources ("Jazz Night w/ Hanna" vs "Jazz Night with Hanna").
// Two events are related when they start on the same local date at the
// same venue and their normalized titles have a Levenshtein similarity of
// at least threshold. Each event is folded into the first related event
// before it, using Merge.
//
// It returns the events in first-seen order and the number of merges. A
// threshold <= 0 disables the pass.
func MergeRelated(events []event.Event, threshold float64, loc *time.Location) ([]event.Event, int) {
	if threshold <= 0 || len(events) < 2 {
		return events, 0
	}
	if loc == nil {
		loc = schedule.DefaultLocation()
	}

	metric := metrics.NewLevenshtein()
	out := make([]event.Event, 0, len(events))
	keys := make([]relatedKey, 0, len(events))
	merges := 0

	for _, ev := range events {
		k := relatedKeyOf(ev, loc)
		if i := findRelated(keys, k, threshold, metric); i >= 0 {
			Merge(&out[i], ev)
			merges++
			continue
		}
		out = append(out, ev)
		keys = append(keys, k)
	}
	return out, merges
}

func findRelated(keys []relatedKey, k relatedKey, threshold float64, metric strutil.StringMetric) int {
	if !k.ok {
		return -1
	}
	for i, c := range keys {
		if !c.ok || c.day != k.day || c.venue != k.venue {
			continue
		}
		if strutil.Similarity(c.title, k.title, metric) >= threshold {
			return i
		}
	}
	return -1
}
