// Package dedupe collapses records describing the same real-world event,
// usually the same gig listed by several scrapers, into one normalized
// event.
package dedupe

import (
	"time"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/logging"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/tags"
)

// statusOK is the url_status that marks a verified link.
const statusOK = 200

// Options control key and day derivation.
type Options struct {
	// Now anchors relative day words such as "tonight". Zero means time.Now.
	Now time.Time
	// Loc is the zone dates are read in. Nil means Europe/Oslo.
	Loc *time.Location
	// RelatedThreshold enables MergeRelated after the key fold. Zero
	// disables it.
	RelatedThreshold float64
}

// Stats counts what happened to the input.
// Input == Merged + Related + Kept + Skipped always holds.
type Stats struct {
	Input   int `json:"input"`
	Merged  int `json:"merged"`            // folded into an earlier record
	Related int `json:"related,omitempty"` // folded by MergeRelated
	Kept    int `json:"kept"`              // canonical records with a key
	Skipped int `json:"skipped"`           // keyless records kept standalone
}

// Dedupe normalizes raws and merges records that share a dedupe key.
//
// Output keeps first-seen order: the first record with a key becomes
// canonical in its own slot and later records with that key are folded into
// it left to right. Keyless records are appended standalone. No input record
// is ever dropped.
func Dedupe(raws []event.Raw, opts Options) ([]event.Event, Stats) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Loc == nil {
		opts.Loc = schedule.DefaultLocation()
	}

	stats := Stats{Input: len(raws)}
	out := make([]event.Event, 0, len(raws))
	index := make(map[string]int, len(raws))

	for _, r := range raws {
		ev := Normalize(r)
		key := schedule.BuildDedupeKey(ev, opts.Loc)
		if key == "" {
			out = append(out, ev)
			stats.Skipped++
			continue
		}
		if i, ok := index[key]; ok {
			Merge(&out[i], ev)
			stats.Merged++
			continue
		}
		index[key] = len(out)
		out = append(out, ev)
		stats.Kept++
	}

	// Only titled records can relate, and every titled record has a key.
	if opts.RelatedThreshold > 0 {
		var n int
		out, n = MergeRelated(out, opts.RelatedThreshold, opts.Loc)
		stats.Related = n
		stats.Kept -= n
	}

	for i := range out {
		if out[i].DayIndex != nil {
			continue
		}
		if info := schedule.DeriveDayInfo(out[i], opts.Now, opts.Loc); info != nil {
			idx := info.Index
			out[i].DayIndex = &idx
		}
	}

	logging.Debug("dedupe", "input", stats.Input, "merged", stats.Merged, "related", stats.Related, "kept", stats.Kept, "skipped", stats.Skipped)
	return out, stats
}

// Normalize builds one event from a raw record with its tags sanitized.
func Normalize(r event.Raw) event.Event {
	ev := event.FromRaw(r)
	ev.Tags = tags.SanitizeTagList(r.Tags)
	if r.DayIndex != nil {
		idx := *r.DayIndex
		ev.DayIndex = &idx
	}
	return ev
}

// Merge folds incoming into canonical. Scalars keep the first non-empty
// value; tags, sources and source links are unioned. The url is replaced
// when the canonical link is known broken and the incoming one is verified.
func Merge(canonical *event.Event, incoming event.Event) {
	mergeURL(canonical, incoming)

	firstNonEmpty(&canonical.Title, incoming.Title)
	firstNonEmpty(&canonical.Source, incoming.Source)
	firstNonEmpty(&canonical.When, incoming.When)
	firstNonEmpty(&canonical.Where, incoming.Where)
	firstNonEmpty(&canonical.Venue, incoming.Venue)
	firstNonEmpty(&canonical.City, incoming.City)
	firstNonEmpty(&canonical.Location, incoming.Location)
	firstNonEmpty(&canonical.StartsAt, incoming.StartsAt)
	firstNonEmpty(&canonical.EndsAt, incoming.EndsAt)
	firstNonEmpty(&canonical.Description, incoming.Description)
	firstNonEmpty(&canonical.Summary, incoming.Summary)
	firstNonEmpty(&canonical.TicketURL, incoming.TicketURL)
	if canonical.DayIndex == nil && incoming.DayIndex != nil {
		idx := *incoming.DayIndex
		canonical.DayIndex = &idx
	}

	merged := make([]string, 0, len(canonical.Tags)+len(incoming.Tags))
	merged = append(merged, canonical.Tags...)
	merged = append(merged, incoming.Tags...)
	canonical.Tags = tags.SanitizeTagList(merged)

	for _, s := range incoming.Sources {
		canonical.AddSource(s)
	}
	for _, l := range incoming.SourceLinks {
		canonical.AddSourceLink(l)
	}
}

func mergeURL(canonical *event.Event, incoming event.Event) {
	switch {
	case canonical.URL == "" && incoming.URL != "":
		canonical.URL = incoming.URL
		canonical.URLStatus = copyInt(incoming.URLStatus)
	case isBroken(canonical.URLStatus) && isOK(incoming.URLStatus) && incoming.URL != "":
		canonical.URL = incoming.URL
		canonical.URLStatus = copyInt(incoming.URLStatus)
	case canonical.URLStatus == nil && canonical.URL == incoming.URL:
		canonical.URLStatus = copyInt(incoming.URLStatus)
	}
}

func isBroken(status *int) bool { return status != nil && *status != statusOK }

func isOK(status *int) bool { return status != nil && *status == statusOK }

func firstNonEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
