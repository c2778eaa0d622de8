// Package views derives the secondary lists shown next to the main feed:
// the today and tonight windows, the weekly heatmap, per-source and per-vibe
// groupings and the tag filter.
// All functions are simple: []Event in, new values out. No side effects.
package views

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/tags"
	"github.com/abelbrown/spontis/internal/vibe"
)

// Options hold the view windows.
type Options struct {
	Loc *time.Location

	// TodayRadius is the half-width of the today window around now.
	TodayRadius time.Duration

	// Tonight starts at TonightStartHour (or now, if later) and lasts
	// TonightWindow. Before NightEndHour the previous evening still counts.
	TonightStartHour int
	TonightWindow    time.Duration
	NightEndHour     int

	// EveningHour is when the default dataset switches to tonight.
	EveningHour int
}

// DefaultOptions returns the standard windows.
func DefaultOptions() Options {
	return Options{
		TodayRadius:      6 * time.Hour,
		TonightStartHour: 18,
		TonightWindow:    6 * time.Hour,
		NightEndHour:     4,
		EveningHour:      16,
	}
}

func (o Options) location() *time.Location {
	if o.Loc == nil {
		return schedule.DefaultLocation()
	}
	return o.Loc
}

type timed struct {
	ev event.Event
	at time.Time
}

// between returns events starting in [from, to], by start time.
func between(events []event.Event, from, to time.Time, loc *time.Location) []event.Event {
	var hits []timed
	for _, ev := range events {
		t, ok := schedule.ParseStartsAt(ev.StartsAt, loc)
		if !ok || t.Before(from) || t.After(to) {
			continue
		}
		hits = append(hits, timed{ev, t})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at.Before(hits[j].at) })

	result := make([]event.Event, len(hits))
	for i, h := range hits {
		result[i] = h.ev
	}
	return result
}

// BuildToday returns events starting within TodayRadius of now, by start
// time. Undated events are left out.
func BuildToday(events []event.Event, now time.Time, opts Options) []event.Event {
	return between(events, now.Add(-opts.TodayRadius), now.Add(opts.TodayRadius), opts.location())
}

// EveningStart returns the start of the tonight window: TonightStartHour
// today, or now once that has passed. Before NightEndHour it is the
// previous day's TonightStartHour.
func EveningStart(now time.Time, opts Options) time.Time {
	now = now.In(opts.location())
	y, m, d := now.Date()
	evening := time.Date(y, m, d, opts.TonightStartHour, 0, 0, 0, now.Location())

	switch {
	case now.Hour() < opts.NightEndHour:
		return evening.AddDate(0, 0, -1)
	case !now.Before(evening):
		return now
	}
	return evening
}

// BuildTonight returns events starting within TonightWindow of
// EveningStart, by start time.
func BuildTonight(events []event.Event, now time.Time, opts Options) []event.Event {
	start := EveningStart(now, opts)
	return between(events, start, start.Add(opts.TonightWindow), opts.location())
}

// IsEvening reports whether now is between EveningHour and NightEndHour.
func IsEvening(now time.Time, opts Options) bool {
	h := now.In(opts.location()).Hour()
	return h >= opts.EveningHour || h < opts.NightEndHour
}

// DefaultDataset is "tonight" in the evening and "all" otherwise.
func DefaultDataset(now time.Time, opts Options) string {
	if IsEvening(now, opts) {
		return "tonight"
	}
	return "all"
}

// DropPast removes events that ended, or started more than grace ago when
// no end is known. Undated events are kept.
func DropPast(events []event.Event, now time.Time, grace time.Duration, loc *time.Location) []event.Event {
	result := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if end, ok := schedule.ParseStartsAt(ev.EndsAt, loc); ok {
			if end.Before(now) {
				continue
			}
		} else if start, ok := schedule.ParseStartsAt(ev.StartsAt, loc); ok && start.Add(grace).Before(now) {
			continue
		}
		result = append(result, ev)
	}
	return result
}

// DayCount is one heatmap cell.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Heatmap counts events per weekday, Monday first. Events without a day
// are not counted.
func Heatmap(events []event.Event) []DayCount {
	cells := make([]DayCount, 7)
	for i := range cells {
		cells[i].Day = schedule.DayInfoFor((i + 1) % 7).Short
	}
	for _, ev := range events {
		if ev.DayIndex == nil || *ev.DayIndex < 0 || *ev.DayIndex > 6 {
			continue
		}
		cells[(*ev.DayIndex+6)%7].Count++
	}
	return cells
}

// SourceCount is one row of the source rollup.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// SourceRollup counts events per source, most common first. A merged event
// counts once for every source it came from.
func SourceRollup(events []event.Event) []SourceCount {
	counts := make(map[string]int)
	for _, ev := range events {
		if len(ev.Sources) == 0 {
			counts["unknown"]++
			continue
		}
		for _, s := range ev.Sources {
			counts[s]++
		}
	}

	rows := make([]SourceCount, 0, len(counts))
	for s, n := range counts {
		rows = append(rows, SourceCount{Source: s, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return strings.ToLower(rows[i].Source) < strings.ToLower(rows[j].Source)
	})
	return rows
}

// Cluster groups the events of one vibe.
type Cluster struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Events []event.Event `json:"events"`
}

// VibeClusters groups events by vibe in category order. Empty clusters are
// omitted and events keep their relative order.
func VibeClusters(events []event.Event) []Cluster {
	var clusters []Cluster
	for _, c := range vibe.Categories() {
		var members []event.Event
		for _, ev := range events {
			if vibeOf(ev) == c.ID {
				members = append(members, ev)
			}
		}
		if len(members) > 0 {
			clusters = append(clusters, Cluster{ID: c.ID, Label: c.Label, Events: members})
		}
	}
	return clusters
}

func vibeOf(ev event.Event) string {
	if ev.Vibe == "" {
		return vibe.Performance
	}
	return ev.Vibe
}

// HasVibe reports whether any event has the vibe id. Events without a vibe
// count as performance.
func HasVibe(events []event.Event, id string) bool {
	if id == "" {
		return false
	}
	for _, ev := range events {
		if vibeOf(ev) == id {
			return true
		}
	}
	return false
}

// CollectTags returns every tag in use, in display order.
func CollectTags(events []event.Event) []string {
	var all []string
	for _, ev := range events {
		all = append(all, ev.Tags...)
	}
	return tags.SanitizeTagList(all)
}

// FilterByTag keeps events carrying tag. An empty tag keeps everything.
func FilterByTag(events []event.Event, tag string) []event.Event {
	result := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if tag == "" || ev.HasTag(tag) {
			result = append(result, ev)
		}
	}
	return result
}

// Surprise picks a random event. It reports false for an empty list.
func Surprise(events []event.Event, r *rand.Rand) (event.Event, bool) {
	if len(events) == 0 {
		return event.Event{}, false
	}
	return events[r.Intn(len(events))], true
}
