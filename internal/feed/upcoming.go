package feed

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
)

// Window defaults.
const (
	DefaultNearTerm      = 4 * time.Hour
	DefaultEvening       = 14 * time.Hour
	DefaultGrace         = 45 * time.Minute
	DefaultUpcomingLimit = 8
)

// Window is the look-ahead used to pick events starting soon.
type Window struct {
	NearTerm time.Duration // first bucket, e.g. the next few hours
	Evening  time.Duration // second bucket, the rest of the evening
	Grace    time.Duration // events that started this recently still count
	Limit    int
	Loc      *time.Location // zone for starts_at values without offset
}

// DefaultWindow returns the standard window.
func DefaultWindow() Window {
	return Window{
		NearTerm: DefaultNearTerm,
		Evening:  DefaultEvening,
		Grace:    DefaultGrace,
		Limit:    DefaultUpcomingLimit,
	}
}

func (w Window) withDefaults() Window {
	d := DefaultWindow()
	if w.NearTerm <= 0 {
		w.NearTerm = d.NearTerm
	}
	if w.Evening <= 0 {
		w.Evening = d.Evening
	}
	if w.Grace < 0 {
		w.Grace = 0
	}
	if w.Limit <= 0 {
		w.Limit = d.Limit
	}
	return w
}

// SelectUpcoming returns events starting within the window: the near-term
// bucket first, then the evening bucket, each by start time ascending.
// Events without a parseable starts_at are never selected. Duplicates by
// title, starts_at and url are dropped and the result is capped at
// w.Limit.
func SelectUpcoming(events []event.Event, now time.Time, w Window) []event.Event {
	return pick(events, selectUpcoming(events, now, w))
}

type timed struct {
	index int
	at    time.Time
}

// selectUpcoming returns indexes into events.
func selectUpcoming(events []event.Event, now time.Time, w Window) []int {
	w = w.withDefaults()

	var near, evening []timed
	for i, ev := range events {
		t, ok := schedule.ParseStartsAt(ev.StartsAt, w.Loc)
		if !ok {
			continue
		}
		if t.Add(w.Grace).Before(now) {
			continue
		}
		switch diff := t.Sub(now); {
		case diff <= w.NearTerm:
			near = append(near, timed{i, t})
		case diff <= w.Evening:
			evening = append(evening, timed{i, t})
		}
	}
	byTime := func(s []timed) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].at.Before(s[j].at) })
	}
	byTime(near)
	byTime(evening)

	result := make([]int, 0, w.Limit)
	seen := make(map[string]bool)
	for _, e := range append(near, evening...) {
		key := upcomingKey(events[e.index])
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, e.index)
		if len(result) >= w.Limit {
			break
		}
	}
	return result
}

func upcomingKey(ev event.Event) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(ev.Title) + "|" + norm(ev.StartsAt) + "|" + norm(ev.URL)
}

// FormatRelativeStart describes t relative to now in Norwegian:
// "Starter nå" within five minutes either side, "Startet nylig" further in
// the past, then "Om N min" or "Om N t".
func FormatRelativeStart(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := t.Sub(now)
	if diff.Abs() < 5*time.Minute {
		return "Starter nå"
	}
	if diff < 0 {
		return "Startet nylig"
	}
	minutes := int(math.Round(diff.Minutes()))
	if minutes < 60 {
		return fmt.Sprintf("Om %d min", minutes)
	}
	return fmt.Sprintf("Om %d t", int(math.Round(diff.Hours())))
}
