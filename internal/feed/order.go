// Package feed orders events chronologically and composes the balanced
// display feed.
// All functions are simple: []Event in, []Event out. No side effects.
package feed

import (
	"sort"
	"strings"
	"time"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
)

// Kind tells absolute and relative sort keys apart.
type Kind int

const (
	// Absolute keys hold a Unix millisecond timestamp from starts_at.
	Absolute Kind = iota
	// Relative keys hold day*10000 + minute of day.
	Relative
)

func (k Kind) String() string {
	if k == Absolute {
		return "absolute"
	}
	return "relative"
}

// Relative key weights.
const (
	dayWeight = 10000
	// unknownDay sorts after Sunday (7).
	unknownDay = 8
	// noTimeMinutes places a known day without a time after every timed
	// event on that day.
	noTimeMinutes = 24 * 60
	// noInfo sorts after everything else: no day and no time.
	noInfo = (unknownDay + 1) * dayWeight
)

// SortKey is the chronological position of an event.
type SortKey struct {
	Kind  Kind
	Value int64
}

// SortKeyOf returns the key for ev. A parseable starts_at gives an absolute
// key. Otherwise the day comes from DayIndex or a weekday named in when,
// with Monday = 1 .. Sunday = 7, and the time from the first number group
// in when.
func SortKeyOf(ev event.Event, loc *time.Location) SortKey {
	if t, ok := schedule.ParseStartsAt(ev.StartsAt, loc); ok {
		return SortKey{Kind: Absolute, Value: t.UnixMilli()}
	}

	day := unknownDay
	if ev.DayIndex != nil && *ev.DayIndex >= 0 && *ev.DayIndex <= 6 {
		day = mondayFirst(*ev.DayIndex)
	} else if info := schedule.WeekdayIn(ev.When); info != nil {
		day = mondayFirst(info.Index)
	}

	minutes, hasTime := schedule.TimeOfDay(ev.When)
	switch {
	case day == unknownDay && !hasTime:
		return SortKey{Kind: Relative, Value: noInfo}
	case !hasTime:
		minutes = noTimeMinutes
	}
	return SortKey{Kind: Relative, Value: int64(day*dayWeight + minutes)}
}

// mondayFirst maps time.Weekday (Sunday = 0) to Monday = 1 .. Sunday = 7.
func mondayFirst(index int) int {
	if index == 0 {
		return 7
	}
	return index
}

// Compare orders a before b (-1), after b (1) or neither (0). Absolute keys
// come before relative ones. Ties fall back to case-insensitive title, then
// case-insensitive url.
func Compare(a, b event.Event, loc *time.Location) int {
	return compareKeyed(a, SortKeyOf(a, loc), b, SortKeyOf(b, loc))
}

func compareKeyed(a event.Event, ka SortKey, b event.Event, kb SortKey) int {
	if ka.Kind != kb.Kind {
		if ka.Kind == Absolute {
			return -1
		}
		return 1
	}
	if ka.Value != kb.Value {
		if ka.Value < kb.Value {
			return -1
		}
		return 1
	}
	if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.URL), strings.ToLower(b.URL))
}

// Sort returns a chronologically ordered copy of events. Equal events keep
// their input order.
func Sort(events []event.Event, loc *time.Location) []event.Event {
	if len(events) == 0 {
		return []event.Event{}
	}

	keys := make([]SortKey, len(events))
	for i, ev := range events {
		keys[i] = SortKeyOf(ev, loc)
	}
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		return compareKeyed(events[a], keys[a], events[b], keys[b]) < 0
	})

	result := make([]event.Event, len(events))
	for i, idx := range order {
		result[i] = events[idx]
	}
	return result
}
