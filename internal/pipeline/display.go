package pipeline

import (
	"strings"
	"time"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/textutil"
)

// Display fallbacks.
const (
	UntitledHeadline = "Untitled event"
	TimeTBA          = "Time TBA"
)

// Headline is the trimmed title, or "Untitled event".
func Headline(ev event.Event) string {
	if t := strings.TrimSpace(ev.Title); t != "" {
		return t
	}
	return UntitledHeadline
}

// WhenLabel is the source's own when text, else a "Fri 20:00" label from
// starts_at, else the full day name, else "Time TBA".
func WhenLabel(ev event.Event, loc *time.Location) string {
	if w := strings.TrimSpace(ev.When); w != "" {
		return w
	}
	if t, ok := schedule.ParseStartsAt(ev.StartsAt, loc); ok {
		return schedule.WeekdayLabel(t, loc)
	}
	if ev.DayIndex != nil {
		if info := schedule.DayInfoFor(*ev.DayIndex); info != nil {
			return info.Full
		}
	}
	return TimeTBA
}

// WhereLabel is the first of where, venue, location and city. It may be
// empty.
func WhereLabel(ev event.Event) string {
	return textutil.FirstNonEmpty(ev.Where, ev.Venue, ev.Location, ev.City)
}

func applyDisplay(ev *event.Event, loc *time.Location) {
	ev.DisplayHeadline = Headline(*ev)
	ev.DisplayWhen = WhenLabel(*ev, loc)
	ev.DisplayWhere = WhereLabel(*ev)
}
