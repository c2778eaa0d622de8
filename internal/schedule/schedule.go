// Package schedule derives when an event happens from whatever the source
// gave us: an ISO-ish starts_at, a free-text "when" such as "Thu 20:00" or
// "Tonight", or an explicit day index. It also builds the dedupe key that
// identifies the same real-world event across sources.
package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // Europe/Oslo must resolve on hosts without zoneinfo

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/textutil"
)

// DefaultTimezone is the zone scraped listings are published in.
const DefaultTimezone = "Europe/Oslo"

// KeySeparator joins the parts of a dedupe key.
const KeySeparator = "|"

// DayInfo describes a resolved weekday. Index follows time.Weekday
// (0 = Sunday .. 6 = Saturday).
type DayInfo struct {
	Index int
	Short string
	Full  string
}

var (
	defaultLoc     *time.Location
	defaultLocOnce sync.Once
)

// DefaultLocation returns Europe/Oslo, or UTC if the zone cannot be loaded.
func DefaultLocation() *time.Location {
	defaultLocOnce.Do(func() {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		defaultLoc = loc
	})
	return defaultLoc
}

// DayInfoFor returns the DayInfo for a weekday index, or nil if the index is
// out of range.
func DayInfoFor(index int) *DayInfo {
	if index < 0 || index > 6 {
		return nil
	}
	wd := time.Weekday(index)
	return &DayInfo{Index: index, Short: wd.String()[:3], Full: wd.String()}
}

// Accepted starts_at layouts, tried in order. Layouts without a zone are
// interpreted in the caller's location.
var startsAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseStartsAt parses an ISO-ish timestamp. Malformed input reports false;
// it is never an error.
func ParseStartsAt(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = DefaultLocation()
	}
	for _, layout := range startsAtLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var weekdayTokens = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// DeriveDayInfo resolves the weekday of ev. Resolution order: explicit day
// index, parseable starts_at, a weekday token in the when text, then
// relative words ("today", "tonight", "tomorrow") evaluated against now.
// Returns nil when there is no signal.
func DeriveDayInfo(ev event.Event, now time.Time, loc *time.Location) *DayInfo {
	if loc == nil {
		loc = DefaultLocation()
	}
	if ev.DayIndex != nil {
		if info := DayInfoFor(*ev.DayIndex); info != nil {
			return info
		}
	}
	if t, ok := ParseStartsAt(ev.StartsAt, loc); ok {
		return DayInfoFor(int(t.In(loc).Weekday()))
	}

	if info := WeekdayIn(ev.When); info != nil {
		return info
	}

	tokens := whenTokens(ev.When)
	today := int(now.In(loc).Weekday())
	switch relativeOffset(tokens) {
	case 0:
		return DayInfoFor(today)
	case 1:
		return DayInfoFor((today + 1) % 7)
	}
	return nil
}

// WeekdayIn returns the first weekday named in text ("Fri", "friday"),
// ignoring case and diacritics, or nil.
func WeekdayIn(text string) *DayInfo {
	for _, tok := range whenTokens(text) {
		if idx, ok := weekdayTokens[tok]; ok {
			return DayInfoFor(idx)
		}
	}
	return nil
}

func whenTokens(when string) []string {
	return strings.FieldsFunc(textutil.Fold(when), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
}

// relativeOffset returns 0 for today, 1 for tomorrow and -1 otherwise.
func relativeOffset(tokens []string) int {
	for i, tok := range tokens {
		next := ""
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}
		switch {
		case tok == "today", tok == "tonight", tok == "idag", tok == "ikveld":
			return 0
		case tok == "i" && (next == "dag" || next == "kveld"):
			return 0
		case tok == "tomorrow", tok == "imorgen":
			return 1
		case tok == "i" && next == "morgen":
			return 1
		}
	}
	return -1
}

// BuildDedupeKey returns the composite key identifying ev across sources:
// normalized title, a date component (ISO date of starts_at, else the
// lowercased when text, else a hash of the URL) and the normalized venue.
// Empty parts are omitted; an empty result means the event is never merged.
func BuildDedupeKey(ev event.Event, loc *time.Location) string {
	if loc == nil {
		loc = DefaultLocation()
	}
	parts := make([]string, 0, 3)
	if title := textutil.NormalizeWords(ev.Title); title != "" {
		parts = append(parts, title)
	}
	if date := datePart(ev, loc); date != "" {
		parts = append(parts, date)
	}
	if venue := textutil.NormalizeWords(textutil.FirstNonEmpty(ev.Venue, ev.Where)); venue != "" {
		parts = append(parts, venue)
	}
	return strings.Join(parts, KeySeparator)
}

func datePart(ev event.Event, loc *time.Location) string {
	if t, ok := ParseStartsAt(ev.StartsAt, loc); ok {
		return t.In(loc).Format("2006-01-02")
	}
	if when := textutil.Collapse(strings.ToLower(ev.When)); when != "" {
		return when
	}
	if url := strings.ToLower(strings.TrimSpace(ev.URL)); url != "" {
		sum := sha256.Sum256([]byte(url))
		return "url:" + hex.EncodeToString(sum[:6])
	}
	return ""
}

var timeOfDayRe = regexp.MustCompile(`(?:^|\D)(\d{1,2})(?:[:.](\d{2}))?(?:\D|$)`)

// TimeOfDay extracts the first "H" or "H:MM" group from text and returns it
// as minutes past midnight. Hours clamp to 0..23 and minutes to 0..59.
func TimeOfDay(text string) (int, bool) {
	m := timeOfDayRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes := 0
	if m[2] != "" {
		minutes, _ = strconv.Atoi(m[2])
	}
	hours = min(max(hours, 0), 23)
	minutes = min(max(minutes, 0), 59)
	return hours*60 + minutes, true
}

// WeekdayLabel formats t as "Mon 20:00" in loc.
func WeekdayLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = DefaultLocation()
	}
	return t.In(loc).Format("Mon 15:04")
}
