package schedule

import (
	"testing"
	"time"

	"github.com/abelbrown/spontis/internal/event"
)

// Thursday 2025-10-09 12:00 in Oslo.
func fixedNow(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2025, 10, 9, 12, 0, 0, 0, DefaultLocation())
}

func intPtr(v int) *int { return &v }

func TestParseStartsAt(t *testing.T) {
	loc := DefaultLocation()
	tests := []struct {
		in     string
		ok     bool
		wantUT string
	}{
		{"2025-10-10T20:00:00+02:00", true, "2025-10-10T18:00:00Z"},
		{"2025-10-10T20:00:00.123Z", true, "2025-10-10T20:00:00Z"},
		{"2025-10-10T20:00", true, "2025-10-10T18:00:00Z"},
		{"2025-10-10 20:00:00", true, "2025-10-10T18:00:00Z"},
		{"2025-10-10", true, "2025-10-09T22:00:00Z"},
		{"", false, ""},
		{"tomorrow-ish", false, ""},
		{"2025-13-45T99:00", false, ""},
	}
	for _, tt := range tests {
		got, ok := ParseStartsAt(tt.in, loc)
		if ok != tt.ok {
			t.Errorf("ParseStartsAt(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.UTC().Truncate(time.Second).Format(time.RFC3339) != tt.wantUT {
			t.Errorf("ParseStartsAt(%q) = %s, want %s", tt.in, got.UTC().Format(time.RFC3339), tt.wantUT)
		}
	}
}

func TestDeriveDayInfo(t *testing.T) {
	now := fixedNow(t)
	tests := []struct {
		name string
		ev   event.Event
		want int // -1 for nil
	}{
		{"explicit index wins", event.Event{DayIndex: intPtr(2), StartsAt: "2025-10-10T20:00", When: "Sat"}, 2},
		{"starts_at weekday", event.Event{StartsAt: "2025-10-10T20:00", When: "Sat 20:00"}, 5},
		{"invalid starts_at falls through", event.Event{StartsAt: "soon", When: "Sat 20:00"}, 6},
		{"abbreviation token", event.Event{When: "Thu 20:00"}, 4},
		{"full weekday name", event.Event{When: "Sunday matinee"}, 0},
		{"today", event.Event{When: "Today 18:00"}, 4},
		{"tonight", event.Event{When: "Tonight"}, 4},
		{"tomorrow", event.Event{When: "tomorrow at 9"}, 5},
		{"norwegian tonight", event.Event{When: "I kveld kl. 21"}, 4},
		{"norwegian tomorrow", event.Event{When: "i morgen"}, 5},
		{"no signal", event.Event{When: "soon"}, -1},
		{"substring is not a token", event.Event{When: "Sunset session"}, -1},
		{"empty", event.Event{}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveDayInfo(tt.ev, now, nil)
			if tt.want == -1 {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected day %d, got nil", tt.want)
			}
			if got.Index != tt.want {
				t.Errorf("Index = %d, want %d", got.Index, tt.want)
			}
		})
	}
}

func TestDeriveDayInfo_TomorrowWrapsSaturday(t *testing.T) {
	saturday := time.Date(2025, 10, 11, 12, 0, 0, 0, DefaultLocation())
	got := DeriveDayInfo(event.Event{When: "tomorrow"}, saturday, nil)
	if got == nil || got.Index != 0 {
		t.Fatalf("expected Sunday, got %+v", got)
	}
	if got.Short != "Sun" || got.Full != "Sunday" {
		t.Errorf("unexpected names %q/%q", got.Short, got.Full)
	}
}

func TestDayInfoFor(t *testing.T) {
	if DayInfoFor(-1) != nil || DayInfoFor(7) != nil {
		t.Error("expected nil for out of range index")
	}
	info := DayInfoFor(3)
	if info.Short != "Wed" || info.Full != "Wednesday" {
		t.Errorf("DayInfoFor(3) = %+v", info)
	}
}

func TestBuildDedupeKey(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
		want string
	}{
		{
			name: "title when venue",
			ev:   event.Event{Title: "Jazz Night!", When: "Fri  20:00", Venue: "Kvarteret"},
			want: "jazz night|fri 20:00|kvarteret",
		},
		{
			name: "starts_at date beats when",
			ev:   event.Event{Title: "Quiz", StartsAt: "2025-10-10T23:30:00Z", When: "Sat", Where: "Hulen"},
			want: "quiz|2025-10-11|hulen",
		},
		{
			name: "malformed starts_at uses when",
			ev:   event.Event{Title: "Quiz", StartsAt: "garbage", When: "Fri"},
			want: "quiz|fri",
		},
		{
			name: "no parts",
			ev:   event.Event{Title: " !! "},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildDedupeKey(tt.ev, nil); got != tt.want {
				t.Errorf("BuildDedupeKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDedupeKey_URLHashFallback(t *testing.T) {
	a := BuildDedupeKey(event.Event{Title: "Open Stage", URL: "https://usf.no/e/1"}, nil)
	b := BuildDedupeKey(event.Event{Title: "Open Stage", URL: "HTTPS://USF.NO/E/1 "}, nil)
	c := BuildDedupeKey(event.Event{Title: "Open Stage", URL: "https://usf.no/e/2"}, nil)
	if a != b {
		t.Errorf("URL hash should ignore case and whitespace: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different URLs should produce different keys: %q", a)
	}
}

func TestBuildDedupeKey_DifferentVenueAndDateDiffer(t *testing.T) {
	a := BuildDedupeKey(event.Event{Title: "Jazz Night", When: "Fri 20:00", Venue: "Kvarteret"}, nil)
	b := BuildDedupeKey(event.Event{Title: "Jazz Night", When: "Sat 21:00", Venue: "Hulen"}, nil)
	if a == b {
		t.Fatalf("expected distinct keys, both %q", a)
	}
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Fri 20:00", 20 * 60, true},
		{"kl. 19.30", 19*60 + 30, true},
		{"9", 9 * 60, true},
		{"Doors 99:75", 23*60 + 59, true},
		{"Tonight", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := TimeOfDay(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("TimeOfDay(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWeekdayLabel(t *testing.T) {
	ts := time.Date(2025, 10, 10, 18, 0, 0, 0, time.UTC)
	if got := WeekdayLabel(ts, nil); got != "Fri 20:00" {
		t.Errorf("WeekdayLabel = %q, want %q", got, "Fri 20:00")
	}
}
