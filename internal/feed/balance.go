package feed

import (
	"math"
	"strings"
	"time"

	"github.com/abelbrown/spontis/internal/event"
)

// Balance defaults.
const (
	DefaultFraction         = 0.25
	DefaultMinPerSource     = 1
	DefaultPriorityFraction = 0.5
	DefaultPriorityMin      = 2
)

// unknownSource groups events without a source.
const unknownSource = "unknown"

// Selection is the result of a per-source cap.
type Selection struct {
	Selected []event.Event
	Overflow []event.Event // over the cap, kept for the tail of the feed
}

// Config controls CreateBalancedFeed.
type Config struct {
	Window Window

	// Cap for the remainder of the feed.
	Fraction float64
	Min      int
	Max      int // <= 0 means no upper bound

	// Cap for the upcoming block. Higher than the base cap so that events
	// starting soon from many sources stay visible.
	PriorityFraction float64
	PriorityMin      int
	PriorityMax      int
}

// DefaultConfig returns the standard feed configuration.
func DefaultConfig() Config {
	return Config{
		Window:           DefaultWindow(),
		Fraction:         DefaultFraction,
		Min:              DefaultMinPerSource,
		PriorityFraction: DefaultPriorityFraction,
		PriorityMin:      DefaultPriorityMin,
	}
}

// Balanced is the composed display list.
type Balanced struct {
	// Feed is a permutation of the input.
	Feed []event.Event `json:"feed"`
	// Upcoming is the capped "starting soon" block that leads Feed.
	Upcoming []event.Event `json:"upcoming"`
}

// SourceCap returns clamp(ceil(total*fraction), minPer, maxPer). maxPer <= 0
// means no upper bound. When maxPer < minPer, maxPer wins; config.Validate
// rejects that combination.
func SourceCap(total int, fraction float64, minPer, maxPer int) int {
	limit := int(math.Ceil(float64(total) * fraction))
	if limit < minPer {
		limit = minPer
	}
	if maxPer > 0 && limit > maxPer {
		limit = maxPer
	}
	return limit
}

// SourceKey is the lowercased source, or "unknown".
func SourceKey(ev event.Event) string {
	if s := strings.ToLower(strings.TrimSpace(ev.Source)); s != "" {
		return s
	}
	return unknownSource
}

// LimitBySource keeps, in input order, at most SourceCap events per source.
// Events over the cap go to Overflow; nothing is dropped.
func LimitBySource(events []event.Event, fraction float64, minPer, maxPer int) Selection {
	all := make([]int, len(events))
	for i := range all {
		all[i] = i
	}
	sel, over := limitBySource(events, all, fraction, minPer, maxPer)
	return Selection{Selected: pick(events, sel), Overflow: pick(events, over)}
}

// limitBySource caps the events at idx and returns indexes.
func limitBySource(events []event.Event, idx []int, fraction float64, minPer, maxPer int) (selected, overflow []int) {
	selected = make([]int, 0, len(idx))
	overflow = make([]int, 0)
	if len(idx) == 0 {
		return selected, overflow
	}

	limit := SourceCap(len(idx), fraction, minPer, maxPer)
	counts := make(map[string]int)
	for _, i := range idx {
		source := SourceKey(events[i])
		if counts[source] < limit {
			selected = append(selected, i)
			counts[source]++
		} else {
			overflow = append(overflow, i)
		}
	}
	return selected, overflow
}

// CreateBalancedFeed composes the display list:
//
//  1. pick the upcoming events (SelectUpcoming)
//  2. cap them per source at the priority fraction
//  3. cap everything else per source at the base fraction
//  4. priority + capped remainder, then every event not yet placed in
//     input order
//
// Inclusion is tracked by position, so events with equal fields are never
// collapsed and the feed always holds every input event exactly once.
func CreateBalancedFeed(events []event.Event, now time.Time, cfg Config) Balanced {
	if len(events) == 0 {
		return Balanced{Feed: []event.Event{}, Upcoming: []event.Event{}}
	}

	upcoming := selectUpcoming(events, now, cfg.Window)
	priority, _ := limitBySource(events, upcoming, cfg.PriorityFraction, cfg.PriorityMin, cfg.PriorityMax)

	placed := make([]bool, len(events))
	for _, i := range priority {
		placed[i] = true
	}
	remainder := make([]int, 0, len(events)-len(priority))
	for i := range events {
		if !placed[i] {
			remainder = append(remainder, i)
		}
	}
	selected, _ := limitBySource(events, remainder, cfg.Fraction, cfg.Min, cfg.Max)
	for _, i := range selected {
		placed[i] = true
	}

	order := make([]int, 0, len(events))
	order = append(order, priority...)
	order = append(order, selected...)
	for i := range events {
		if !placed[i] {
			order = append(order, i)
		}
	}

	return Balanced{Feed: pick(events, order), Upcoming: pick(events, priority)}
}

func pick(events []event.Event, idx []int) []event.Event {
	result := make([]event.Event, len(idx))
	for i, j := range idx {
		result[i] = events[j]
	}
	return result
}
