// Package vibe assigns every event exactly one coarse mood category from a
// fixed weighted-keyword table.
package vibe

import (
	"strings"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/textutil"
)

// Category ids.
const (
	Techno       = "techno"
	Jazz         = "jazz"
	Performance  = "performance"
	Talks        = "talks"
	Experimental = "experimental"
)

// Score weights.
const (
	longKeywordLen    = 6
	longKeywordScore  = 2.0
	shortKeywordScore = 1.0
	tagHintScore      = 2.0
	sourceHintScore   = 1.5
)

// Category is one vibe and the signals that vote for it.
type Category struct {
	ID          string
	Label       string
	Keywords    []string
	TagHints    []string
	SourceHints []string // folded: lowercase, no diacritics
}

// categories is in tie-break order: on equal scores the earlier one wins.
var categories = []Category{
	{
		ID:          Techno,
		Label:       "Techno & Club",
		Keywords:    []string{"techno", "house", "rave", "club", "klubb", "dj", "electro", "afterparty", "warehouse", "disco"},
		TagHints:    []string{"techno", "rave", "club", "late-night"},
		SourceHints: []string{"resident advisor", "bergen kjott", "hulen", "apollon"},
	},
	{
		ID:          Jazz,
		Label:       "Jazz & Blues",
		Keywords:    []string{"jazz", "swing", "bebop", "big band", "blues", "soul", "improvisasjon"},
		TagHints:    []string{"jazz"},
		SourceHints: []string{"nattjazz", "jazzforum"},
	},
	{
		ID:          Performance,
		Label:       "Stage & Screen",
		Keywords:    []string{"teater", "theatre", "theater", "dans", "dance", "film", "kino", "cinema", "screening", "opera", "ballet", "comedy", "konsert", "concert"},
		TagHints:    []string{"cinema", "theatre", "dance", "comedy", "concert"},
		SourceHints: []string{"bergen kino", "den nationale scene", "grieghallen", "carte blanche", "teatergarasjen"},
	},
	{
		ID:          Talks,
		Label:       "Talks & Ideas",
		Keywords:    []string{"foredrag", "lecture", "talk", "seminar", "samtale", "debatt", "debate", "panel", "conversation", "reading", "litteratur"},
		TagHints:    []string{"lecture", "literature"},
		SourceHints: []string{"litteraturhuset", "kvarteret"},
	},
	{
		ID:          Experimental,
		Label:       "Experimental",
		Keywords:    []string{"experimental", "eksperimentell", "noise", "ambient", "installation", "installasjon", "sound art", "avant-garde", "performance art"},
		TagHints:    []string{"underground", "art", "exhibition"},
		SourceHints: []string{"kunsthall", "kunstsenter", "vaskeriet", "bastant", "zip collective"},
	},
}

// Categories returns the category table in tie-break order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Lookup returns the category with id.
func Lookup(id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Score returns the score of every category for ev, in table order.
func Score(ev event.Event, combined string) []float64 {
	text := strings.ToLower(combined)
	source := textutil.Fold(ev.SourceText())

	scores := make([]float64, len(categories))
	for i, c := range categories {
		var s float64
		for _, kw := range c.Keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			if len(kw) > longKeywordLen {
				s += longKeywordScore
			} else {
				s += shortKeywordScore
			}
		}
		for _, hint := range c.TagHints {
			if ev.HasTag(hint) {
				s += tagHintScore
			}
		}
		if source != "" {
			for _, hint := range c.SourceHints {
				if strings.Contains(source, hint) {
					s += sourceHintScore
				}
			}
		}
		scores[i] = s
	}
	return scores
}

// Detect returns the id of the highest scoring category. Ties keep the
// earlier category. When nothing scores, events tagged "festival" are
// experimental and everything else is performance; this fallback is a
// product heuristic, keep it as is.
func Detect(ev event.Event, combined string) string {
	scores := Score(ev, combined)
	best, bestScore := -1, 0.0
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 {
		return categories[best].ID
	}
	if ev.HasTag("festival") {
		return Experimental
	}
	return Performance
}
