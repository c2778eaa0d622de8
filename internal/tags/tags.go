// Package tags cleans upstream tag values against a fixed allow-list and
// infers extra tags from event text.
//
// Upstream scrapers send anything as a tag: mixed case, punctuation,
// numbers, whole sentences. Only values that sanitize to a known tag reach
// the filter UI.
package tags

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
)

// StyleTags have a dedicated badge style in the front end.
var StyleTags = []string{"date", "girls", "quiz", "cinema", "rave", "late-night", "culture"}

// CategoryOrder is the display order for known tags. Allowed tags missing
// from this list sort after it, alphabetically.
var CategoryOrder = []string{
	"concert",
	"jazz",
	"techno",
	"rave",
	"club",
	"late-night",
	"quiz",
	"cinema",
	"theatre",
	"dance",
	"comedy",
	"lecture",
	"literature",
	"art",
	"exhibition",
	"culture",
	"festival",
	"family",
	"bar",
	"free",
	"underground",
}

// Rule adds Tag when Pattern matches the combined event text.
type Rule struct {
	Tag     string
	Pattern *regexp.Regexp
}

// SmartRules is evaluated in order; every matching rule contributes its tag.
var SmartRules = []Rule{
	rule("jazz", "jazz", "swing", "bebop"),
	rule("techno", "techno", "house", "electro", "dj", "disco", "club", "rave", "afterparty", "warehouse"),
	rule("rave", "rave", "warehouse"),
	rule("club", "club", "klubb", "nattklubb"),
	rule("late-night", "late night", "afterparty", "after-hours", "night session", "nattåpent"),
	rule("quiz", "quiz", "pubquiz", "trivia"),
	rule("cinema", "kino", "cinema", "film", "screening", "movie"),
	rule("theatre", "theatre", "theater", "teater", "forestilling"),
	rule("dance", "dance", "dans", "ballet", "ballett"),
	rule("comedy", "comedy", "stand-up", "standup", "humor", "komikk"),
	rule("lecture", "lecture", "talk", "seminar", "conference", "panel", "debate", "debatt", "foredrag", "samtale"),
	rule("literature", "literature", "litteratur", "poetry", "poesi", "reading", "opplesning", "book launch", "boklansering"),
	rule("art", "art", "kunst", "gallery", "galleri"),
	rule("exhibition", "exhibition", "utstilling", "vernissage"),
	rule("culture", "museum", "culture", "kultur", "kunsthall", "performance", "art", "kunst", "utstilling",
		"lecture", "talk", "seminar", "conference", "panel", "debate", "foredrag", "samtale"),
	rule("festival", "festival", "weekender"),
	rule("family", "family", "familie", "kids", "children", "barn", "ungdom"),
	rule("bar", "bar", "pub", "vinylbar", "platebar"),
	rule("concert", "concert", "konsert", "live", "gig"),
	rule("free", "gratis", "free entry", "free admission"),
	rule("underground", "underground", "basement", "secret", "warehouse"),
	rule("food", "food", "dinner", "middag", "tasting", "smaking"),
	rule("outdoor", "outdoor", "open air", "utendørs", "friluft"),
}

// rule compiles a case-insensitive, unicode-aware whole-word matcher.
// Go's \b only knows ASCII, so boundaries are spelled out with \p classes.
func rule(tag string, words ...string) Rule {
	alts := make([]string, len(words))
	for i, w := range words {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `[\s-]+`)
	}
	pattern := `(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(alts, "|") + `)(?:[^\p{L}\p{N}]|$)`
	return Rule{Tag: tag, Pattern: regexp.MustCompile(pattern)}
}

var (
	allowed   = buildAllowList()
	orderRank = buildOrderRank()

	disallowedChars = regexp.MustCompile(`[^a-z0-9\s-]`)
)

func buildAllowList() map[string]bool {
	m := make(map[string]bool)
	for _, t := range StyleTags {
		m[t] = true
	}
	for _, t := range CategoryOrder {
		m[t] = true
	}
	for _, r := range SmartRules {
		m[r.Tag] = true
	}
	return m
}

func buildOrderRank() map[string]int {
	m := make(map[string]int, len(CategoryOrder))
	for i, t := range CategoryOrder {
		m[t] = i
	}
	return m
}

// Allowed reports whether tag is a canonical, allowed tag.
func Allowed(tag string) bool {
	return allowed[tag]
}

// AllowList returns every allowed tag in display order.
func AllowList() []string {
	out := make([]string, 0, len(allowed))
	for t := range allowed {
		out = append(out, t)
	}
	sortTags(out)
	return out
}

// SanitizeTag lowercases raw, drops characters outside [a-z0-9 -], joins
// words with hyphens and returns the result if it is an allowed tag.
func SanitizeTag(raw string) (string, bool) {
	s := disallowedChars.ReplaceAllString(strings.ToLower(raw), "")
	s = strings.Join(strings.Fields(s), "-")
	if s == "" || !allowed[s] {
		return "", false
	}
	return s, true
}

// SanitizeTagList sanitizes, deduplicates and orders tags. The result is
// never nil.
func SanitizeTagList(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		tag, ok := SanitizeTag(r)
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sortTags(out)
	return out
}

// sortTags orders known tags by CategoryOrder, then unknown tags by first
// character and lexicographically.
func sortTags(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		ri, iKnown := orderRank[tags[i]]
		rj, jKnown := orderRank[tags[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		}
		if tags[i][0] != tags[j][0] {
			return tags[i][0] < tags[j][0]
		}
		return tags[i] < tags[j]
	})
}

// CombinedText is the haystack smart tags and vibes are matched against:
// title, description, summary, venue, location fields and existing tags,
// lowercased.
func CombinedText(ev event.Event) string {
	parts := []string{ev.Title, ev.Description, ev.Summary, ev.Venue, ev.Location, ev.Where, ev.City}
	parts = append(parts, ev.Tags...)
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// Apply adds every smart tag whose rule matches combined and re-sorts the
// tag list. It is a best-effort heuristic; noisy text may mis-tag.
func Apply(ev *event.Event, combined string) {
	merged := append([]string{}, ev.Tags...)
	for _, r := range SmartRules {
		if r.Pattern.MatchString(combined) {
			merged = append(merged, r.Tag)
		}
	}
	ev.Tags = SanitizeTagList(merged)
}

// ApplyTimeRules tags events starting between 22:00 and 05:00 local time as
// late-night.
func ApplyTimeRules(ev *event.Event, loc *time.Location) {
	if loc == nil {
		loc = schedule.DefaultLocation()
	}
	t, ok := schedule.ParseStartsAt(ev.StartsAt, loc)
	if !ok {
		return
	}
	if h := t.In(loc).Hour(); h >= 22 || h < 5 {
		ev.Tags = SanitizeTagList(append(append([]string{}, ev.Tags...), "late-night"))
	}
}
