package event

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when a batch is not parseable JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNotArray is returned when a batch parses but is not a JSON array.
	ErrNotArray = errors.New("event batch is not a JSON array")
)

// ParseBatch decodes a JSON array of raw events. Elements that are not
// objects decode to empty records so the caller still sees one record per
// array slot.
func ParseBatch(data []byte) ([]Raw, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w (got %s)", ErrNotArray, typeName(res))
	}

	raws := make([]Raw, 0, len(res.Array()))
	res.ForEach(func(_, value gjson.Result) bool {
		raws = append(raws, FromJSON(value))
		return true
	})
	return raws, nil
}

// FromJSON decodes one record. Anything that is not an object yields an
// empty Raw.
func FromJSON(r gjson.Result) Raw {
	if !r.IsObject() {
		return Raw{}
	}
	return Raw{
		Title:       stringField(r, "title"),
		When:        stringField(r, "when"),
		Where:       stringField(r, "where"),
		Venue:       stringField(r, "venue"),
		City:        stringField(r, "city"),
		Location:    stringField(r, "location"),
		StartsAt:    stringField(r, "starts_at"),
		EndsAt:      stringField(r, "ends_at"),
		URL:         stringField(r, "url"),
		URLStatus:   intField(r, "url_status"),
		Source:      stringField(r, "source"),
		Sources:     stringList(r.Get("sources")),
		Tags:        stringList(r.Get("tags")),
		Description: stringField(r, "description"),
		Summary:     stringField(r, "summary"),
		TicketURL:   stringField(r, "ticket_url"),
		SourceLinks: sourceLinks(r),
		DayIndex:    dayIndexField(r),
	}
}

func stringField(r gjson.Result, key string) string {
	v := r.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

func intField(r gjson.Result, key string) *int {
	v := r.Get(key)
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return nil
	}
	n := int(v.Num)
	return &n
}

func dayIndexField(r gjson.Result) *int {
	for _, key := range []string{"dayIndex", "day_index"} {
		if n := intField(r, key); n != nil && *n >= 0 && *n <= 6 {
			return n
		}
	}
	return nil
}

// stringList accepts an array (keeping only string elements) or a single
// non-blank string.
func stringList(v gjson.Result) []string {
	switch {
	case v.IsArray():
		var out []string
		for _, el := range v.Array() {
			if el.Type == gjson.String {
				out = append(out, el.Str)
			}
		}
		return out
	case v.Type == gjson.String && strings.TrimSpace(v.Str) != "":
		return []string{v.Str}
	}
	return nil
}

func sourceLinks(r gjson.Result) []SourceLink {
	var links []SourceLink
	for _, key := range []string{"sourceLinks", "source_links"} {
		v := r.Get(key)
		if !v.IsArray() {
			continue
		}
		for _, el := range v.Array() {
			if !el.IsObject() {
				continue
			}
			url := stringField(el, "url")
			if strings.TrimSpace(url) == "" {
				continue
			}
			links = append(links, SourceLink{Source: stringField(el, "source"), URL: url})
		}
	}
	return links
}

func typeName(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "object"
	case r.Type == gjson.String:
		return "string"
	case r.Type == gjson.Number:
		return "number"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "bool"
	default:
		return "null"
	}
}
