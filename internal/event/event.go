// Package event defines the raw and normalized event records that flow
// through the pipeline.
//
// Raw records come from upstream scrapers and are untrusted: every field is
// optional and may carry the wrong JSON type. Decoding never fails for a
// single record; a malformed field is simply empty. The only error this
// package reports is a structural one, when the batch itself is not a JSON
// array.
package event

import "strings"

// SourceLink points at the listing of one event on one upstream source.
type SourceLink struct {
	Source string `json:"source,omitempty"`
	URL    string `json:"url"`
}

// Raw is one upstream record as received. Absent and wrong-typed fields are
// zero values.
type Raw struct {
	Title       string
	When        string
	Where       string
	Venue       string
	City        string
	Location    string
	StartsAt    string
	EndsAt      string
	URL         string
	URLStatus   *int // nil when absent or not numeric
	Source      string
	Sources     []string
	Tags        []string // string elements only
	Description string
	Summary     string
	TicketURL   string
	SourceLinks []SourceLink
	DayIndex    *int // only 0..6 survive decoding
}

// Event is a normalized record: the semantic fields of Raw plus the values
// derived by the pipeline stages.
type Event struct {
	Title       string       `json:"title"`
	When        string       `json:"when,omitempty"`
	Where       string       `json:"where,omitempty"`
	Venue       string       `json:"venue,omitempty"`
	City        string       `json:"city,omitempty"`
	Location    string       `json:"location,omitempty"`
	StartsAt    string       `json:"starts_at,omitempty"`
	EndsAt      string       `json:"ends_at,omitempty"`
	URL         string       `json:"url,omitempty"`
	URLStatus   *int         `json:"url_status,omitempty"`
	Source      string       `json:"source,omitempty"`
	Sources     []string     `json:"sources"`
	Tags        []string     `json:"tags"`
	Description string       `json:"description,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	TicketURL   string       `json:"ticket_url,omitempty"`
	SourceLinks []SourceLink `json:"sourceLinks"`
	DayIndex    *int         `json:"dayIndex"`
	Vibe        string       `json:"vibe"`

	DisplayHeadline string `json:"displayHeadline"`
	DisplayWhen     string `json:"displayWhen"`
	DisplayWhere    string `json:"displayWhere"`
}

// FromRaw copies the scalar fields of r and seeds the source set and the
// source links. Tags and DayIndex are left for the pipeline to derive.
func FromRaw(r Raw) Event {
	e := Event{
		Title:       strings.TrimSpace(r.Title),
		When:        strings.TrimSpace(r.When),
		Where:       strings.TrimSpace(r.Where),
		Venue:       strings.TrimSpace(r.Venue),
		City:        strings.TrimSpace(r.City),
		Location:    strings.TrimSpace(r.Location),
		StartsAt:    strings.TrimSpace(r.StartsAt),
		EndsAt:      strings.TrimSpace(r.EndsAt),
		URL:         strings.TrimSpace(r.URL),
		URLStatus:   copyInt(r.URLStatus),
		Source:      strings.TrimSpace(r.Source),
		Description: strings.TrimSpace(r.Description),
		Summary:     strings.TrimSpace(r.Summary),
		TicketURL:   strings.TrimSpace(r.TicketURL),
		Sources:     []string{},
		Tags:        []string{},
		SourceLinks: []SourceLink{},
	}

	e.AddSource(e.Source)
	for _, s := range r.Sources {
		e.AddSource(s)
	}
	for _, l := range r.SourceLinks {
		e.AddSourceLink(l)
	}
	if e.URL != "" {
		e.AddSourceLink(SourceLink{Source: e.Source, URL: e.URL})
	}
	return e
}

// AddSource appends s to Sources unless it is blank or already present.
func (e *Event) AddSource(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	for _, existing := range e.Sources {
		if existing == s {
			return
		}
	}
	e.Sources = append(e.Sources, s)
}

// AddSourceLink appends l unless its URL is blank or already linked.
func (e *Event) AddSourceLink(l SourceLink) {
	l.URL = strings.TrimSpace(l.URL)
	l.Source = strings.TrimSpace(l.Source)
	if l.URL == "" {
		return
	}
	for _, existing := range e.SourceLinks {
		if existing.URL == l.URL {
			return
		}
	}
	e.SourceLinks = append(e.SourceLinks, l)
}

// HasTag reports whether the event carries tag.
func (e Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SourceText joins the primary source and every merged source.
func (e Event) SourceText() string {
	parts := make([]string, 0, len(e.Sources)+1)
	if e.Source != "" {
		parts = append(parts, e.Source)
	}
	for _, s := range e.Sources {
		if s != e.Source {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy that shares no slices or pointers with e.
func (e Event) Clone() Event {
	c := e
	c.Sources = append([]string{}, e.Sources...)
	c.Tags = append([]string{}, e.Tags...)
	c.SourceLinks = append([]SourceLink{}, e.SourceLinks...)
	c.URLStatus = copyInt(e.URLStatus)
	c.DayIndex = copyInt(e.DayIndex)
	return c
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
