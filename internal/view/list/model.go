// Package list provides the scrolling event list of the browser.
package list

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/vibe"
	"github.com/abelbrown/spontis/internal/view/styles"
)

// BandMode selects how the list is divided into bands.
type BandMode int

const (
	BandByDay BandMode = iota
	BandByVibe
)

func (b BandMode) String() string {
	if b == BandByVibe {
		return "vibe"
	}
	return "day"
}

// AnyDay labels the band of events without a known weekday.
const AnyDay = "Any day"

// maxTags is how many tags are shown per row.
const maxTags = 3

// Model is the list view model.
type Model struct {
	events   []event.Event
	cursor   int
	width    int
	height   int
	viewport int // index of first visible event
	bands    BandMode
}

// New creates an empty list.
func New() Model {
	return Model{}
}

// SetEvents replaces the listed events. The cursor is clamped.
func (m *Model) SetEvents(events []event.Event) {
	m.events = events
	if m.cursor >= len(events) {
		m.cursor = max(0, len(events)-1)
	}
	m.ensureCursorVisible()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ensureCursorVisible()
}

// SetBandMode switches between day and vibe bands.
func (m *Model) SetBandMode(b BandMode) {
	m.bands = b
}

// BandMode returns the current band mode.
func (m Model) BandMode() BandMode {
	return m.bands
}

// Events returns the listed events.
func (m Model) Events() []event.Event {
	return m.events
}

// Cursor returns the current cursor position.
func (m Model) Cursor() int {
	return m.cursor
}

// Select moves the cursor to the event with the given index.
func (m *Model) Select(i int) {
	if i < 0 || i >= len(m.events) {
		return
	}
	m.cursor = i
	m.ensureCursorVisible()
}

// SelectedEvent returns the event under the cursor.
func (m Model) SelectedEvent() (event.Event, bool) {
	if m.cursor >= 0 && m.cursor < len(m.events) {
		return m.events[m.cursor], true
	}
	return event.Event{}, false
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.events)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.PageUp):
			m.cursor = max(0, m.cursor-m.visibleRows())
		case key.Matches(msg, keys.PageDown):
			m.cursor = max(0, min(len(m.events)-1, m.cursor+m.visibleRows()))
		case key.Matches(msg, keys.Home):
			m.cursor = 0
			m.viewport = 0
		case key.Matches(msg, keys.End):
			if len(m.events) > 0 {
				m.cursor = len(m.events) - 1
			}
		}
	}
	m.ensureCursorVisible()
	return m, nil
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleRows()
	if m.cursor < m.viewport {
		m.viewport = m.cursor
	}
	if m.cursor >= m.viewport+visible {
		m.viewport = m.cursor - visible + 1
	}
}

// visibleRows is the number of events that fit. Every event takes two
// lines and the header, status bar and a band divider are reserved.
func (m Model) visibleRows() int {
	return max(1, (m.height-4)/2)
}

// View implements tea.Model.
func (m Model) View() string {
	if len(m.events) == 0 {
		return styles.Help.Render("No events in this view.")
	}

	var b strings.Builder
	current := ""
	end := min(m.viewport+m.visibleRows(), len(m.events))
	for i := m.viewport; i < end; i++ {
		ev := m.events[i]

		if band := m.bandOf(ev); band != current || i == m.viewport {
			current = band
			if i > m.viewport {
				b.WriteString("\n")
			}
			b.WriteString(styles.BandDivider.Render(fmt.Sprintf("─── %s ───", band)))
			b.WriteString("\n")
		}

		b.WriteString(m.renderEvent(ev, i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) bandOf(ev event.Event) string {
	if m.bands == BandByVibe {
		return VibeLabel(ev.Vibe)
	}
	return DayBand(ev)
}

// DayBand returns the full weekday name of ev, or AnyDay.
func DayBand(ev event.Event) string {
	if ev.DayIndex == nil {
		return AnyDay
	}
	if d := schedule.DayInfoFor(*ev.DayIndex); d != nil {
		return d.Full
	}
	return AnyDay
}

// VibeLabel returns the display label of a vibe id. An empty id is shown
// as performance.
func VibeLabel(id string) string {
	if id == "" {
		id = vibe.Performance
	}
	if c, ok := vibe.Lookup(id); ok {
		return c.Label
	}
	return id
}

func (m Model) renderEvent(ev event.Event, selected bool) string {
	badge := styles.VibeBadge.Foreground(styles.VibeColor(ev.Vibe)).Render(fmt.Sprintf("[%s]", vibeShort(ev.Vibe)))

	width := max(20, m.width-12)
	headline := styles.Truncate(ev.DisplayHeadline, width)

	meta := ev.DisplayWhen
	if ev.DisplayWhere != "" {
		meta += " · " + ev.DisplayWhere
	}
	if t := tagLine(ev.Tags); t != "" {
		meta += "  " + styles.TagBadge.Render(t)
	}

	title := styles.ItemNormal
	if selected {
		title = styles.ItemSelected
	}
	return fmt.Sprintf("%s %s\n      %s", badge, title.Render(headline), styles.ItemMuted.Render(styles.Truncate(meta, width+20)))
}

func vibeShort(id string) string {
	if id == "" {
		id = vibe.Performance
	}
	if len(id) > 4 {
		return id[:4]
	}
	return id
}

func tagLine(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	shown := tags
	if len(shown) > maxTags {
		shown = shown[:maxTags]
	}
	parts := make([]string, len(shown))
	for i, t := range shown {
		parts[i] = "#" + t
	}
	line := strings.Join(parts, " ")
	if extra := len(tags) - len(shown); extra > 0 {
		line += fmt.Sprintf(" +%d", extra)
	}
	return line
}

var keys = struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
}{
	Up:       key.NewBinding(key.WithKeys("up", "k")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
	Home:     key.NewBinding(key.WithKeys("home", "g")),
	End:      key.NewBinding(key.WithKeys("end", "G")),
}
