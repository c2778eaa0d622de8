// Package view provides the terminal browser for built datasets.
//
// The view layer renders what the pipeline produced and handles user input.
// It never normalizes anything itself: results come from a
// pipeline.Datasets store, and a rebuild is delegated to the Reload
// function supplied by the caller.
//
// # Architecture
//
// The root Model (this file) owns:
//   - list.Model: the banded event list
//   - a detail pane for the selected event
//   - the help screen
package view

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/feed"
	"github.com/abelbrown/spontis/internal/logging"
	"github.com/abelbrown/spontis/internal/pipeline"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/view/list"
	"github.com/abelbrown/spontis/internal/view/styles"
	"github.com/abelbrown/spontis/internal/views"
)

// Mode is the current screen.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeHelp
)

// Source selects which list of a result is shown.
type Source int

const (
	SourceFeed Source = iota
	SourceUpcoming
	SourceChronological
)

func (s Source) String() string {
	switch s {
	case SourceUpcoming:
		return "upcoming"
	case SourceChronological:
		return "by time"
	}
	return "feed"
}

// ReloadFunc rebuilds every dataset.
type ReloadFunc func(ctx context.Context) (map[string]*pipeline.Result, error)

// Options configure the browser.
type Options struct {
	Datasets *pipeline.Datasets
	// Dataset is shown first. Empty means the first stored dataset.
	Dataset string
	Reload  ReloadFunc
	Now     func() time.Time
	Loc     *time.Location
	Rand    *rand.Rand
}

// Model is the root Bubble Tea model of the browser.
type Model struct {
	datasets *pipeline.Datasets
	reload   ReloadFunc
	now      func() time.Time
	loc      *time.Location
	rnd      *rand.Rand

	list list.Model

	dataset string
	source  Source
	tag     string // active tag filter, "" for none

	mode      Mode
	width     int
	height    int
	spinner   spinner.Model
	loading   bool
	statusMsg string

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the browser model.
func New(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.FilterActive

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		datasets: opts.Datasets,
		reload:   opts.Reload,
		now:      opts.Now,
		loc:      opts.Loc,
		rnd:      opts.Rand,
		list:     list.New(),
		dataset:  opts.Dataset,
		spinner:  s,
		ctx:      ctx,
		cancel:   cancel,
	}
	if m.datasets == nil {
		m.datasets = pipeline.NewDatasets()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.loc == nil {
		m.loc = schedule.DefaultLocation()
	}
	if m.rnd == nil {
		m.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if names := m.datasets.Names(); m.dataset == "" && len(names) > 0 {
		m.dataset = names[0]
	}
	m.refreshList()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Dataset returns the dataset being shown.
func (m Model) Dataset() string { return m.dataset }

// Tag returns the active tag filter.
func (m Model) Tag() string { return m.tag }

// Mode returns the current screen.
func (m Model) Mode() Mode { return m.mode }

// Source returns which list of the result is shown.
func (m Model) Source() Source { return m.source }

// Status returns the status bar message.
func (m Model) Status() string { return m.statusMsg }

// Visible returns the events currently listed.
func (m Model) Visible() []event.Event { return m.list.Events() }

// Selected returns the event under the cursor.
func (m Model) Selected() (event.Event, bool) { return m.list.SelectedEvent() }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.mode = ModeHelp
			return m, nil
		case key.Matches(msg, keys.Escape):
			m.mode = ModeList
			return m, nil
		}
		if m.mode != ModeList {
			if key.Matches(msg, keys.Enter) {
				m.mode = ModeList
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.NextDataset):
			m.cycleDataset(1)
		case key.Matches(msg, keys.PrevDataset):
			m.cycleDataset(-1)
		case key.Matches(msg, keys.Tag):
			m.cycleTag()
		case key.Matches(msg, keys.Source):
			m.source = (m.source + 1) % 3
			m.refreshList()
		case key.Matches(msg, keys.Bands):
			if m.list.BandMode() == list.BandByDay {
				m.list.SetBandMode(list.BandByVibe)
			} else {
				m.list.SetBandMode(list.BandByDay)
			}
		case key.Matches(msg, keys.Surprise):
			m.surprise()
		case key.Matches(msg, keys.Enter):
			if _, ok := m.list.SelectedEvent(); ok {
				m.mode = ModeDetail
			}
		case key.Matches(msg, keys.Reload):
			if cmd := m.startReload(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case reloadedMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			logging.Warn("browser reload failed", "err", msg.err)
			break
		}
		m.datasets.SetAll(msg.results)
		m.refreshList()
		m.statusMsg = fmt.Sprintf("Reloaded %d datasets", len(msg.results))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) cycleDataset(step int) {
	names := m.datasets.Names()
	if len(names) == 0 {
		return
	}
	i := 0
	for j, n := range names {
		if n == m.dataset {
			i = j
			break
		}
	}
	m.dataset = names[(i+step+len(names))%len(names)]
	m.tag = ""
	m.refreshList()
	m.statusMsg = ""
}

// cycleTag steps through the tags in use: none, then each tag in display
// order, then none again.
func (m *Model) cycleTag() {
	available := views.CollectTags(m.sourceEvents())
	if len(available) == 0 {
		m.tag = ""
		m.statusMsg = "No tags in this view"
		return
	}
	next := available[0]
	if m.tag != "" {
		next = ""
		for i, t := range available {
			if t == m.tag && i+1 < len(available) {
				next = available[i+1]
			}
		}
	}
	m.tag = next
	m.refreshList()
	m.statusMsg = ""
}

func (m *Model) surprise() {
	events := m.list.Events()
	ev, ok := views.Surprise(events, m.rnd)
	if !ok {
		m.statusMsg = "Nothing to pick from"
		return
	}
	for i := range events {
		if events[i].Title == ev.Title && events[i].URL == ev.URL && events[i].StartsAt == ev.StartsAt {
			m.list.Select(i)
			break
		}
	}
	m.mode = ModeDetail
	m.statusMsg = "Surprise!"
}

func (m *Model) sourceEvents() []event.Event {
	res, ok := m.datasets.Get(m.dataset)
	if !ok {
		return nil
	}
	switch m.source {
	case SourceUpcoming:
		return res.Upcoming
	case SourceChronological:
		return res.Events
	}
	return res.Feed
}

func (m *Model) refreshList() {
	m.list.SetEvents(views.FilterByTag(m.sourceEvents(), m.tag))
}

type reloadedMsg struct {
	results map[string]*pipeline.Result
	err     error
}

func (m *Model) startReload() tea.Cmd {
	if m.reload == nil || m.loading {
		return nil
	}
	m.loading = true
	m.statusMsg = "Rebuilding..."
	reload, ctx := m.reload, m.ctx
	return func() tea.Msg {
		results, err := reload(ctx)
		return reloadedMsg{results: results, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.mode {
	case ModeList:
		b.WriteString(m.list.View())
	case ModeDetail:
		b.WriteString(m.renderDetail())
	case ModeHelp:
		b.WriteString(styles.Help.Render(helpText))
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	left := fmt.Sprintf("SPONTIS │ %s │ %s │ %d events", m.dataset, m.source, len(m.list.Events()))
	right := ""
	if m.loading {
		right = m.spinner.View() + " " + m.statusMsg
	}
	padding := max(0, m.width-len(left)-len(right)-4)
	return styles.Header.Render(left + strings.Repeat(" ", padding) + right)
}

func (m Model) renderStatusBar() string {
	filter := "all tags"
	if m.tag != "" {
		filter = styles.FilterActive.Render("#" + m.tag)
	}
	hint := "j/k: move  enter: open  tab: dataset  t: tag  u: list  v: bands  s: surprise  ?: help  q: quit"
	status := fmt.Sprintf("[%s] %s", filter, hint)
	if m.statusMsg != "" && !m.loading {
		status = fmt.Sprintf("[%s] %s │ %s", filter, m.statusMsg, hint)
	}
	return styles.StatusBar.Render(status)
}

func (m Model) renderDetail() string {
	ev, ok := m.list.SelectedEvent()
	if !ok {
		return styles.Help.Render("Nothing selected.")
	}
	return styles.Help.Render(Detail(ev, m.now(), m.loc))
}

// Detail renders the full record of one event as plain text.
func Detail(ev event.Event, now time.Time, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", ev.DisplayHeadline)

	when := ev.DisplayWhen
	if t, ok := schedule.ParseStartsAt(ev.StartsAt, loc); ok {
		when += " (" + feed.FormatRelativeStart(t, now) + ")"
	}
	fmt.Fprintf(&b, "When:    %s\n", when)
	if ev.DisplayWhere != "" {
		fmt.Fprintf(&b, "Where:   %s\n", ev.DisplayWhere)
	}
	fmt.Fprintf(&b, "Vibe:    %s\n", list.VibeLabel(ev.Vibe))
	if len(ev.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:    %s\n", strings.Join(ev.Tags, ", "))
	}
	if len(ev.Sources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(ev.Sources, ", "))
	}
	if ev.URL != "" {
		fmt.Fprintf(&b, "Link:    %s\n", ev.URL)
	}
	if ev.TicketURL != "" {
		fmt.Fprintf(&b, "Tickets: %s\n", ev.TicketURL)
	}
	if text := firstNonEmpty(ev.Summary, ev.Description); text != "" {
		fmt.Fprintf(&b, "\n%s\n", text)
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

const helpText = `SPONTIS

  NAVIGATION
    j/k, ↑/↓     Move cursor
    g/G          Jump to top/bottom
    enter        Open event

  VIEWS
    tab          Next dataset (shift+tab: previous)
    u            Feed / upcoming / by time
    v            Band by day or by vibe
    t            Cycle tag filter
    s            Surprise me
    r            Rebuild datasets

  Press esc to return, q to quit`

var keys = struct {
	Quit        key.Binding
	Help        key.Binding
	Escape      key.Binding
	Enter       key.Binding
	NextDataset key.Binding
	PrevDataset key.Binding
	Tag         key.Binding
	Source      key.Binding
	Bands       key.Binding
	Surprise    key.Binding
	Reload      key.Binding
}{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Help:        key.NewBinding(key.WithKeys("?")),
	Escape:      key.NewBinding(key.WithKeys("esc")),
	Enter:       key.NewBinding(key.WithKeys("enter")),
	NextDataset: key.NewBinding(key.WithKeys("tab")),
	PrevDataset: key.NewBinding(key.WithKeys("shift+tab")),
	Tag:         key.NewBinding(key.WithKeys("t")),
	Source:      key.NewBinding(key.WithKeys("u")),
	Bands:       key.NewBinding(key.WithKeys("v")),
	Surprise:    key.NewBinding(key.WithKeys("s")),
	Reload:      key.NewBinding(key.WithKeys("r")),
}
