// Package styles holds the lipgloss styles shared by the browser views.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/spontis/internal/vibe"
)

// Colors used in the browser.
var (
	ColorPrimary   = lipgloss.Color("62")  // Purple
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorMuted     = lipgloss.Color("240") // Darker gray
	ColorHighlight = lipgloss.Color("212") // Pink
	ColorSuccess   = lipgloss.Color("78")  // Green
	ColorError     = lipgloss.Color("196")
)

// vibeColors gives every vibe category its badge color.
var vibeColors = map[string]lipgloss.Color{
	vibe.Techno:       lipgloss.Color("99"),
	vibe.Jazz:         lipgloss.Color("214"),
	vibe.Performance:  lipgloss.Color("212"),
	vibe.Talks:        lipgloss.Color("75"),
	vibe.Experimental: lipgloss.Color("78"),
}

// VibeColor returns the badge color for a vibe id.
func VibeColor(id string) lipgloss.Color {
	if c, ok := vibeColors[id]; ok {
		return c
	}
	return ColorSecondary
}

var (
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255")).
		Background(ColorPrimary).
		Padding(0, 1)

	ItemSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(ColorPrimary)

	ItemNormal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// ItemMuted is used for the when/where line under a headline.
	ItemMuted = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	BandDivider = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHighlight)

	VibeBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("236"))

	TagBadge = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StatusBar = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	FilterActive = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	Error = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true).
		Padding(0, 1)

	Help = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(1, 2)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHighlight)

	TableCell = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))
)

// Truncate shortens s to at most n runes, ending in an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
