package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/view/list"
	"github.com/abelbrown/spontis/internal/view/styles"
	"github.com/abelbrown/spontis/internal/views"
)

// heatmapWidth is the length of the longest heatmap bar.
const heatmapWidth = 30

// printEvents writes one line per event: when, headline, where, vibe.
func printEvents(w io.Writer, events []event.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("%-16s %s", ev.DisplayWhen, ev.DisplayHeadline)
		if ev.DisplayWhere != "" {
			line += " @ " + ev.DisplayWhere
		}
		line += fmt.Sprintf("  [%s]", list.VibeLabel(ev.Vibe))
		fmt.Fprintln(w, line)
	}
}

// renderTable draws rows under headers.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.ColorMuted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeader.Padding(0, 1)
			}
			return styles.TableCell.Padding(0, 1)
		})
	return t.String()
}

// renderHeatmap draws one bar per weekday, scaled to the busiest day.
func renderHeatmap(cells []views.DayCount) string {
	peak := 0
	for _, c := range cells {
		peak = max(peak, c.Count)
	}

	var b strings.Builder
	for _, c := range cells {
		n := 0
		if peak > 0 {
			n = (c.Count*heatmapWidth + peak - 1) / peak
		}
		bar := lipgloss.NewStyle().Foreground(styles.ColorHighlight).Render(strings.Repeat("█", n))
		fmt.Fprintf(&b, "%s %s %s\n", c.Day, bar, humanize.Comma(int64(c.Count)))
	}
	return b.String()
}

func sourceRows(rollup []views.SourceCount) [][]string {
	rows := make([][]string, len(rollup))
	for i, r := range rollup {
		rows[i] = []string{r.Source, humanize.Comma(int64(r.Count))}
	}
	return rows
}

func clusterRows(clusters []views.Cluster, total int) [][]string {
	rows := make([][]string, len(clusters))
	for i, c := range clusters {
		share := 0.0
		if total > 0 {
			share = float64(len(c.Events)) / float64(total) * 100
		}
		rows[i] = []string{c.Label, humanize.Comma(int64(len(c.Events))), humanize.FtoaWithDigits(share, 1) + "%"}
	}
	return rows
}
