package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/spontis/internal/otel"
	"github.com/abelbrown/spontis/internal/pipeline"
	"github.com/abelbrown/spontis/internal/views"
)

// topTags is how many tags the stats command lists.
const topTags = 10

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build every dataset and print run statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			otel.SetTraceEnabled(true)
			return withEnv(logToStderr, func(e *env) error {
				start := time.Now()
				results, err := e.buildDatasets(cmd.Context())
				if err != nil {
					return err
				}
				elapsed := time.Since(start)
				e.flush()

				printStats(cmd.OutOrStdout(), results, e.rec.StageTimings())
				fmt.Fprintf(cmd.OutOrStdout(), "\nBuilt %d datasets in %s\n", len(results), elapsed.Round(time.Microsecond))
				return nil
			})
		},
	}
	return cmd
}

func printStats(w io.Writer, results map[string]*pipeline.Result, timings map[string]time.Duration) {
	var rows [][]string
	for _, name := range orderedNames(results) {
		s := results[name].Stats
		rows = append(rows, []string{
			name,
			humanize.Comma(int64(s.Dedupe.Input)),
			humanize.Comma(int64(s.Dedupe.Merged)),
			humanize.Comma(int64(s.Dedupe.Skipped)),
			humanize.Comma(int64(s.Events)),
			humanize.Comma(int64(s.Upcoming)),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Dataset", "Input", "Merged", "Keyless", "Events", "Upcoming"}, rows))

	all, ok := results[pipeline.DatasetAll]
	if !ok {
		return
	}

	fmt.Fprintln(w, "\nSources")
	fmt.Fprintln(w, renderTable([]string{"Source", "Events"}, sourceRows(views.SourceRollup(all.Events))))

	fmt.Fprintln(w, "\nVibes")
	fmt.Fprintln(w, renderTable([]string{"Vibe", "Events", "Share"}, clusterRows(views.VibeClusters(all.Events), len(all.Events))))

	if tagRows := topTagRows(all.Stats.Tags, topTags); len(tagRows) > 0 {
		fmt.Fprintln(w, "\nTags")
		fmt.Fprintln(w, renderTable([]string{"Tag", "Events"}, tagRows))
	}

	fmt.Fprintln(w, "\nWeek")
	fmt.Fprint(w, renderHeatmap(views.Heatmap(all.Events)))

	if len(timings) > 0 {
		fmt.Fprintln(w, "\nStage timings (all datasets)")
		fmt.Fprintln(w, renderTable([]string{"Stage", "Time"}, timingRows(timings)))
	}
}

// orderedNames returns known datasets first, then the rest sorted.
func orderedNames(results map[string]*pipeline.Result) []string {
	d := pipeline.NewDatasets()
	d.SetAll(results)
	return d.Names()
}

// topTagRows returns the n most used tags, ties by name.
func topTagRows(counts map[string]int, n int) [][]string {
	names := make([]string, 0, len(counts))
	for t := range counts {
		names = append(names, t)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	rows := make([][]string, len(names))
	for i, t := range names {
		rows[i] = []string{t, humanize.Comma(int64(counts[t]))}
	}
	return rows
}

// stageOrder is the order stages run in.
var stageOrder = []string{"dedupe", "tags", "vibe", "display", "order"}

func timingRows(timings map[string]time.Duration) [][]string {
	var rows [][]string
	for _, stage := range stageOrder {
		if d, ok := timings[stage]; ok {
			rows = append(rows, []string{stage, d.Round(time.Microsecond).String()})
		}
	}
	return rows
}
