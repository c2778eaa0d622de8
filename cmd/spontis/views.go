package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/pipeline"
	"github.com/abelbrown/spontis/internal/views"
)

func newViewsCmd() *cobra.Command {
	var (
		tag         string
		includePast bool
	)

	cmd := &cobra.Command{
		Use:       "views <today|tonight|upcoming|heatmap|sources|vibes|tags>",
		Short:     "Show a derived view of the all dataset",
		Args:      cobra.ExactArgs(1),
		ValidArgs: viewNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !isViewName(name) {
				return fmt.Errorf("unknown view %q, valid views: %s", name, strings.Join(viewNames, ", "))
			}
			return withEnv(logToStderr, func(e *env) error {
				res, err := e.buildOne(cmd.Context(), pipeline.DatasetAll)
				if err != nil {
					return err
				}
				events := res.Events
				if !includePast {
					events = views.DropPast(events, e.now(), e.cfg.Views.PastGrace, e.loc)
				}
				events = views.FilterByTag(events, tag)
				return showView(cmd, e, name, res, events)
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only events with this tag")
	cmd.Flags().BoolVar(&includePast, "past", false, "Keep events that already happened")

	return cmd
}

var viewNames = []string{"today", "tonight", "upcoming", "heatmap", "sources", "vibes", "tags"}

func isViewName(name string) bool {
	for _, n := range viewNames {
		if n == name {
			return true
		}
	}
	return false
}

func showView(cmd *cobra.Command, e *env, name string, res *pipeline.Result, events []event.Event) error {
	out := cmd.OutOrStdout()
	opts := e.cfg.ViewOptions(e.loc)
	now := e.now()

	switch name {
	case "today":
		printEvents(out, views.BuildToday(events, now, opts))
	case "tonight":
		printEvents(out, views.BuildTonight(events, now, opts))
	case "upcoming":
		printEvents(out, res.Upcoming)
	case "heatmap":
		fmt.Fprint(out, renderHeatmap(views.Heatmap(events)))
	case "sources":
		fmt.Fprintln(out, renderTable([]string{"Source", "Events"}, sourceRows(views.SourceRollup(events))))
	case "vibes":
		for _, c := range views.VibeClusters(events) {
			fmt.Fprintf(out, "── %s (%d) ──\n", c.Label, len(c.Events))
			printEvents(out, c.Events)
			fmt.Fprintln(out)
		}
	case "tags":
		fmt.Fprintln(out, strings.Join(views.CollectTags(events), " "))
	}
	return nil
}
