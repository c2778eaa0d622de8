package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/view"
	"github.com/abelbrown/spontis/internal/views"
)

// errNothingToPick is returned when the filters leave no events.
var errNothingToPick = errors.New("no events match")

func newSurpriseCmd() *cobra.Command {
	var (
		dataset string
		tag     string
		vibeID  string
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "surprise",
		Short: "Pick a random event from the feed",
		Long: `Picks a random event from the feed of a dataset. Without --dataset the
tonight dataset is used in the evening and the all dataset otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(logToStderr, func(e *env) error {
				now := e.now()
				if dataset == "" {
					dataset = views.DefaultDataset(now, e.cfg.ViewOptions(e.loc))
				}
				res, err := e.buildOne(cmd.Context(), dataset)
				if err != nil {
					return err
				}

				if seed == 0 {
					seed = time.Now().UnixNano()
				}
				ev, err := pickSurprise(res.Feed, tag, vibeID, rand.New(rand.NewSource(seed)))
				if err != nil {
					return fmt.Errorf("%s dataset: %w", dataset, err)
				}
				fmt.Fprint(cmd.OutOrStdout(), view.Detail(ev, now, e.loc))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Dataset to pick from (default depends on the time of day)")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only events with this tag")
	cmd.Flags().StringVar(&vibeID, "vibe", "", "Only events with this vibe (techno, jazz, performance, talks, experimental)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: time based)")

	return cmd
}

// pickSurprise filters events by tag and vibe and picks one at random.
func pickSurprise(events []event.Event, tag, vibeID string, r *rand.Rand) (event.Event, error) {
	events = views.FilterByTag(events, tag)
	if vibeID != "" {
		if !views.HasVibe(events, vibeID) {
			return event.Event{}, fmt.Errorf("%w vibe %q", errNothingToPick, vibeID)
		}
		for _, c := range views.VibeClusters(events) {
			if c.ID == vibeID {
				events = c.Events
			}
		}
	}
	ev, ok := views.Surprise(events, r)
	if !ok {
		return event.Event{}, errNothingToPick
	}
	return ev, nil
}
