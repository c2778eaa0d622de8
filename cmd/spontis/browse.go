package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/spontis/internal/logging"
	"github.com/abelbrown/spontis/internal/pipeline"
	"github.com/abelbrown/spontis/internal/view"
	"github.com/abelbrown/spontis/internal/views"
)

func newBrowseCmd() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the built feeds in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(logToFile, func(e *env) error {
				results, err := e.buildDatasets(cmd.Context())
				if err != nil {
					return err
				}
				store := pipeline.NewDatasets()
				store.SetAll(results)

				if dataset == "" {
					dataset = views.DefaultDataset(e.now(), e.cfg.ViewOptions(e.loc))
				}

				m := view.New(view.Options{
					Datasets: store,
					Dataset:  dataset,
					Reload: func(ctx context.Context) (map[string]*pipeline.Result, error) {
						return e.buildDatasets(ctx)
					},
					Now:  e.now,
					Loc:  e.loc,
					Rand: rand.New(rand.NewSource(time.Now().UnixNano())),
				})

				logging.Info("browser started", "dataset", dataset, "datasets", len(results))
				p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
				if _, err := p.Run(); err != nil {
					return fmt.Errorf("running browser: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Dataset shown first (default depends on the time of day)")
	return cmd
}
