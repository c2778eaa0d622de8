package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abelbrown/spontis/internal/logging"
	"github.com/abelbrown/spontis/internal/otel"
	"github.com/abelbrown/spontis/internal/pipeline"
)

func newBuildCmd() *cobra.Command {
	var (
		outDir   string
		datasets []string
		pretty   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the pipeline and write the feed documents",
		Long: `Runs the pipeline over the configured dataset files and writes one JSON
document per dataset with the normalized events, the balanced feed, the
upcoming block and run statistics.

Without --out a single dataset is written to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" && len(datasets) != 1 {
				return fmt.Errorf("stdout takes a single dataset: pick one with --dataset or use --out")
			}
			return withEnv(logToStderr, func(e *env) error {
				results, err := e.buildDatasets(cmd.Context(), datasets...)
				if err != nil {
					return err
				}
				if outDir == "" {
					return writeResult(cmd.OutOrStdout(), results[datasets[0]], pretty)
				}
				return writeResults(cmd.OutOrStdout(), e, outDir, results, pretty)
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for <dataset>.json documents")
	cmd.Flags().StringSliceVarP(&datasets, "dataset", "d", nil, "Datasets to build (default all, today, tonight)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")

	return cmd
}

// writeResults writes one document per dataset and prints a summary line
// for each to out.
func writeResults(out io.Writer, e *env, dir string, results map[string]*pipeline.Result, pretty bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, name := range orderedNames(results) {
		res := results[name]
		path := filepath.Join(dir, name+".json")
		if err := writeResultFile(path, res, pretty); err != nil {
			return err
		}
		e.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDatasetWrite, Comp: "cli", RunID: res.RunID, Dataset: name, Count: len(res.Feed), Msg: path})
		logging.Info("dataset written", "dataset", name, "events", len(res.Events), "path", path)
		fmt.Fprintf(out, "%-8s %4d events → %s\n", name, len(res.Events), path)
	}
	return nil
}

// writeResultFile writes to a temporary file and renames it into place so
// readers never see a partial document.
func writeResultFile(path string, res *pipeline.Result, pretty bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".spontis-*.json")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := writeResult(tmp, res, pretty); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeResult(w io.Writer, res *pipeline.Result, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
