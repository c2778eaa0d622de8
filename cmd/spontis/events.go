package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/abelbrown/spontis/internal/config"
)

// followInterval is how often follow mode polls the log.
const followInterval = 100 * time.Millisecond

// eventRecord is the subset of a run event line the viewer shows. Lines
// are read with gjson so old or foreign lines still display.
type eventRecord struct {
	Time    time.Time
	Level   string
	Kind    string
	Comp    string
	RunID   string
	Dataset string
	Stage   string
	DurMs   float64
	Count   int
	Err     string
	Msg     string
}

// parseRecord decodes one JSONL line. It reports false for anything that
// is not a JSON object.
func parseRecord(line []byte) (eventRecord, bool) {
	if !gjson.ValidBytes(line) {
		return eventRecord{}, false
	}
	res := gjson.ParseBytes(line)
	if !res.IsObject() {
		return eventRecord{}, false
	}
	f := res.Get
	t, _ := time.Parse(time.RFC3339Nano, f("t").String())
	return eventRecord{
		Time:    t,
		Level:   f("level").String(),
		Kind:    f("kind").String(),
		Comp:    f("comp").String(),
		RunID:   f("run_id").String(),
		Dataset: f("dataset").String(),
		Stage:   f("stage").String(),
		DurMs:   f("dur_ms").Float(),
		Count:   int(f("count").Int()),
		Err:     f("err").String(),
		Msg:     f("msg").String(),
	}, true
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventFilter selects records. Empty fields match everything.
type eventFilter struct {
	kind    string // prefix
	level   string // minimum
	comp    string
	runID   string // prefix
	dataset string
}

func (f eventFilter) match(ev eventRecord) bool {
	switch {
	case f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind):
		return false
	case f.level != "" && levelRank(ev.Level) < levelRank(f.level):
		return false
	case f.comp != "" && ev.Comp != f.comp:
		return false
	case f.runID != "" && !strings.HasPrefix(ev.RunID, f.runID):
		return false
	case f.dataset != "" && ev.Dataset != f.dataset:
		return false
	}
	return true
}

func formatRecord(ev eventRecord) string {
	ts := ev.Time.Local().Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-8s] %-18s", ts, lvl, ev.Comp, ev.Kind)}
	if ev.Dataset != "" {
		parts = append(parts, "ds="+ev.Dataset)
	}
	if ev.Stage != "" {
		parts = append(parts, "stage="+ev.Stage)
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.RunID != "" {
		parts = append(parts, "run="+shortID(ev.RunID))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}

func newEventsCmd() *cobra.Command {
	var (
		tail    int
		follow  bool
		rawJSON bool
		date    string
		filter  eventFilter
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the run event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(globalConfig)
			if err != nil {
				return err
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			path := filepath.Join(cfg.EventLogDir(), fmt.Sprintf("events-%s.jsonl", date))

			f, err := os.Open(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no event log at %s: run spontis build first", path)
				}
				return fmt.Errorf("opening event log: %w", err)
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			show := func(l parsedLine) {
				if rawJSON {
					fmt.Fprintln(out, string(l.raw))
					return
				}
				fmt.Fprintln(out, formatRecord(l.ev))
			}

			for _, l := range readTailLines(f, tail, filter.match) {
				show(l)
			}
			if !follow {
				return nil
			}
			return followLines(cmd.Context(), f, filter.match, show)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&tail, "tail", "n", 50, "Number of recent lines to show")
	flags.BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	flags.BoolVar(&rawJSON, "json", false, "Output raw JSON lines")
	flags.StringVar(&date, "date", "", "Log day as YYYY-MM-DD (default today)")
	flags.StringVar(&filter.kind, "kind", "", "Filter by event kind prefix (e.g. 'pipeline')")
	flags.StringVar(&filter.level, "level", "", "Minimum level: debug, info, warn, error")
	flags.StringVar(&filter.comp, "comp", "", "Filter by component (pipeline, cli)")
	flags.StringVar(&filter.runID, "run", "", "Filter by run id prefix")
	flags.StringVar(&filter.dataset, "dataset", "", "Filter by dataset")

	return cmd
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines returns the last n lines of r matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	if n <= 0 {
		return nil
	}
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		ev, ok := parseRecord(raw)
		if !ok || !match(ev) {
			continue
		}
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		if len(ring) > n {
			ring = ring[1:]
		}
	}
	return ring
}

// followLines prints lines appended to r until ctx is done.
func followLines(ctx context.Context, r io.Reader, match func(eventRecord) bool, show func(parsedLine)) error {
	reader := bufio.NewReader(r)
	var pending []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followInterval):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}

		line := trimLine(pending)
		pending = nil
		if len(line) == 0 {
			continue
		}
		if ev, ok := parseRecord(line); ok && match(ev) {
			show(parsedLine{ev: ev, raw: line})
		}
	}
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
