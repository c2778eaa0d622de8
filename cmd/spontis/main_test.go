package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/spontis/internal/config"
	"github.com/abelbrown/spontis/internal/event"
	"github.com/abelbrown/spontis/internal/otel"
	"github.com/abelbrown/spontis/internal/pipeline"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/views"
)

const sampleBatch = `[
	{"title":"Jazz Night","venue":"Kvarteret","when":"Fri 20:00","source":"RA"},
	{"title":"Jazz Night","venue":"Kvarteret","when":"Fri 20:00","source":"NattJazz","url":"https://nattjazz.no"},
	{"title":"Quiz","starts_at":"2025-10-09T20:00:00+02:00","source":"Hulen","tags":["Quiz"]}
]`

// writeWorkspace creates a data dir with events.json and a config file
// pointing at it, and returns the config path.
func writeWorkspace(t *testing.T, batch string) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	if batch != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, "events.json"), []byte(batch), 0600))
	}

	cfg := fmt.Sprintf("data_dir: %s\nlog_level: error\nevent_log:\n  enabled: false\n", dataDir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildToStdout(t *testing.T) {
	cfgPath := writeWorkspace(t, sampleBatch)
	out, err := execute(t, "--config", cfgPath, "--now", "2025-10-09T18:00:00+02:00", "build", "--dataset", "all")
	require.NoError(t, err)

	var doc struct {
		RunID       string        `json:"run_id"`
		GeneratedAt time.Time     `json:"generated_at"`
		Events      []event.Event `json:"events"`
		Feed        []event.Event `json:"feed"`
		Upcoming    []event.Event `json:"upcoming"`
		Stats       struct {
			Events int `json:"events"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.RunID)
	assert.Len(t, doc.Events, 2)
	assert.Len(t, doc.Feed, 2)
	assert.Equal(t, 2, doc.Stats.Events)
	require.Len(t, doc.Upcoming, 1)
	assert.Equal(t, "Quiz", doc.Upcoming[0].Title)
}

func TestBuildToDirWritesEveryDataset(t *testing.T) {
	cfgPath := writeWorkspace(t, sampleBatch)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "--config", cfgPath, "build", "--out", outDir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "one summary line per dataset on the command's writer")
	assert.True(t, strings.HasPrefix(lines[0], "all "))
	assert.Contains(t, lines[0], filepath.Join(outDir, "all.json"))

	for _, name := range pipeline.DatasetNames {
		data, err := os.ReadFile(filepath.Join(outDir, name+".json"))
		require.NoError(t, err, name)
		assert.True(t, json.Valid(data), name)
	}
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporary files left behind")
}

func TestBuildStdoutNeedsOneDataset(t *testing.T) {
	cfgPath := writeWorkspace(t, sampleBatch)
	_, err := execute(t, "--config", cfgPath, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single dataset")
}

func TestBuildMissingAllDataset(t *testing.T) {
	cfgPath := writeWorkspace(t, "")
	_, err := execute(t, "--config", cfgPath, "build", "--dataset", "all")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildNotArray(t *testing.T) {
	cfgPath := writeWorkspace(t, `{"title":"x"}`)
	_, err := execute(t, "--config", cfgPath, "build", "--dataset", "all")
	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrNotArray)
}

func TestViewsHeatmapAndTags(t *testing.T) {
	cfgPath := writeWorkspace(t, sampleBatch)

	out, err := execute(t, "--config", cfgPath, "--now", "2025-10-09T12:00:00+02:00", "views", "heatmap")
	require.NoError(t, err)
	assert.Contains(t, out, "Thu")
	assert.Contains(t, out, "Fri")

	out, err = execute(t, "--config", cfgPath, "--now", "2025-10-09T12:00:00+02:00", "views", "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "jazz")
	assert.Contains(t, out, "quiz")

	_, err = execute(t, "--config", cfgPath, "views", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown view")
}

func TestSurpriseWithSeed(t *testing.T) {
	cfgPath := writeWorkspace(t, sampleBatch)
	out, err := execute(t, "--config", cfgPath, "--now", "2025-10-09T12:00:00+02:00", "surprise", "--dataset", "all", "--tag", "quiz", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Quiz")
}

func TestParseNow(t *testing.T) {
	loc := schedule.DefaultLocation()

	now, err := parseNow("", loc)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now(), time.Minute)

	now, err = parseNow("2025-10-09T18:00", loc)
	require.NoError(t, err)
	assert.True(t, now().Equal(time.Date(2025, 10, 9, 18, 0, 0, 0, loc)))

	now, err = parseNow("2025-10-09T18:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 18, now().UTC().Hour())

	_, err = parseNow("tomorrow", loc)
	assert.Error(t, err)
}

func TestReadDatasetMissingOptional(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	e := &env{cfg: cfg, events: otel.NewNullLogger()}
	defer e.events.Close()

	data, err := e.readDataset(pipeline.DatasetTonight)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = e.readDataset(pipeline.DatasetAll)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = e.readDataset("weekend")
	assert.Error(t, err)
}

func TestPickSurprise(t *testing.T) {
	events := []event.Event{
		{Title: "a", Vibe: "jazz", Tags: []string{"bar"}},
		{Title: "b", Vibe: "techno"},
		{Title: "c", Tags: []string{"bar"}},
	}
	r := rand.New(rand.NewSource(1))

	ev, err := pickSurprise(events, "", "techno", r)
	require.NoError(t, err)
	assert.Equal(t, "b", ev.Title)

	ev, err = pickSurprise(events, "bar", "performance", r)
	require.NoError(t, err)
	assert.Equal(t, "c", ev.Title, "no vibe counts as performance")

	_, err = pickSurprise(events, "bar", "techno", r)
	assert.ErrorIs(t, err, errNothingToPick)

	_, err = pickSurprise(nil, "", "", r)
	assert.ErrorIs(t, err, errNothingToPick)
}

func TestReadTailLinesAndFilter(t *testing.T) {
	log := strings.Join([]string{
		`{"t":"2025-10-09T18:00:00Z","level":"info","kind":"sys.startup","comp":"cli"}`,
		`not json`,
		`{"t":"2025-10-09T18:00:01Z","level":"info","kind":"pipeline.start","comp":"pipeline","run_id":"abcdef123456","dataset":"all","count":3}`,
		`{"t":"2025-10-09T18:00:01Z","level":"debug","kind":"pipeline.stage","comp":"pipeline","stage":"tags","dur_ms":0.5}`,
		`{"t":"2025-10-09T18:00:02Z","level":"error","kind":"pipeline.error","comp":"pipeline","dataset":"today","err":"boom"}`,
		`[1,2]`,
	}, "\n")

	all := readTailLines(strings.NewReader(log), 10, eventFilter{}.match)
	require.Len(t, all, 4)

	last := readTailLines(strings.NewReader(log), 2, eventFilter{}.match)
	require.Len(t, last, 2)
	assert.Equal(t, "pipeline.error", last[1].ev.Kind)

	assert.Empty(t, readTailLines(strings.NewReader(log), 0, eventFilter{}.match))

	pipe := readTailLines(strings.NewReader(log), 10, eventFilter{kind: "pipeline", level: "info"}.match)
	require.Len(t, pipe, 2)
	assert.Equal(t, "pipeline.start", pipe[0].ev.Kind)

	today := readTailLines(strings.NewReader(log), 10, eventFilter{dataset: "today"}.match)
	require.Len(t, today, 1)
	assert.Equal(t, "boom", today[0].ev.Err)

	run := readTailLines(strings.NewReader(log), 10, eventFilter{runID: "abcdef"}.match)
	require.Len(t, run, 1)
	line := formatRecord(run[0].ev)
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "ds=all")
	assert.Contains(t, line, "n=3")
	assert.Contains(t, line, "run=abcdef12")
}

func TestDurPrecision(t *testing.T) {
	assert.Equal(t, 0, durPrecision(150))
	assert.Equal(t, 1, durPrecision(12.5))
	assert.Equal(t, 2, durPrecision(0.25))
}

func TestRenderHeatmap(t *testing.T) {
	cells := []views.DayCount{{Day: "Mon", Count: 4}, {Day: "Tue", Count: 0}, {Day: "Wed", Count: 2}}
	out := renderHeatmap(cells)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, heatmapWidth, strings.Count(lines[0], "█"))
	assert.Equal(t, 0, strings.Count(lines[1], "█"))
	assert.Equal(t, heatmapWidth/2, strings.Count(lines[2], "█"))
}

func TestTopTagRows(t *testing.T) {
	rows := topTagRows(map[string]int{"jazz": 3, "bar": 3, "quiz": 1, "free": 2}, 3)
	assert.Equal(t, [][]string{{"bar", "3"}, {"jazz", "3"}, {"free", "2"}}, rows)
}

func TestTimingRowsFollowStageOrder(t *testing.T) {
	rows := timingRows(map[string]time.Duration{"order": time.Millisecond, "dedupe": 2 * time.Millisecond, "other": time.Second})
	require.Len(t, rows, 2)
	assert.Equal(t, "dedupe", rows[0][0])
	assert.Equal(t, "order", rows[1][0])
}
