package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abelbrown/spontis/internal/config"
	"github.com/abelbrown/spontis/internal/logging"
	"github.com/abelbrown/spontis/internal/otel"
	"github.com/abelbrown/spontis/internal/pipeline"
)

// recorderSize bounds the in-memory run events kept for stats.
const recorderSize = 512

// env is everything a subcommand needs for one invocation.
type env struct {
	cfg    *config.Config
	loc    *time.Location
	now    func() time.Time
	events *otel.Logger
	rec    *otel.Recorder
	pipe   *pipeline.Pipeline

	flushed bool
}

// logTarget says where the charmbracelet logger writes. The browser must
// not write to the terminal it draws on.
type logTarget int

const (
	logToStderr logTarget = iota
	logToFile
)

// withEnv loads the config, starts logging and the run event log, calls
// fn and shuts everything down again.
func withEnv(target logTarget, fn func(*env) error) error {
	e, err := newEnv(target, os.Stderr)
	if err != nil {
		return err
	}
	defer e.close()
	if err := fn(e); err != nil {
		e.events.Error(otel.KindError, "cli", err)
		return err
	}
	return nil
}

func newEnv(target logTarget, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(globalConfig)
	if err != nil {
		return nil, err
	}
	if globalLogLevel != "" {
		cfg.LogLevel = globalLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	now, err := parseNow(globalNow, loc)
	if err != nil {
		return nil, err
	}

	switch target {
	case logToFile:
		err = logging.Init(cfg.LogLevel)
	default:
		err = logging.InitWriter(stderr, cfg.LogLevel)
	}
	if err != nil {
		return nil, fmt.Errorf("starting logger: %w", err)
	}

	if globalTrace {
		otel.SetTraceEnabled(true)
	}
	events := otel.NewNullLogger()
	if cfg.EventLog.Enabled {
		if events, err = otel.Open(cfg.EventLogDir()); err != nil {
			logging.Warn("event log disabled", "err", err)
			events = otel.NewNullLogger()
		}
	}
	rec := otel.NewRecorder(recorderSize)
	events.SetRecorder(rec)
	events.Info(otel.KindStartup, "cli", "spontis "+logging.Version)

	fc := cfg.FeedOptions(loc)
	return &env{
		cfg:    cfg,
		loc:    loc,
		now:    now,
		events: events,
		rec:    rec,
		pipe:   pipeline.New(pipeline.Options{Loc: loc, Now: now, Feed: &fc, RelatedThreshold: cfg.Feed.RelatedThreshold, Events: events}),
	}, nil
}

func (e *env) close() {
	e.flush()
	if n := e.events.Dropped(); n > 0 {
		logging.Warn("run events dropped", "count", n)
	}
	logging.Close()
}

// flush writes out every queued run event, after which the recorder is
// complete. Later events are dropped.
func (e *env) flush() {
	if e.flushed {
		return
	}
	e.flushed = true
	e.events.Info(otel.KindShutdown, "cli", "")
	e.events.Close()
}

// parseNow returns a fixed clock for an RFC 3339 value, or time.Now for an
// empty one. A value without offset is read in loc.
func parseNow(value string, loc *time.Location) (func() time.Time, error) {
	if value == "" {
		return time.Now, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return func() time.Time { return t }, nil
		}
	}
	return nil, fmt.Errorf("invalid --now %q: want RFC 3339", value)
}

// readDataset reads the input file of a dataset. The all dataset must
// exist; a missing today or tonight file is an empty batch.
func (e *env) readDataset(name string) ([]byte, error) {
	path := e.cfg.DatasetPath(name)
	if path == "" {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && name != pipeline.DatasetAll:
		logging.Debug("dataset file missing, using empty batch", "dataset", name, "path", path)
		data = []byte("[]")
	case err != nil:
		return nil, fmt.Errorf("reading dataset %s: %w", name, err)
	}
	e.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindDatasetLoad, Comp: "cli", Dataset: name, Count: len(data), Msg: path})
	return data, nil
}

// buildDatasets reads and runs the named datasets. No names means all of
// them.
func (e *env) buildDatasets(ctx context.Context, names ...string) (map[string]*pipeline.Result, error) {
	if len(names) == 0 {
		names = pipeline.DatasetNames
	}
	batches := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := e.readDataset(name)
		if err != nil {
			return nil, err
		}
		batches[name] = data
	}
	return e.pipe.RunAll(ctx, batches)
}

// buildOne runs a single dataset.
func (e *env) buildOne(ctx context.Context, name string) (*pipeline.Result, error) {
	results, err := e.buildDatasets(ctx, name)
	if err != nil {
		return nil, err
	}
	return results[name], nil
}
