// Package config provides configuration loading for spontis.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/spontis/internal/feed"
	"github.com/abelbrown/spontis/internal/schedule"
	"github.com/abelbrown/spontis/internal/views"
)

const (
	// DefaultConfigDir is the directory name under the home directory.
	DefaultConfigDir = ".spontis"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the tunables of a pipeline run. Defaults match the
// behaviour of the published site.
type Config struct {
	Timezone string         `yaml:"timezone,omitempty"`
	LogLevel string         `yaml:"log_level,omitempty"`
	DataDir  string         `yaml:"data_dir,omitempty"`
	Datasets DatasetsConfig `yaml:"datasets,omitempty"`
	Feed     FeedConfig     `yaml:"feed,omitempty"`
	Views    ViewsConfig    `yaml:"views,omitempty"`
	EventLog EventLogConfig `yaml:"event_log,omitempty"`
}

// DatasetsConfig names the input files, relative to DataDir.
type DatasetsConfig struct {
	All     string `yaml:"all,omitempty"`
	Today   string `yaml:"today,omitempty"`
	Tonight string `yaml:"tonight,omitempty"`
}

// FeedConfig holds the upcoming window and the per-source caps.
type FeedConfig struct {
	NearTerm      time.Duration `yaml:"near_term,omitempty"`
	Evening       time.Duration `yaml:"evening,omitempty"`
	Grace         time.Duration `yaml:"grace,omitempty"`
	UpcomingLimit int           `yaml:"upcoming_limit,omitempty"`

	Fraction     float64 `yaml:"fraction,omitempty"`
	MinPerSource int     `yaml:"min_per_source,omitempty"`
	MaxPerSource int     `yaml:"max_per_source,omitempty"` // 0 = unbounded

	PriorityFraction float64 `yaml:"priority_fraction,omitempty"`
	PriorityMin      int     `yaml:"priority_min,omitempty"`
	PriorityMax      int     `yaml:"priority_max,omitempty"`

	// RelatedThreshold folds same-day, same-venue listings whose titles
	// are at least this similar. 0 = off.
	RelatedThreshold float64 `yaml:"related_threshold,omitempty"`
}

// ViewsConfig holds the today/tonight view windows.
type ViewsConfig struct {
	TodayRadius      time.Duration `yaml:"today_radius,omitempty"`
	TonightStartHour int           `yaml:"tonight_start_hour,omitempty"`
	TonightWindow    time.Duration `yaml:"tonight_window,omitempty"`
	NightEndHour     int           `yaml:"night_end_hour,omitempty"`
	EveningHour      int           `yaml:"evening_hour,omitempty"`
	PastGrace        time.Duration `yaml:"past_grace,omitempty"`
}

// EventLogConfig controls the JSONL run event log.
type EventLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"` // default ~/.spontis/events
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Timezone: schedule.DefaultTimezone,
		LogLevel: "info",
		DataDir:  "data",
		Datasets: DatasetsConfig{
			All:     "events.json",
			Today:   "today.json",
			Tonight: "tonight.json",
		},
		Feed: FeedConfig{
			NearTerm:         feed.DefaultNearTerm,
			Evening:          feed.DefaultEvening,
			Grace:            feed.DefaultGrace,
			UpcomingLimit:    feed.DefaultUpcomingLimit,
			Fraction:         feed.DefaultFraction,
			MinPerSource:     feed.DefaultMinPerSource,
			PriorityFraction: feed.DefaultPriorityFraction,
			PriorityMin:      feed.DefaultPriorityMin,
		},
		Views: ViewsConfig{
			TodayRadius:      6 * time.Hour,
			TonightStartHour: 18,
			TonightWindow:    6 * time.Hour,
			NightEndHour:     4,
			EveningHour:      16,
			PastGrace:        time.Hour,
		},
		EventLog: EventLogConfig{Enabled: true},
	}
}

// DefaultPath returns ~/.spontis/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. An empty path means DefaultPath, and a missing
// default file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if tz := os.Getenv("SPONTIS_TZ"); tz != "" {
		c.Timezone = tz
	}
	if lvl := os.Getenv("SPONTIS_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	if dir := os.Getenv("SPONTIS_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	f := c.Feed
	switch {
	case f.NearTerm <= 0 || f.Evening <= 0:
		return fmt.Errorf("%w: feed windows must be positive", ErrInvalid)
	case f.NearTerm > f.Evening:
		return fmt.Errorf("%w: feed.near_term (%s) exceeds feed.evening (%s)", ErrInvalid, f.NearTerm, f.Evening)
	case f.Grace < 0:
		return fmt.Errorf("%w: feed.grace must not be negative", ErrInvalid)
	case f.UpcomingLimit <= 0:
		return fmt.Errorf("%w: feed.upcoming_limit must be positive", ErrInvalid)
	case f.Fraction <= 0 || f.Fraction > 1 || f.PriorityFraction <= 0 || f.PriorityFraction > 1:
		return fmt.Errorf("%w: feed fractions must be in (0, 1]", ErrInvalid)
	case f.MinPerSource < 0 || f.PriorityMin < 0:
		return fmt.Errorf("%w: per-source minimums must not be negative", ErrInvalid)
	case f.MaxPerSource < 0 || f.PriorityMax < 0:
		return fmt.Errorf("%w: per-source maximums must not be negative", ErrInvalid)
	case f.MaxPerSource > 0 && f.MaxPerSource < f.MinPerSource:
		return fmt.Errorf("%w: feed.max_per_source (%d) below feed.min_per_source (%d)", ErrInvalid, f.MaxPerSource, f.MinPerSource)
	case f.PriorityMax > 0 && f.PriorityMax < f.PriorityMin:
		return fmt.Errorf("%w: feed.priority_max (%d) below feed.priority_min (%d)", ErrInvalid, f.PriorityMax, f.PriorityMin)
	case f.RelatedThreshold < 0 || f.RelatedThreshold > 1:
		return fmt.Errorf("%w: feed.related_threshold must be in [0, 1]", ErrInvalid)
	}
	v := c.Views
	switch {
	case !validHour(v.TonightStartHour) || !validHour(v.NightEndHour) || !validHour(v.EveningHour):
		return fmt.Errorf("%w: view hours must be in 0..23", ErrInvalid)
	case v.TodayRadius <= 0 || v.TonightWindow <= 0:
		return fmt.Errorf("%w: view windows must be positive", ErrInvalid)
	}
	return nil
}

func validHour(h int) bool { return h >= 0 && h <= 23 }

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return schedule.DefaultLocation(), nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalid, c.Timezone, err)
	}
	return loc, nil
}

// FeedOptions converts the feed section for feed.CreateBalancedFeed.
func (c *Config) FeedOptions(loc *time.Location) feed.Config {
	f := c.Feed
	return feed.Config{
		Window: feed.Window{
			NearTerm: f.NearTerm,
			Evening:  f.Evening,
			Grace:    f.Grace,
			Limit:    f.UpcomingLimit,
			Loc:      loc,
		},
		Fraction:         f.Fraction,
		Min:              f.MinPerSource,
		Max:              f.MaxPerSource,
		PriorityFraction: f.PriorityFraction,
		PriorityMin:      f.PriorityMin,
		PriorityMax:      f.PriorityMax,
	}
}

// ViewOptions converts the views section for the views package.
func (c *Config) ViewOptions(loc *time.Location) views.Options {
	v := c.Views
	return views.Options{
		Loc:              loc,
		TodayRadius:      v.TodayRadius,
		TonightStartHour: v.TonightStartHour,
		TonightWindow:    v.TonightWindow,
		NightEndHour:     v.NightEndHour,
		EveningHour:      v.EveningHour,
	}
}

// DatasetPath returns the input file for a dataset name, or "" for an
// unknown name.
func (c *Config) DatasetPath(name string) string {
	var file string
	switch name {
	case "all":
		file = c.Datasets.All
	case "today":
		file = c.Datasets.Today
	case "tonight":
		file = c.Datasets.Tonight
	}
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}

// EventLogDir returns the JSONL event log directory.
func (c *Config) EventLogDir() string {
	if c.EventLog.Dir != "" {
		return c.EventLog.Dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultConfigDir, "events")
}
