package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Europe/Oslo", cfg.Timezone)
	assert.Equal(t, 4*time.Hour, cfg.Feed.NearTerm)
	assert.Equal(t, 14*time.Hour, cfg.Feed.Evening)
	assert.Equal(t, 45*time.Minute, cfg.Feed.Grace)
	assert.Equal(t, 8, cfg.Feed.UpcomingLimit)
	assert.Equal(t, 0.25, cfg.Feed.Fraction)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("SPONTIS_TZ", "")
	t.Setenv("SPONTIS_LOG_LEVEL", "")
	t.Setenv("SPONTIS_DATA_DIR", "")

	path := writeConfig(t, `
timezone: UTC
feed:
  near_term: 2h
  upcoming_limit: 5
  max_per_source: 3
datasets:
  tonight: kveld.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 2*time.Hour, cfg.Feed.NearTerm)
	assert.Equal(t, 14*time.Hour, cfg.Feed.Evening, "unset fields keep defaults")
	assert.Equal(t, 5, cfg.Feed.UpcomingLimit)
	assert.Equal(t, 3, cfg.Feed.MaxPerSource)
	assert.Equal(t, filepath.Join("data", "kveld.json"), cfg.DatasetPath("tonight"))
	assert.Equal(t, filepath.Join("data", "events.json"), cfg.DatasetPath("all"))
	assert.Equal(t, "", cfg.DatasetPath("weekend"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SPONTIS_TZ", "America/New_York")
	t.Setenv("SPONTIS_LOG_LEVEL", "debug")
	t.Setenv("SPONTIS_DATA_DIR", "/srv/spontis")

	cfg, err := Load(writeConfig(t, "timezone: UTC\n"))
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/spontis/events.json", cfg.DatasetPath("all"))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Feed, cfg.Feed)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "feed: [unclosed"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"near term after evening", func(c *Config) { c.Feed.NearTerm = 20 * time.Hour }},
		{"zero limit", func(c *Config) { c.Feed.UpcomingLimit = 0 }},
		{"fraction above one", func(c *Config) { c.Feed.Fraction = 1.5 }},
		{"negative grace", func(c *Config) { c.Feed.Grace = -time.Minute }},
		{"bad hour", func(c *Config) { c.Views.TonightStartHour = 24 }},
		{"zero today radius", func(c *Config) { c.Views.TodayRadius = 0 }},
		{"negative max per source", func(c *Config) { c.Feed.MaxPerSource = -1 }},
		{"max per source below min", func(c *Config) { c.Feed.MinPerSource = 3; c.Feed.MaxPerSource = 2 }},
		{"priority max below min", func(c *Config) { c.Feed.PriorityMax = 1 }},
		{"related threshold above one", func(c *Config) { c.Feed.RelatedThreshold = 1.2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidate_MaxBounds(t *testing.T) {
	cfg := Default()
	cfg.Feed.MaxPerSource = cfg.Feed.MinPerSource
	cfg.Feed.PriorityMax = cfg.Feed.PriorityMin
	cfg.Feed.RelatedThreshold = 0.8
	assert.NoError(t, cfg.Validate())

	cfg.Feed.MaxPerSource = 0
	cfg.Feed.PriorityMax = 0
	assert.NoError(t, cfg.Validate(), "zero means unbounded")
}

func TestFeedOptions(t *testing.T) {
	cfg := Default()
	cfg.Feed.MaxPerSource = 4
	opts := cfg.FeedOptions(time.UTC)

	assert.Equal(t, 8, opts.Window.Limit)
	assert.Equal(t, time.UTC, opts.Window.Loc)
	assert.Equal(t, 4, opts.Max)
	assert.Greater(t, opts.PriorityFraction, opts.Fraction)
	assert.Greater(t, opts.PriorityMin, opts.Min)
}
