package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlescan/internal/pattern"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CANDLESCAN_DB", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scanner, cfg.Scanner)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scanner:
  workers: 3
  timeout: 90s
  recent_bars: 0
features:
  trend_period: 20
patterns:
  body_field: heikin-ashi
  rules: ["hanging man", "tri star"]
store:
  path: /tmp/file.db
`), 0o644))

	t.Setenv("CANDLESCAN_DB", "/tmp/env.db")
	t.Setenv("CANDLESCAN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Scanner.Workers)
	assert.Equal(t, 90*time.Second, cfg.Scanner.Timeout)
	assert.Equal(t, 0, cfg.Scanner.RecentBars)
	assert.Equal(t, 20, cfg.FeatureSettings().TrendPeriod)
	assert.Equal(t, 10, cfg.FeatureSettings().BaselinePeriod, "unset keys keep defaults")
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"hanging man", "tri star"}, reg.Names())

	rule, err := reg.Get("hanging man")
	require.NoError(t, err)
	assert.Equal(t, pattern.BodyHeikinAshi, rule.(*pattern.HangingMan).Body)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no workers", func(c *Config) { c.Scanner.Workers = 0 }},
		{"no rule workers", func(c *Config) { c.Scanner.RuleWorkers = 0 }},
		{"no lookback", func(c *Config) { c.Scanner.LookbackDays = 0 }},
		{"negative recent bars", func(c *Config) { c.Scanner.RecentBars = -1 }},
		{"zero timeout", func(c *Config) { c.Scanner.Timeout = 0 }},
		{"bad trend period", func(c *Config) { c.Features.TrendPeriod = 0 }},
		{"unknown body field", func(c *Config) { c.Patterns.BodyField = "wick" }},
		{"unknown rule", func(c *Config) { c.Patterns.Rules = []string{"abandoned baby"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
