package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"candlescan/internal/features"
	"candlescan/internal/pattern"
)

// Config represents the application configuration
type Config struct {
	API      APIConfig     `yaml:"api"`
	Scanner  ScannerConfig `yaml:"scanner"`
	Features FeatureConfig `yaml:"features"`
	Patterns PatternConfig `yaml:"patterns"`
	Store    StoreConfig   `yaml:"store"`
	Server   ServerConfig  `yaml:"server"`
	Log      LogConfig     `yaml:"log"`
}

// APIConfig holds data provider configurations
type APIConfig struct {
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
	Yahoo        bool           `yaml:"yahoo"`   // use Yahoo Finance chart API
	CSVDir       string         `yaml:"csv_dir"` // directory of <SYMBOL>.csv files
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers      int           `yaml:"workers"`       // symbols fetched in parallel
	RuleWorkers  int           `yaml:"rule_workers"`  // rules evaluated in parallel per symbol
	Timeout      time.Duration `yaml:"timeout"`       // whole scan
	LookbackDays int           `yaml:"lookback_days"` // daily bars fetched per symbol
	RecentBars   int           `yaml:"recent_bars"`   // report matches ending in the last N bars, 0 = all
}

// FeatureConfig holds candle annotation settings
type FeatureConfig struct {
	TrendPeriod    int     `yaml:"trend_period"`
	BaselinePeriod int     `yaml:"baseline_period"`
	LongFactor     float64 `yaml:"long_factor"`
	ShortFactor    float64 `yaml:"short_factor"`
	DojiFraction   float64 `yaml:"doji_fraction"`
	MaxShadowRatio float64 `yaml:"max_shadow_ratio"`
}

// PatternConfig selects the active rules
type PatternConfig struct {
	BodyField string   `yaml:"body_field"` // standard, heikin-ashi
	Rules     []string `yaml:"rules"`      // empty = all built-in rules
}

// StoreConfig holds persistence settings
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file, empty disables persistence
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	fc := features.DefaultConfig()
	return &Config{
		API: APIConfig{
			AlphaVantage: ProviderConfig{
				Key:       os.Getenv("ALPHAVANTAGE_API_KEY"),
				RateLimit: 5,
			},
			Yahoo: true,
		},
		Scanner: ScannerConfig{
			Workers:      10,
			RuleWorkers:  1,
			Timeout:      5 * time.Minute,
			LookbackDays: 120,
			RecentBars:   5,
		},
		Features: FeatureConfig{
			TrendPeriod:    fc.TrendPeriod,
			BaselinePeriod: fc.BaselinePeriod,
			LongFactor:     fc.LongFactor,
			ShortFactor:    fc.ShortFactor,
			DojiFraction:   fc.DojiFraction,
			MaxShadowRatio: fc.MaxShadowRatio,
		},
		Patterns: PatternConfig{
			BodyField: "standard",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Use defaults if file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Override with environment variables if set
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		cfg.API.AlphaVantage.Key = key
	}
	if path := os.Getenv("CANDLESCAN_DB"); path != "" {
		cfg.Store.Path = path
	}
	if level := os.Getenv("CANDLESCAN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

// FeatureSettings converts the YAML section to annotator settings
func (c *Config) FeatureSettings() features.Config {
	return features.Config{
		TrendPeriod:    c.Features.TrendPeriod,
		BaselinePeriod: c.Features.BaselinePeriod,
		LongFactor:     c.Features.LongFactor,
		ShortFactor:    c.Features.ShortFactor,
		DojiFraction:   c.Features.DojiFraction,
		MaxShadowRatio: c.Features.MaxShadowRatio,
	}
}

// Registry builds the rule registry selected by the pattern section
func (c *Config) Registry() (*pattern.Registry, error) {
	field, err := pattern.ParseBodyField(c.Patterns.BodyField)
	if err != nil {
		return nil, err
	}
	return pattern.DefaultRegistry(pattern.WithBodyField(field)).Subset(c.Patterns.Rules...)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Scanner.RuleWorkers < 1 {
		return fmt.Errorf("rule_workers must be at least 1")
	}
	if c.Scanner.LookbackDays < 1 {
		return fmt.Errorf("lookback_days must be at least 1")
	}
	if c.Scanner.RecentBars < 0 {
		return fmt.Errorf("recent_bars must not be negative")
	}
	if c.Scanner.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if err := c.FeatureSettings().Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("patterns: %w", err)
	}
	return nil
}
