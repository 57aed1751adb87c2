package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and
// OPENCLAW_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a configuration from raw YAML. Used by Load and by the
// hot-reload watcher.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = "127.0.0.1:9464"
	}
	if cfg.Budget.Action == "" {
		cfg.Budget.Action = "warn"
	}
}

// applyEnvOverrides applies OPENCLAW_* environment variables on top of
// the file-based configuration. Environment always wins.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("OPENCLAW_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("OPENCLAW_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("OPENCLAW_PRICING_SOURCE_URL"); val != "" {
		cfg.Pricing.SourceURL = val
	}
	if val := os.Getenv("OPENCLAW_METRICS_LISTEN"); val != "" {
		cfg.Metrics.ListenAddress = val
	}
	if val := os.Getenv("OPENCLAW_DAILY_LIMIT_USD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.DailyLimitUSD = &f
		}
	}
	if val := os.Getenv("OPENCLAW_MONTHLY_LIMIT_USD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.MonthlyLimitUSD = &f
		}
	}
}

// Validate checks cross-field constraints.
func Validate(cfg *Config) error {
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}

	if w := cfg.Budget.WarnThreshold; w < 0 || w > 1 {
		return fmt.Errorf("budget.warnThreshold must be within [0, 1], got %v", w)
	}
	if t := cfg.Budget.ThrottleThreshold; t != 0 {
		if t < 0 || t > 1 {
			return fmt.Errorf("budget.throttleThreshold must be within [0, 1], got %v", t)
		}
		warn := cfg.Budget.WarnThreshold
		if warn == 0 {
			warn = 0.8
		}
		if t <= warn {
			return fmt.Errorf("budget.throttleThreshold (%v) must exceed warnThreshold (%v)", t, warn)
		}
	}
	switch cfg.Budget.Action {
	case "warn", "block":
	default:
		return fmt.Errorf("budget.action must be warn or block, got %q", cfg.Budget.Action)
	}

	if ld := cfg.Sentinel.LoopDetection; ld != nil {
		if ld.WindowSize <= 0 || ld.RepeatThreshold <= 0 {
			return fmt.Errorf("sentinel.loopDetection windowSize and repeatThreshold must be positive")
		}
	}
	if cv := cfg.Sentinel.CostVelocity; cv != nil {
		if cv.WindowMinutes <= 0 || cv.Multiplier <= 0 {
			return fmt.Errorf("sentinel.costVelocity windowMinutes and multiplier must be positive")
		}
	}
	if hd := cfg.Sentinel.HeartbeatDrift; hd != nil {
		if hd.LookbackRuns < 2 {
			return fmt.Errorf("sentinel.heartbeatDrift lookbackRuns must be at least 2")
		}
	}
	return nil
}
