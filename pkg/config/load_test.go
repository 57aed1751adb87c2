package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_FullDocument(t *testing.T) {
	doc := []byte(`
logging:
  level: debug
  format: json
pricing:
  refreshSchedule: "0 4 * * *"
budget:
  dailyLimitUsd: 10
  monthlyLimitUsd: 200
  warnThreshold: 0.75
  throttleThreshold: 0.9
  throttleFallbackModel: claude-haiku-4-5
  action: block
  scopes:
    "cron:daily-digest":
      dailyLimitUsd: 1
    "agent:*":
      dailyLimitUsd: 5
sentinel:
  loopDetection:
    windowSize: 5
    repeatThreshold: 3
    action: pause
  costVelocity:
    windowMinutes: 5
    multiplier: 3
    action: warn
  alertChannel: ops-alerts
`)

	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Budget.DailyLimitUSD == nil || *cfg.Budget.DailyLimitUSD != 10 {
		t.Errorf("daily limit = %v, want 10", cfg.Budget.DailyLimitUSD)
	}
	ov, ok := cfg.Budget.Scopes["cron:daily-digest"]
	if !ok || ov.DailyLimitUSD == nil || *ov.DailyLimitUSD != 1 {
		t.Errorf("scope override missing or wrong: %+v", ov)
	}
	if ov.MonthlyLimitUSD != nil {
		t.Error("unset override field must stay nil for inheritance")
	}
	if cfg.Sentinel.LoopDetection == nil || cfg.Sentinel.LoopDetection.RepeatThreshold != 3 {
		t.Errorf("loop detection config = %+v", cfg.Sentinel.LoopDetection)
	}
	if cfg.Sentinel.ContextSpike != nil {
		t.Error("absent sentinel section must stay nil")
	}
	if cfg.Sentinel.AlertChannel != "ops-alerts" {
		t.Errorf("alert channel = %q", cfg.Sentinel.AlertChannel)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Budget.Action != "warn" {
		t.Errorf("budget action default = %q, want warn", cfg.Budget.Action)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad log format", "logging:\n  format: xml"},
		{"warn threshold out of range", "budget:\n  warnThreshold: 1.5"},
		{"throttle below warn", "budget:\n  warnThreshold: 0.9\n  throttleThreshold: 0.5"},
		{"bad budget action", "budget:\n  action: explode"},
		{"zero loop window", "sentinel:\n  loopDetection:\n    windowSize: 0\n    repeatThreshold: 3"},
		{"drift lookback too small", "sentinel:\n  heartbeatDrift:\n    lookbackRuns: 1\n    driftPercent: 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("expected validation error for %q", tt.doc)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENCLAW_LOG_LEVEL", "debug")
	t.Setenv("OPENCLAW_DAILY_LIMIT_USD", "42.5")

	cfg, err := Parse([]byte("logging:\n  level: info"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override lost: level = %q", cfg.Logging.Level)
	}
	if cfg.Budget.DailyLimitUSD == nil || *cfg.Budget.DailyLimitUSD != 42.5 {
		t.Errorf("env daily limit = %v, want 42.5", cfg.Budget.DailyLimitUSD)
	}
}

func TestResolveHome(t *testing.T) {
	t.Run("explicit config wins", func(t *testing.T) {
		cfg := &Config{Home: "/tmp/explicit"}
		home, err := cfg.ResolveHome()
		if err != nil || home != "/tmp/explicit" {
			t.Errorf("home = %q, err = %v", home, err)
		}
	})

	t.Run("env var next", func(t *testing.T) {
		t.Setenv(HomeEnvVar, "/tmp/from-env")
		cfg := &Config{}
		home, err := cfg.ResolveHome()
		if err != nil || home != "/tmp/from-env" {
			t.Errorf("home = %q, err = %v", home, err)
		}
	})

	t.Run("falls back to user home subpath", func(t *testing.T) {
		t.Setenv(HomeEnvVar, "")
		os.Unsetenv(HomeEnvVar)
		cfg := &Config{}
		home, err := cfg.ResolveHome()
		if err != nil {
			t.Fatalf("ResolveHome failed: %v", err)
		}
		if filepath.Base(home) != ".openclaw" {
			t.Errorf("home = %q, want .openclaw suffix", home)
		}
	})
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
