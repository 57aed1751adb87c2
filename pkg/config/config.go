package config

import (
	"os"
	"path/filepath"

	"github.com/blueif16/openclaw-costguard/pkg/budget"
	"github.com/blueif16/openclaw-costguard/pkg/sentinel"
)

// HomeEnvVar selects the state home directory; when unset the home
// directory falls back to ~/.openclaw.
const HomeEnvVar = "OPENCLAW_HOME"

// homeSubdir is the fixed subpath under the user's home directory.
const homeSubdir = ".openclaw"

// Config is the root CostGuard configuration.
type Config struct {
	// Home is the state directory holding the ledger database and the
	// price cache file. Empty resolves via OPENCLAW_HOME or the user's
	// home directory.
	Home string `yaml:"home"`

	Logging  LoggingConfig   `yaml:"logging"`
	Pricing  PricingConfig   `yaml:"pricing"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Budget   budget.Config   `yaml:"budget"`
	Sentinel sentinel.Config `yaml:"sentinel"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// PricingConfig controls the price table refresh.
type PricingConfig struct {
	// SourceURL is the remote price document; empty uses the default.
	SourceURL string `yaml:"sourceUrl"`

	// RefreshSchedule is a cron expression for periodic re-refresh;
	// empty disables scheduled refreshes (the startup refresh still runs).
	RefreshSchedule string `yaml:"refreshSchedule"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// enabled=false leaves metrics registered but unserved.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP listen address.
	ListenAddress string `yaml:"listenAddress"`
}

// ResolveHome returns the effective state directory: the configured
// value, else OPENCLAW_HOME, else the user's home directory plus the
// fixed subpath.
func (c *Config) ResolveHome() (string, error) {
	if c.Home != "" {
		return c.Home, nil
	}
	if env := os.Getenv(HomeEnvVar); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeSubdir), nil
}

// LedgerPath is the ledger database file inside the state directory.
func LedgerPath(home string) string {
	return filepath.Join(home, "costguard.db")
}

// PriceCachePath is the price cache file inside the state directory.
func PriceCachePath(home string) string {
	return filepath.Join(home, "costguard-pricing.json")
}
