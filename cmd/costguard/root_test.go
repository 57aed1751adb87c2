package main

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"run":     false,
		"report":  false,
		"pricing": false,
		"version": false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	origCfgFile, origLogLevel := cfgFile, logLevel
	defer func() { cfgFile, logLevel = origCfgFile, origLogLevel }()

	cfgFile = ""
	logLevel = "debug"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want flag override debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format == "" {
		t.Error("defaults missing log format")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()

	cfgFile = "/nonexistent/costguard.yaml"
	if _, err := loadConfig(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want version", versionCmd.Use)
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
}
