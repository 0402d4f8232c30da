package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadFileDefaults_MissingPathIsNotError(t *testing.T) {
	fileDefaults = nil
	if err := LoadFileDefaults(""); err != nil {
		t.Fatalf("unexpected error for empty path: %v", err)
	}
	if err := LoadFileDefaults(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
}

func TestLoadFileDefaults_OverridesFlagDefaultButNotEnv(t *testing.T) {
	fileDefaults = nil
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ENDPOINT__URL: https://file.example\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if err := LoadFileDefaults(path); err != nil {
		t.Fatalf("LoadFileDefaults: %v", err)
	}

	if got := getenvOr("ENDPOINT__URL", "https://default.example"); got != "https://file.example" {
		t.Fatalf("getenvOr = %q, want file value", got)
	}

	t.Setenv("ENDPOINT__URL", "https://env.example")
	if got := getenvOr("ENDPOINT__URL", "https://default.example"); got != "https://env.example" {
		t.Fatalf("getenvOr = %q, want env to win over file", got)
	}
}

func TestPreloadConfigFile_IgnoresUnknownFlags(t *testing.T) {
	fileDefaults = nil
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("STORAGE__URL: postgres://file\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	args := []string{"--verbose", "--config-file", path, "--endpoint-url", "https://cli.example"}
	if err := PreloadConfigFile(args); err != nil {
		t.Fatalf("PreloadConfigFile: %v", err)
	}
	if got := getenvOr("STORAGE__URL", ""); got != "postgres://file" {
		t.Fatalf("getenvOr = %q, want file value", got)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewEpochTrackerConfig(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("fs.Parse: %v", err)
	}
	if cfg.StorageURL != "postgres://file" {
		t.Fatalf("StorageURL = %q, want value loaded from config file", cfg.StorageURL)
	}
	if cfg.EndpointURL != "https://cli.example" {
		t.Fatalf("EndpointURL = %q, want CLI flag to win", cfg.EndpointURL)
	}
}
