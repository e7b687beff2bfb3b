package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FirstRunCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("first-run load failed: %v", err)
	}
	if cfg.Listen == "" || cfg.RefreshCron == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("config perms %o, want 600", perm)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:9999"
	cfg.External = []ExternalSource{{URL: "https://example.com/a.ics", ID: "a", Name: "课程表"}}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Listen != "127.0.0.1:9999" {
		t.Fatalf("listen not round-tripped: %q", loaded.Listen)
	}
	if len(loaded.External) != 1 || loaded.External[0].Name != "课程表" {
		t.Fatalf("external sources not round-tripped: %+v", loaded.External)
	}
}

func TestNormalize_FillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	if cfg.Listen == "" || cfg.RefreshCron == "" || cfg.CacheDir == "" {
		t.Fatalf("zero values not filled: %+v", cfg)
	}
	if cfg.FetchTimeoutSeconds <= 0 || cfg.FeedTTLSeconds <= 0 {
		t.Fatalf("durations not defaulted: %+v", cfg)
	}
	if cfg.External == nil {
		t.Fatal("external list must not be nil")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("empty path must error")
	}
}
