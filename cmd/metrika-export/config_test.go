package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "https://api-metrika.yandex.net/stat/v1/data" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if !cfg.Extract.Split {
		t.Error("Split should default to true")
	}
	if cfg.Extract.BatchSize != 10000 {
		t.Errorf("BatchSize = %d, want 10000", cfg.Extract.BatchSize)
	}
	if cfg.Extract.Format != "csv" {
		t.Errorf("Format = %q, want csv", cfg.Extract.Format)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[extract]
batch_size = 500
format = "ndjson"

[redis]
addr = "localhost:6379"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Extract.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", cfg.Extract.BatchSize)
	}
	if cfg.Extract.Format != "ndjson" {
		t.Errorf("Format = %q, want ndjson", cfg.Extract.Format)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Addr = %q", cfg.Redis.Addr)
	}
	// Values absent from the file keep the embedded defaults.
	if cfg.API.BaseURL == "" {
		t.Error("BaseURL lost its default")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
		t.Error("LoadConfig() accepted a missing file")
	}
}
