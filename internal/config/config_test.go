package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"streamq/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.StateDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[server]
base_url = "http://queue.example:9000/"
request_timeout = 30

[polling]
download_status_ms = 250

state_dir = "` + dir + `"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Server.BaseURL != "http://queue.example:9000" {
		t.Fatalf("base URL not normalized: %q", cfg.Server.BaseURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("request timeout = %v", cfg.RequestTimeout())
	}
	if cfg.DownloadStatusInterval() != 250*time.Millisecond {
		t.Fatalf("download interval = %v", cfg.DownloadStatusInterval())
	}
	// Untouched values keep defaults.
	if cfg.QueueRefreshInterval() != 5*time.Second {
		t.Fatalf("queue refresh interval = %v", cfg.QueueRefreshInterval())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty base url", func(c *config.Config) { c.Server.BaseURL = "" }},
		{"relative base url", func(c *config.Config) { c.Server.BaseURL = "queue.example" }},
		{"bad proxy scheme", func(c *config.Config) { c.Server.ProxyURL = "ftp://proxy:21" }},
		{"zero timeout", func(c *config.Config) { c.Server.RequestTimeout = 0 }},
		{"zero poll interval", func(c *config.Config) { c.Polling.QueueRefreshMS = 0 }},
		{"negative retention", func(c *config.Config) { c.Polling.PanelRetentionMS = -1 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"empty state dir", func(c *config.Config) { c.StateDir = " " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.StateDir = t.TempDir()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, []byte(config.SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
