package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server describes how to reach the remote queue service.
type Server struct {
	BaseURL string `toml:"base_url"`
	// ProxyURL optionally routes requests through an http, https, or
	// socks5 proxy.
	ProxyURL       string `toml:"proxy_url"`
	RequestTimeout int    `toml:"request_timeout"` // seconds
}

// Polling contains the interval for every background loop, in milliseconds.
type Polling struct {
	QueueRefreshMS   int `toml:"queue_refresh_ms"`
	DownloadStatusMS int `toml:"download_status_ms"`
	ClipStatusMS     int `toml:"clip_status_ms"`
	HeatmapTickMS    int `toml:"heatmap_tick_ms"`
	PositionSaveMS   int `toml:"position_save_ms"`
	PanelRetentionMS int `toml:"panel_retention_ms"`
	AutoSaveDelayMS  int `toml:"auto_save_delay_ms"`
}

// Playback contains playback orchestration settings.
type Playback struct {
	AutoplayDelayMS int `toml:"autoplay_delay_ms"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for streamq.
//
// Sections by subsystem:
//   - Server: remote queue service address, proxy, request timeout
//   - Polling: background loop intervals
//   - Playback: autoplay timing
//   - Logging: log format and level
//   - StateDir: client-local continuity database location
type Config struct {
	Server   Server   `toml:"server"`
	Polling  Polling  `toml:"polling"`
	Playback Playback `toml:"playback"`
	Logging  Logging  `toml:"logging"`
	StateDir string   `toml:"state_dir"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/streamq/config.toml")
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has the state directory expanded to an absolute path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("streamq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	expanded, err := expandPath(c.StateDir)
	if err != nil {
		return err
	}
	c.StateDir = expanded
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	return nil
}

// EnsureDirectories creates the client-local state directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.StateDir, err)
	}
	return nil
}

// RequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// QueueRefreshInterval returns the reconciliation poll interval.
func (c *Config) QueueRefreshInterval() time.Duration {
	return time.Duration(c.Polling.QueueRefreshMS) * time.Millisecond
}

// DownloadStatusInterval returns the download job poll interval.
func (c *Config) DownloadStatusInterval() time.Duration {
	return time.Duration(c.Polling.DownloadStatusMS) * time.Millisecond
}

// ClipStatusInterval returns the clip job poll interval.
func (c *Config) ClipStatusInterval() time.Duration {
	return time.Duration(c.Polling.ClipStatusMS) * time.Millisecond
}

// HeatmapTickInterval returns the watch-heatmap tick interval.
func (c *Config) HeatmapTickInterval() time.Duration {
	return time.Duration(c.Polling.HeatmapTickMS) * time.Millisecond
}

// PositionSaveInterval returns the playback position flush interval.
func (c *Config) PositionSaveInterval() time.Duration {
	return time.Duration(c.Polling.PositionSaveMS) * time.Millisecond
}

// PanelRetention returns how long terminal download states stay visible.
func (c *Config) PanelRetention() time.Duration {
	return time.Duration(c.Polling.PanelRetentionMS) * time.Millisecond
}

// AutoSaveDelay returns the settings auto-save debounce window.
func (c *Config) AutoSaveDelay() time.Duration {
	return time.Duration(c.Polling.AutoSaveDelayMS) * time.Millisecond
}

// AutoplayDelay returns the pause before auto-advancing to the next item.
func (c *Config) AutoplayDelay() time.Duration {
	return time.Duration(c.Playback.AutoplayDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
