package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if strings.TrimSpace(c.StateDir) == "" {
		return errors.New("state_dir must be set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return errors.New("server.base_url must be set")
	}
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	if c.Server.ProxyURL != "" {
		proxyParsed, err := url.Parse(c.Server.ProxyURL)
		if err != nil {
			return fmt.Errorf("server.proxy_url %q is not a valid URL", c.Server.ProxyURL)
		}
		switch proxyParsed.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("server.proxy_url scheme %q unsupported (use http, https, or socks5)", proxyParsed.Scheme)
		}
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validatePolling() error {
	intervals := map[string]int{
		"polling.queue_refresh_ms":   c.Polling.QueueRefreshMS,
		"polling.download_status_ms": c.Polling.DownloadStatusMS,
		"polling.clip_status_ms":     c.Polling.ClipStatusMS,
		"polling.heatmap_tick_ms":    c.Polling.HeatmapTickMS,
		"polling.position_save_ms":   c.Polling.PositionSaveMS,
	}
	for name, value := range intervals {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Polling.PanelRetentionMS < 0 {
		return errors.New("polling.panel_retention_ms must not be negative")
	}
	if c.Polling.AutoSaveDelayMS < 0 {
		return errors.New("polling.auto_save_delay_ms must not be negative")
	}
	if c.Playback.AutoplayDelayMS < 0 {
		return errors.New("playback.autoplay_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q unsupported (use console or json)", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q unsupported", c.Logging.Level)
	}
	return nil
}
