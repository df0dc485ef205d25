// Package testsupport provides shared helpers for package tests: canned
// configurations and an in-memory fake of the remote queue service.
package testsupport

import (
	"testing"

	"streamq/internal/config"
)

// NewConfig returns a validated configuration rooted at a temp state dir,
// with every polling interval shortened so loop tests finish quickly.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StateDir = t.TempDir()
	cfg.Server.RequestTimeout = 5
	cfg.Polling.QueueRefreshMS = 20
	cfg.Polling.DownloadStatusMS = 20
	cfg.Polling.ClipStatusMS = 20
	cfg.Polling.HeatmapTickMS = 20
	cfg.Polling.PositionSaveMS = 20
	cfg.Polling.PanelRetentionMS = 50
	cfg.Polling.AutoSaveDelayMS = 20
	cfg.Playback.AutoplayDelayMS = 10
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config must validate: %v", err)
	}
	return &cfg
}
