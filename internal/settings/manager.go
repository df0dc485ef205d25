// Package settings mirrors the server-persisted settings object. Explicit
// saves surface their errors; incremental edits coalesce through a debounced
// autosave that pushes fire-and-forget.
package settings

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamq/internal/api"
	"streamq/internal/logging"
)

// Manager holds the local copy of the settings object.
type Manager struct {
	api    *api.Client
	logger *slog.Logger
	delay  time.Duration

	mu      sync.Mutex
	current api.Settings
	loaded  bool
	dirty   bool
	timer   *time.Timer
}

// New creates a manager debouncing autosaves by delay.
func New(client *api.Client, delay time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		api:     client,
		logger:  logging.NewComponentLogger(logger, "settings"),
		delay:   delay,
		current: api.DefaultSettings(),
	}
}

// Load fetches the server copy. Failures leave the defaults in place so the
// client stays usable offline.
func (m *Manager) Load(ctx context.Context) error {
	settings, err := m.api.GetSettings(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current = settings
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// Current returns the local copy.
func (m *Manager) Current() api.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Save pushes the full object and adopts the server's persisted result. The
// caller sees the error; nothing retries.
func (m *Manager) Save(ctx context.Context, settings api.Settings) error {
	persisted, err := m.api.PutSettings(ctx, settings)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current = persisted
	m.dirty = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return nil
}

// AutoSave applies an edit to the local copy immediately and schedules a
// debounced push. Each edit within the delay window resets the timer, so a
// burst of changes produces one write.
func (m *Manager) AutoSave(mutate func(*api.Settings)) {
	m.mu.Lock()
	mutate(&m.current)
	m.dirty = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.delay, m.flushAsync)
	m.mu.Unlock()
}

// Flush pushes any pending autosave immediately. Used at shutdown so edits
// inside the debounce window are not lost.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	settings := m.current
	m.mu.Unlock()
	return m.Save(ctx, settings)
}

func (m *Manager) flushAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		m.logger.Debug("autosave push failed", logging.Error(err))
	}
}
