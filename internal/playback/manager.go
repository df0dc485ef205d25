package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamq/internal/api"
	"streamq/internal/logging"
	"streamq/internal/queuestate"
)

// Options configures a Manager.
type Options struct {
	API    *api.Client
	Store  *queuestate.Store
	Media  Media
	Logger *slog.Logger

	HeatmapTick     time.Duration
	PositionSave    time.Duration
	AutoplayDelay   time.Duration
	AutoplayEnabled func() bool
}

// Manager drives one playback session at a time against the queue mirror.
type Manager struct {
	api    *api.Client
	store  *queuestate.Store
	media  Media
	logger *slog.Logger

	heatmapTick     time.Duration
	positionSave    time.Duration
	autoplayDelay   time.Duration
	autoplayEnabled func() bool

	mu            sync.Mutex
	current       api.QueueItem
	index         int
	active        bool
	resumePending float64
	resumeApplied bool
	heat          api.Heatmap
	cancelLoops   context.CancelFunc
	autoplayTimer *time.Timer
}

// NewManager creates a playback manager. Media may be nil until SetMedia is
// called; Play fails without a backend.
func NewManager(opts Options) *Manager {
	enabled := opts.AutoplayEnabled
	if enabled == nil {
		enabled = func() bool { return false }
	}
	return &Manager{
		api:             opts.API,
		store:           opts.Store,
		media:           opts.Media,
		logger:          logging.NewComponentLogger(opts.Logger, "playback"),
		heatmapTick:     opts.HeatmapTick,
		positionSave:    opts.PositionSave,
		autoplayDelay:   opts.AutoplayDelay,
		autoplayEnabled: enabled,
		index:           -1,
	}
}

// SetMedia installs the playback backend.
func (m *Manager) SetMedia(media Media) {
	m.mu.Lock()
	m.media = media
	m.mu.Unlock()
}

// Current returns the item of the active session.
func (m *Manager) Current() (api.QueueItem, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.index, m.active
}

// Heat returns the tiered heatmap segments for the active session.
func (m *Manager) Heat() []Segment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Segments(m.heat)
}

// Play starts a session for the queue item at the given position. Any
// running session's offset is flushed first, best effort. The saved offset
// and heatmap are fetched up front; fetch failures degrade to a cold start
// with an empty heatmap rather than blocking playback.
func (m *Manager) Play(ctx context.Context, index int) error {
	item, ok := m.store.At(index)
	if !ok {
		return api.Wrap(api.ErrValidation, "playback", "play", "no item at position", nil)
	}

	m.stopSession(true)

	m.mu.Lock()
	media := m.media
	m.mu.Unlock()
	if media == nil {
		return api.Wrap(api.ErrValidation, "playback", "play", "no media backend", nil)
	}

	if err := media.Load(m.api.StreamURL(item.URL)); err != nil {
		return api.Wrap(api.ErrTransient, "playback", "play", "load source", err)
	}

	resume := 0.0
	if pos, err := m.api.GetPosition(ctx, item.ID); err != nil {
		m.logger.Debug("position fetch failed", logging.String("item", item.ID), logging.Error(err))
	} else {
		resume = pos
	}
	heat, err := m.api.GetHeatmap(ctx, item.ID)
	if err != nil {
		m.logger.Debug("heatmap fetch failed", logging.String("item", item.ID), logging.Error(err))
		heat = api.Heatmap{}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.current = item
	m.index = index
	m.active = true
	m.resumePending = resume
	m.resumeApplied = false
	m.heat = heat
	m.cancelLoops = cancel
	m.mu.Unlock()

	media.Play()
	go m.runLoops(loopCtx, media, item.ID)

	m.logger.Info("session started",
		logging.String("item", item.ID),
		logging.String("title", item.Title),
		logging.Float64("resume", resume))
	return nil
}

// NotifyReady applies the pending resume seek once the backend knows the
// item's duration. The seek happens at most once per session and only for
// offsets strictly inside (0, duration-2); anything else starts from zero.
func (m *Manager) NotifyReady() {
	m.mu.Lock()
	if !m.active || m.resumeApplied {
		m.mu.Unlock()
		return
	}
	m.resumeApplied = true
	resume := m.resumePending
	media := m.media
	m.mu.Unlock()

	duration := media.Duration()
	if resume > 0 && resume < duration-2 {
		media.Seek(resume)
	}
}

// PreviewAt renders a scrub thumbnail at the given offset when the backend
// supports it. Outside a session, or on a backend without preview support,
// it reports false.
func (m *Manager) PreviewAt(seconds float64) bool {
	m.mu.Lock()
	media, active := m.media, m.active
	m.mu.Unlock()
	if !active {
		return false
	}
	preview, ok := media.(Preview)
	if !ok {
		return false
	}
	if err := preview.PreviewAt(seconds); err != nil {
		m.logger.Debug("preview render failed", logging.Error(err))
		return false
	}
	return true
}

// Pause pauses the backend without ending the session.
func (m *Manager) Pause() {
	m.mu.Lock()
	media, active := m.media, m.active
	m.mu.Unlock()
	if active {
		media.Pause()
	}
}

// Resume restarts a paused session.
func (m *Manager) Resume() {
	m.mu.Lock()
	media, active := m.media, m.active
	m.mu.Unlock()
	if active {
		media.Play()
	}
}

// Stop ends the session, flushing the final offset.
func (m *Manager) Stop() {
	m.stopSession(true)
}

// StopIfRemoved ends the session without an offset flush when the playing
// item is among the ids leaving the queue. Saving a position for an item
// that no longer exists would just recreate its record.
func (m *Manager) StopIfRemoved(ids []string) {
	m.mu.Lock()
	current, active := m.current, m.active
	m.mu.Unlock()
	if !active {
		return
	}
	for _, id := range ids {
		if id == current.ID {
			m.stopSession(false)
			return
		}
	}
}

// Next starts the following queue item, wrapping at the end. No-op on an
// empty queue.
func (m *Manager) Next(ctx context.Context) error {
	return m.step(ctx, 1)
}

// Prev starts the preceding queue item, wrapping at the start. No-op on an
// empty queue.
func (m *Manager) Prev(ctx context.Context) error {
	return m.step(ctx, -1)
}

func (m *Manager) step(ctx context.Context, delta int) error {
	n := m.store.Len()
	if n == 0 {
		return nil
	}
	m.mu.Lock()
	index := m.index
	m.mu.Unlock()
	next := ((index+delta)%n + n) % n
	return m.Play(ctx, next)
}

// HandleEnded reacts to the backend reaching the end of the item: the final
// offset is flushed, and when autoplay is on and the queue holds more than
// one item, the next item starts after the configured delay.
func (m *Manager) HandleEnded() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	item := m.current
	index := m.index
	media := m.media
	m.mu.Unlock()

	m.savePosition(item.ID, media.Position())

	n := m.store.Len()
	if !m.autoplayEnabled() || n <= 1 {
		return
	}
	next := (index + 1) % n
	m.mu.Lock()
	if m.autoplayTimer != nil {
		m.autoplayTimer.Stop()
	}
	m.autoplayTimer = time.AfterFunc(m.autoplayDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.Play(ctx, next); err != nil {
			m.logger.Warn("autoplay advance failed", logging.Error(err))
		}
	})
	m.mu.Unlock()
}

func (m *Manager) stopSession(flush bool) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	item := m.current
	media := m.media
	cancel := m.cancelLoops
	timer := m.autoplayTimer
	m.active = false
	m.cancelLoops = nil
	m.autoplayTimer = nil
	m.heat = nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	position := media.Position()
	media.Stop()
	if flush {
		go m.savePosition(item.ID, position)
	}
	m.logger.Info("session stopped", logging.String("item", item.ID))
}

func (m *Manager) savePosition(itemID string, position float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := m.api.SetPosition(ctx, itemID, position); err != nil {
		m.logger.Debug("position save failed", logging.String("item", itemID), logging.Error(err))
	}
}

// runLoops drives the per-session periodic work: heatmap increments while
// the backend reports playing, and offset saves regardless of pause state.
func (m *Manager) runLoops(ctx context.Context, media Media, itemID string) {
	heatmap := time.NewTicker(m.heatmapTick)
	position := time.NewTicker(m.positionSave)
	defer heatmap.Stop()
	defer position.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heatmap.C:
			if !media.Playing() {
				continue
			}
			second := int(media.Position())
			m.mu.Lock()
			if m.heat == nil {
				m.heat = api.Heatmap{}
			}
			m.heat[second]++
			m.mu.Unlock()
			if err := m.api.IncrementHeatmap(ctx, itemID, second); err != nil {
				m.logger.Debug("heatmap increment failed", logging.Error(err))
			}
		case <-position.C:
			m.savePosition(itemID, media.Position())
		}
	}
}
