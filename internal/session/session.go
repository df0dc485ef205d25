// Package session assembles the client: queue mirror, category index,
// playback, download and clip tracking, settings, and the local continuity
// database, wired together with their cross-component hooks.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamq/internal/api"
	"streamq/internal/category"
	"streamq/internal/clip"
	"streamq/internal/config"
	"streamq/internal/download"
	"streamq/internal/localstate"
	"streamq/internal/logging"
	"streamq/internal/playback"
	"streamq/internal/queuestate"
	"streamq/internal/settings"
)

// FileFetcher retrieves a finished download. Implementations save the file
// wherever the settings' download folder points; tests record the call. A
// returned error leaves the job unmarked so a later run retries it.
type FileFetcher func(jobID, fileURL string) error

// Options configures a Session beyond the config file.
type Options struct {
	Media   playback.Media
	Fetcher FileFetcher
	Logger  *slog.Logger
}

// Session owns every component of a running client.
type Session struct {
	API        *api.Client
	Store      *queuestate.Store
	Categories *category.Index
	Playback   *playback.Manager
	Downloads  *download.Orchestrator
	Clips      *clip.Tracker
	Settings   *settings.Manager
	Local      *localstate.State

	logger        *slog.Logger
	cancel        context.CancelFunc
	layoutMu      sync.Mutex
	layoutTimer   *time.Timer
	layoutPending localstate.Session
	layoutDelay   time.Duration
}

// New builds and wires a session. The instance lock is taken here; a second
// client on the same state directory fails fast.
func New(cfg *config.Config, opts Options) (*Session, error) {
	logger := logging.NewComponentLogger(opts.Logger, "session")

	local, err := localstate.Open(cfg)
	if err != nil {
		return nil, err
	}

	client, err := api.New(cfg, opts.Logger)
	if err != nil {
		_ = local.Close()
		return nil, err
	}
	store := queuestate.New(client, cfg.QueueRefreshInterval(), opts.Logger)
	index := category.NewIndex(client, store, opts.Logger)
	settingsMgr := settings.New(client, cfg.AutoSaveDelay(), opts.Logger)
	downloads := download.New(client, cfg.DownloadStatusInterval(), cfg.PanelRetention(), opts.Logger)
	clips := clip.New(client, cfg.ClipStatusInterval(), opts.Logger)
	player := playback.NewManager(playback.Options{
		API:           client,
		Store:         store,
		Media:         opts.Media,
		Logger:        opts.Logger,
		HeatmapTick:   cfg.HeatmapTickInterval(),
		PositionSave:  cfg.PositionSaveInterval(),
		AutoplayDelay: cfg.AutoplayDelay(),
		AutoplayEnabled: func() bool {
			return settingsMgr.Current().AutoplayNext
		},
	})

	s := &Session{
		API:         client,
		Store:       store,
		Categories:  index,
		Playback:    player,
		Downloads:   downloads,
		Clips:       clips,
		Settings:    settingsMgr,
		Local:       local,
		logger:      logger,
		layoutDelay: cfg.AutoSaveDelay(),
	}

	// Items leaving the queue take their playback session with them.
	store.OnRemove(player.StopIfRemoved)

	// Finished downloads are retrieved once and remembered across restarts.
	downloads.OnFetch(func(jobID, fileURL string) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		already, err := local.Downloaded(ctx, jobID)
		if err != nil {
			logger.Warn("downloaded lookup failed", logging.String("job", jobID), logging.Error(err))
		}
		if already {
			return
		}
		if opts.Fetcher != nil {
			if err := opts.Fetcher(jobID, fileURL); err != nil {
				logger.Warn("file retrieval failed", logging.String("job", jobID), logging.Error(err))
				return
			}
		}
		if err := local.MarkDownloaded(ctx, jobID); err != nil {
			logger.Warn("downloaded mark failed", logging.String("job", jobID), logging.Error(err))
		}
	})

	return s, nil
}

// Start loads remote state and launches the background loops. Remote
// failures during startup degrade to an empty mirror; the reconcile loop
// catches up once the service answers.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Store.Refresh(ctx); err != nil {
		s.logger.Warn("initial queue fetch failed", logging.Error(err))
	}
	if err := s.Categories.Load(ctx); err != nil {
		s.logger.Warn("initial category fetch failed", logging.Error(err))
	}
	if err := s.Settings.Load(ctx); err != nil {
		s.logger.Warn("initial settings fetch failed", logging.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.Store.Run(runCtx)

	s.logger.Info("session started", logging.Int("queue", s.Store.Len()))
	return nil
}

// RestoreLayout returns the UI position saved by the previous run.
func (s *Session) RestoreLayout(ctx context.Context) (localstate.Session, error) {
	return s.Local.LastSession(ctx)
}

// SaveLayout schedules a debounced write of the UI position. Bursts of
// scroll events produce one write.
func (s *Session) SaveLayout(layout localstate.Session) {
	s.layoutMu.Lock()
	s.layoutPending = layout
	if s.layoutTimer != nil {
		s.layoutTimer.Stop()
	}
	s.layoutTimer = time.AfterFunc(s.layoutDelay, func() {
		s.layoutMu.Lock()
		pending := s.layoutPending
		s.layoutMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Local.SaveSession(ctx, pending); err != nil {
			s.logger.Debug("layout save failed", logging.Error(err))
		}
	})
	s.layoutMu.Unlock()
}

// SetForeground toggles background polling across the components.
func (s *Session) SetForeground(active bool) {
	s.Store.SetForeground(active)
}

// Shutdown flushes pending state and releases every resource. Safe to call
// once; the remote being down only costs the final flushes.
func (s *Session) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	s.Playback.Stop()
	s.Downloads.Shutdown()
	s.Clips.Shutdown()

	if err := s.Settings.Flush(ctx); err != nil {
		s.logger.Warn("settings flush failed", logging.Error(err))
	}

	s.layoutMu.Lock()
	timer := s.layoutTimer
	pending := s.layoutPending
	s.layoutTimer = nil
	s.layoutMu.Unlock()
	if timer != nil && timer.Stop() {
		if err := s.Local.SaveSession(ctx, pending); err != nil {
			s.logger.Warn("final layout save failed", logging.Error(err))
		}
	}

	err := s.Local.Close()
	s.logger.Info("session stopped")
	return err
}
