package config

const (
	defaultBaseURL        = "http://127.0.0.1:5000"
	defaultRequestTimeout = 15
	defaultStateDir       = "~/.local/share/streamq"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	defaultQueueRefreshMS   = 5000
	defaultDownloadStatusMS = 1500
	defaultClipStatusMS     = 2000
	defaultHeatmapTickMS    = 2000
	defaultPositionSaveMS   = 5000
	defaultPanelRetentionMS = 8000
	defaultAutoSaveDelayMS  = 1000
	defaultAutoplayDelayMS  = 1000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Polling: Polling{
			QueueRefreshMS:   defaultQueueRefreshMS,
			DownloadStatusMS: defaultDownloadStatusMS,
			ClipStatusMS:     defaultClipStatusMS,
			HeatmapTickMS:    defaultHeatmapTickMS,
			PositionSaveMS:   defaultPositionSaveMS,
			PanelRetentionMS: defaultPanelRetentionMS,
			AutoSaveDelayMS:  defaultAutoSaveDelayMS,
		},
		Playback: Playback{
			AutoplayDelayMS: defaultAutoplayDelayMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		StateDir: defaultStateDir,
	}
}
