package api

import (
	"encoding/json"
	"strconv"
)

// QueueItem is one entry in the server-owned playback queue. Position in the
// list encodes intended playback order; identity is ID.
type QueueItem struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Duration  float64   `json:"duration,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Category  string    `json:"category,omitempty"`
	Variants  []Variant `json:"variants,omitempty"`
}

// Variant describes one available stream rendition.
type Variant struct {
	Resolution string `json:"resolution,omitempty"`
	Bandwidth  int64  `json:"bandwidth,omitempty"`
}

// Label renders the variant the way the service presents it: resolution when
// known, otherwise bandwidth in kbps.
func (v Variant) Label() string {
	if v.Resolution != "" {
		return v.Resolution
	}
	return strconv.FormatInt(v.Bandwidth/1000, 10) + "kbps"
}

// Category tags queue items. Items reference it by ID; absence of a
// reference means "uncategorized".
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Heatmap maps integer second offsets to view counts for one item. The wire
// format keys seconds as strings.
type Heatmap map[int]int

// UnmarshalJSON decodes the string-keyed wire format.
func (h *Heatmap) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Heatmap, len(raw))
	for key, count := range raw {
		second, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[second] = count
	}
	*h = out
	return nil
}

// MarshalJSON encodes back to the string-keyed wire format.
func (h Heatmap) MarshalJSON() ([]byte, error) {
	raw := make(map[string]int, len(h))
	for second, count := range h {
		raw[strconv.Itoa(second)] = count
	}
	return json.Marshal(raw)
}

// DownloadState is the lifecycle tag of a server-side download job.
type DownloadState string

const (
	DownloadQueued      DownloadState = "queued"
	DownloadDownloading DownloadState = "downloading"
	DownloadDone        DownloadState = "done"
	DownloadError       DownloadState = "error"
)

// Terminal reports whether the state ends the job's lifecycle.
func (s DownloadState) Terminal() bool {
	return s == DownloadDone || s == DownloadError
}

// Active reports whether the job still needs polling.
func (s DownloadState) Active() bool {
	return s == DownloadQueued || s == DownloadDownloading
}

// DownloadStatus is one job's snapshot from the aggregate status poll. The
// job ID doubles as the queue item ID on this service.
type DownloadStatus struct {
	Status   DownloadState `json:"status"`
	Progress float64       `json:"progress"`
	Speed    float64       `json:"speed,omitempty"` // bytes/sec
	Title    string        `json:"title,omitempty"`
}

// ClipState is the lifecycle tag of a clip extraction job.
type ClipState string

const (
	ClipPreparing   ClipState = "preparing"
	ClipExtracting  ClipState = "extracting"
	ClipDownloading ClipState = "downloading"
	ClipDone        ClipState = "done"
	ClipError       ClipState = "error"
)

// Terminal reports whether the state ends the job's lifecycle.
func (s ClipState) Terminal() bool {
	return s == ClipDone || s == ClipError
}

// ClipStatus is the per-job snapshot from the clip status poll.
type ClipStatus struct {
	Status ClipState `json:"status"`
	Size   int64     `json:"size,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// RelatedVideo is one suggestion from the related-content lookup. Duration
// arrives as presentation text, not seconds.
type RelatedVideo struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Settings is the server-persisted configuration object. Every field purely
// configures orchestration or UI behavior; the server stores whatever the
// client last put.
type Settings struct {
	Quality                string  `json:"quality"`
	DownloadFolder         string  `json:"downloadFolder"`
	SkipForward            int     `json:"skipForward"`
	SkipBackward           int     `json:"skipBackward"`
	SkipForwardShift       int     `json:"skipForwardShift"`
	SkipBackwardShift      int     `json:"skipBackwardShift"`
	DefaultVolume          float64 `json:"defaultVolume"`
	DefaultSpeed           float64 `json:"defaultSpeed"`
	AutoplayNext           bool    `json:"autoplayNext"`
	AlwaysOnTop            bool    `json:"alwaysOnTop"`
	WindowWidth            int     `json:"windowWidth"`
	WindowHeight           int     `json:"windowHeight"`
	MaxConcurrentDownloads int     `json:"maxConcurrentDownloads"`
}

// DefaultSettings mirrors the service's defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Quality:                "best",
		SkipForward:            10,
		SkipBackward:           10,
		SkipForwardShift:       5,
		SkipBackwardShift:      5,
		DefaultVolume:          1.0,
		DefaultSpeed:           1.0,
		AutoplayNext:           true,
		WindowWidth:            1400,
		WindowHeight:           850,
		MaxConcurrentDownloads: 2,
	}
}

// CookieStatus reports the freshness of the service's scraping credentials.
type CookieStatus struct {
	AutoExtract bool `json:"auto_extract"`
	Exists      bool `json:"exists"`
	Count       int  `json:"count"`
}

// CookieExtractResult is the outcome of a requested credential refresh.
type CookieExtractResult struct {
	OK      bool   `json:"ok"`
	Browser string `json:"browser,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// ImportResult reports the outcome of a state bundle import.
type ImportResult struct {
	OK         bool `json:"ok"`
	QueueCount int  `json:"queue_count"`
}

// MovePosition selects the target of a move operation.
type MovePosition string

const (
	MoveTop    MovePosition = "top"
	MoveBottom MovePosition = "bottom"
)
