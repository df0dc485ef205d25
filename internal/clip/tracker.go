// Package clip tracks server-side clip extraction jobs. The service
// processes one clip at a time, so the tracker holds a single slot and
// rejects submissions while a job is in flight.
package clip

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamq/internal/api"
	"streamq/internal/logging"
)

// Job is the single tracked clip extraction.
type Job struct {
	ID     string
	Title  string
	Start  int
	End    int
	Status api.ClipState
	Size   int64
	// Error holds the full failure message; Display() truncates it for
	// the panel.
	Error string
}

// Display returns the failure message capped for panel rendering.
func (j Job) Display() string {
	const maxRunes = 60
	runes := []rune(j.Error)
	if len(runes) <= maxRunes {
		return j.Error
	}
	return string(runes[:maxRunes]) + "..."
}

// Tracker polls the sole active clip job until it terminates.
type Tracker struct {
	api      *api.Client
	logger   *slog.Logger
	interval time.Duration

	onChange func()
	// onDone runs when a clip finishes, with the job snapshot.
	onDone func(Job)

	mu      sync.Mutex
	current *Job
	cancel  context.CancelFunc
}

// New creates a tracker polling at the given interval.
func New(client *api.Client, interval time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		api:      client,
		logger:   logging.NewComponentLogger(logger, "clip"),
		interval: interval,
	}
}

// OnChange registers the callback invoked after every status change.
func (t *Tracker) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// OnDone registers the callback invoked when a clip job finishes.
func (t *Tracker) OnDone(fn func(Job)) {
	t.mu.Lock()
	t.onDone = fn
	t.mu.Unlock()
}

// Current returns the tracked job, which may already be terminal.
func (t *Tracker) Current() (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Job{}, false
	}
	return *t.current, true
}

// Busy reports whether a job is still in flight.
func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && !t.current.Status.Terminal()
}

// Submit requests extraction of [start, end) seconds from the item at
// itemURL. The range is validated before any network traffic, and a second
// submission while one is in flight is rejected.
func (t *Tracker) Submit(ctx context.Context, itemURL string, start, end int, title string) (string, error) {
	if end <= start {
		return "", api.Wrap(api.ErrValidation, "clip", "submit", "end must be after start", nil)
	}
	t.mu.Lock()
	if t.current != nil && !t.current.Status.Terminal() {
		t.mu.Unlock()
		return "", api.Wrap(api.ErrBusy, "clip", "submit", "a clip is already extracting", nil)
	}
	t.mu.Unlock()

	id, err := t.api.SubmitClip(ctx, itemURL, start, end, title)
	if err != nil {
		return "", err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.current = &Job{ID: id, Title: title, Start: start, End: end, Status: api.ClipPreparing}
	t.cancel = cancel
	t.mu.Unlock()
	t.notify()

	go t.poll(pollCtx, id)
	t.logger.Info("clip submitted",
		logging.String("job", id),
		logging.Int("start", start),
		logging.Int("end", end))
	return id, nil
}

// Shutdown stops the poll loop.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()
}

func (t *Tracker) poll(ctx context.Context, jobID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.interval):
		}

		status, err := t.api.GetClipStatus(ctx, jobID)
		if err != nil {
			t.logger.Debug("clip status poll failed", logging.String("job", jobID), logging.Error(err))
			continue
		}

		t.mu.Lock()
		if t.current == nil || t.current.ID != jobID {
			t.mu.Unlock()
			return
		}
		t.current.Status = status.Status
		t.current.Size = status.Size
		t.current.Error = status.Error
		job := *t.current
		done := t.onDone
		t.mu.Unlock()
		t.notify()

		if !status.Status.Terminal() {
			continue
		}

		if status.Status == api.ClipDone {
			t.logger.Info("clip finished",
				logging.String("job", jobID),
				logging.Int64("size", status.Size))
			if done != nil {
				done(job)
			}
		} else {
			t.logger.Warn("clip failed",
				logging.String("job", jobID),
				logging.String("reason", status.Error))
		}
		return
	}
}

func (t *Tracker) notify() {
	t.mu.Lock()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
