// Package download tracks server-side download jobs: submission, per-job
// status polling, one-time retrieval of finished files, and the lifetime of
// the status panel entries shown to the user.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"streamq/internal/api"
	"streamq/internal/logging"
)

// Job is a panel entry for one tracked download.
type Job struct {
	ID       string
	Title    string
	Status   api.DownloadState
	Progress float64
	Speed    float64
}

// Orchestrator tracks any number of concurrent download jobs. Each tracked
// job gets its own poll loop; finished jobs linger on the panel while any
// job is still active, then for the retention window, and are fetched
// exactly once.
type Orchestrator struct {
	api       *api.Client
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration

	// onFetch runs once per finished job with its file URL.
	onFetch  func(jobID, fileURL string)
	onChange func()

	mu      sync.Mutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
	fetched map[string]struct{}
	// retainer counts down to hiding the terminal entries once no poll
	// loop remains active.
	retainer *time.Timer
}

// New creates an orchestrator polling each tracked job at interval and
// keeping finished panel entries for retention.
func New(client *api.Client, interval, retention time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		api:       client,
		logger:    logging.NewComponentLogger(logger, "download"),
		interval:  interval,
		retention: retention,
		jobs:      map[string]*Job{},
		cancels:   map[string]context.CancelFunc{},
		fetched:   map[string]struct{}{},
	}
}

// OnFetch registers the callback invoked exactly once per completed job
// with the job id and the file retrieval URL.
func (o *Orchestrator) OnFetch(fn func(jobID, fileURL string)) {
	o.mu.Lock()
	o.onFetch = fn
	o.mu.Unlock()
}

// OnChange registers the callback invoked after every panel change.
func (o *Orchestrator) OnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// Submit asks the server to download the item at itemURL and starts
// tracking the resulting job.
func (o *Orchestrator) Submit(ctx context.Context, itemURL string) (string, error) {
	id, title, err := o.api.SubmitDownload(ctx, itemURL)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	o.jobs[id] = &Job{ID: id, Title: title, Status: api.DownloadQueued}
	o.mu.Unlock()
	o.notify()
	o.Track(id)
	return id, nil
}

// Track starts the poll loop for a job id. Tracking an already tracked job
// is a no-op, so re-submissions and restored sessions are safe.
func (o *Orchestrator) Track(jobID string) {
	o.mu.Lock()
	if _, running := o.cancels[jobID]; running {
		o.mu.Unlock()
		return
	}
	if _, known := o.jobs[jobID]; !known {
		o.jobs[jobID] = &Job{ID: jobID, Status: api.DownloadQueued}
	}
	// An active job keeps the whole panel alive again.
	if o.retainer != nil {
		o.retainer.Stop()
		o.retainer = nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancels[jobID] = cancel
	o.mu.Unlock()

	go o.poll(ctx, jobID)
}

// Jobs returns a snapshot of the panel entries.
func (o *Orchestrator) Jobs() []Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		out = append(out, *job)
	}
	return out
}

// Job returns one panel entry.
func (o *Orchestrator) Job(jobID string) (Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job, ok := o.jobs[jobID]; ok {
		return *job, true
	}
	return Job{}, false
}

// ClearCompleted drops finished and failed jobs from the server's table and
// from the panel.
func (o *Orchestrator) ClearCompleted(ctx context.Context) error {
	if err := o.api.ClearCompletedDownloads(ctx); err != nil {
		return err
	}
	statuses, err := o.api.AllDownloadStatus(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	for id, job := range o.jobs {
		if _, stillKnown := statuses[id]; !stillKnown && job.Status.Terminal() {
			o.dropLocked(id)
		}
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// Shutdown stops every poll loop and retention timer.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for id, cancel := range o.cancels {
		cancel()
		delete(o.cancels, id)
	}
	if o.retainer != nil {
		o.retainer.Stop()
		o.retainer = nil
	}
	o.mu.Unlock()
}

// poll drives one job to a terminal state. Transient status fetch failures
// keep the loop alive; only a terminal status or cancellation ends it.
func (o *Orchestrator) poll(ctx context.Context, jobID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.interval):
		}

		statuses, err := o.api.AllDownloadStatus(ctx)
		if err != nil {
			o.logger.Debug("status poll failed", logging.String("job", jobID), logging.Error(err))
			continue
		}
		status, known := statuses[jobID]
		if !known {
			continue
		}

		o.mu.Lock()
		job, tracked := o.jobs[jobID]
		if !tracked {
			o.mu.Unlock()
			return
		}
		job.Status = status.Status
		job.Progress = status.Progress
		job.Speed = status.Speed
		if status.Title != "" {
			job.Title = status.Title
		}
		o.mu.Unlock()
		o.notify()

		if !status.Status.Terminal() {
			continue
		}

		o.stopTracking(jobID)
		if status.Status == api.DownloadDone {
			o.fetchOnce(jobID)
		} else {
			o.logger.Warn("download failed", logging.String("job", jobID))
		}
		o.maybeRetain()
		return
	}
}

// fetchOnce hands the finished file to the fetch callback at most once per
// job, however many times the terminal status is observed.
func (o *Orchestrator) fetchOnce(jobID string) {
	o.mu.Lock()
	if _, done := o.fetched[jobID]; done {
		o.mu.Unlock()
		return
	}
	o.fetched[jobID] = struct{}{}
	fn := o.onFetch
	o.mu.Unlock()

	o.logger.Info("download complete", logging.String("job", jobID))
	if fn != nil {
		fn(jobID, o.api.DownloadFileURL(jobID))
	}
}

// maybeRetain arms the panel hide timer once the last active poll has
// ended. Terminal entries stay visible while any job is still running; the
// retention window starts only when nothing is, and a job starting inside
// the window cancels it.
func (o *Orchestrator) maybeRetain() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.cancels) != 0 {
		return
	}
	if o.retainer != nil {
		o.retainer.Stop()
	}
	o.retainer = time.AfterFunc(o.retention, func() {
		o.mu.Lock()
		if len(o.cancels) != 0 {
			o.mu.Unlock()
			return
		}
		o.retainer = nil
		for id, job := range o.jobs {
			if job.Status.Terminal() {
				o.dropLocked(id)
			}
		}
		o.mu.Unlock()
		o.notify()
	})
}

func (o *Orchestrator) stopTracking(jobID string) {
	o.mu.Lock()
	if cancel, ok := o.cancels[jobID]; ok {
		cancel()
		delete(o.cancels, jobID)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) dropLocked(jobID string) {
	delete(o.jobs, jobID)
	if cancel, ok := o.cancels[jobID]; ok {
		cancel()
		delete(o.cancels, jobID)
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FormatSpeed renders a transfer rate in the service's display units.
func FormatSpeed(bytesPerSecond float64) string {
	switch {
	case bytesPerSecond > 1024*1024:
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
	case bytesPerSecond > 1024:
		return fmt.Sprintf("%.0f KB/s", bytesPerSecond/1024)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	}
}
