package download_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"streamq/internal/api"
	"streamq/internal/download"
	"streamq/internal/testsupport"
)

func newOrchestrator(t *testing.T, remote *testsupport.Remote) *download.Orchestrator {
	t.Helper()
	o := download.New(remote.Client(), 10*time.Millisecond, 50*time.Millisecond, nil)
	t.Cleanup(o.Shutdown)
	return o
}

type fetchRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *fetchRecorder) record(jobID, fileURL string) {
	r.mu.Lock()
	r.calls = append(r.calls, jobID)
	r.mu.Unlock()
}

func (r *fetchRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestSubmitTracksJob(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	o := newOrchestrator(t, remote)

	id, err := o.Submit(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id != "a" {
		t.Fatalf("job id = %q, want queue item id", id)
	}
	if job, ok := o.Job("a"); !ok || job.Status != api.DownloadQueued {
		t.Fatalf("job not on panel: %#v ok=%v", job, ok)
	}
}

func TestPollReflectsProgress(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	o := newOrchestrator(t, remote)

	if _, err := o.Submit(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetDownload("a", api.DownloadStatus{Status: api.DownloadDownloading, Progress: 0.4, Speed: 2048})

	deadline := time.Now().Add(2 * time.Second)
	for {
		job, _ := o.Job("a")
		if job.Status == api.DownloadDownloading && job.Progress == 0.4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("progress never reflected: %#v", job)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCompletedJobFetchedExactlyOnce(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	o := newOrchestrator(t, remote)
	rec := &fetchRecorder{}
	o.OnFetch(rec.record)

	if _, err := o.Submit(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetDownload("a", api.DownloadStatus{Status: api.DownloadDone, Progress: 1})

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.Calls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("fetch callback never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Re-tracking the finished job must not fetch again.
	o.Track("a")
	time.Sleep(50 * time.Millisecond)
	if calls := rec.Calls(); len(calls) != 1 {
		t.Fatalf("fetch fired %d times, want 1", len(calls))
	}
}

func TestFailedJobStopsPollingWithoutFetch(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	o := newOrchestrator(t, remote)
	rec := &fetchRecorder{}
	o.OnFetch(rec.record)

	if _, err := o.Submit(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetDownload("a", api.DownloadStatus{Status: api.DownloadError})

	deadline := time.Now().Add(2 * time.Second)
	for {
		job, ok := o.Job("a")
		if !ok || job.Status == api.DownloadError {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("error state never reflected: %#v", job)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(rec.Calls()) != 0 {
		t.Fatal("failed job triggered a fetch")
	}
}

func TestTerminalEntryExpiresFromPanel(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	o := newOrchestrator(t, remote)

	if _, err := o.Submit(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetDownload("a", api.DownloadStatus{Status: api.DownloadDone, Progress: 1})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := o.Job("a"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("terminal entry never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTrackIsIdempotent(t *testing.T) {
	remote := testsupport.NewRemote(t)
	o := newOrchestrator(t, remote)

	o.Track("loose")
	o.Track("loose")
	if jobs := o.Jobs(); len(jobs) != 1 {
		t.Fatalf("panel has %d entries, want 1", len(jobs))
	}
}

func TestClearCompleted(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	o := newOrchestrator(t, remote)

	if _, err := o.Submit(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := o.Submit(context.Background(), "https://example.com/b"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetDownload("a", api.DownloadStatus{Status: api.DownloadDone, Progress: 1})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if job, _ := o.Job("a"); job.Status == api.DownloadDone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("done state never reflected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := o.ClearCompleted(context.Background()); err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if _, ok := o.Job("a"); ok {
		t.Fatal("completed job survived clear")
	}
	if _, ok := o.Job("b"); !ok {
		t.Fatal("active job dropped by clear")
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5 * 1024 * 1024, "2.5 MB/s"},
		{4096, "4 KB/s"},
		{512, "512 B/s"},
		{0, "0 B/s"},
	}
	for _, tt := range tests {
		if got := download.FormatSpeed(tt.in); got != tt.want {
			t.Errorf("FormatSpeed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTerminalEntryRetainedWhileAnotherJobActive(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	o := newOrchestrator(t, remote)

	if _, err := o.Submit(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := o.Submit(context.Background(), "https://example.com/b"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetDownload("a", api.DownloadStatus{Status: api.DownloadDone, Progress: 1})
	remote.SetDownload("b", api.DownloadStatus{Status: api.DownloadDownloading, Progress: 0.2})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if job, _ := o.Job("a"); job.Status == api.DownloadDone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("done state never reflected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Well past the retention window, the finished entry must still be on
	// the panel because b is mid-download.
	time.Sleep(150 * time.Millisecond)
	if _, ok := o.Job("a"); !ok {
		t.Fatal("terminal entry hidden while another job is active")
	}

	// Once the last job finishes, the whole panel expires together.
	remote.SetDownload("b", api.DownloadStatus{Status: api.DownloadDone, Progress: 1})
	deadline = time.Now().Add(2 * time.Second)
	for {
		_, okA := o.Job("a")
		_, okB := o.Job("b")
		if !okA && !okB {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("panel never expired after the last job finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
