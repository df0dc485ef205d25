package clip_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"streamq/internal/api"
	"streamq/internal/clip"
	"streamq/internal/testsupport"
)

func newTracker(t *testing.T, remote *testsupport.Remote) *clip.Tracker {
	t.Helper()
	tracker := clip.New(remote.Client(), 10*time.Millisecond, nil)
	t.Cleanup(tracker.Shutdown)
	return tracker
}

func waitTerminal(t *testing.T, tracker *clip.Tracker) clip.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if job, ok := tracker.Current(); ok && job.Status.Terminal() {
			return job
		}
		if time.Now().After(deadline) {
			job, _ := tracker.Current()
			t.Fatalf("clip never terminated: %#v", job)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmitRejectsBadRange(t *testing.T) {
	remote := testsupport.NewRemote(t)
	tracker := newTracker(t, remote)
	remote.Server.Close() // a submit reaching the network would fail loudly

	_, err := tracker.Submit(context.Background(), "https://example.com/a", 30, 30, "x")
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = tracker.Submit(context.Background(), "https://example.com/a", 30, 10, "x")
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSingleSlot(t *testing.T) {
	remote := testsupport.NewRemote(t)
	tracker := newTracker(t, remote)

	id, err := tracker.Submit(context.Background(), "https://example.com/a", 10, 20, "first")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !tracker.Busy() {
		t.Fatal("tracker not busy after submit")
	}

	_, err = tracker.Submit(context.Background(), "https://example.com/a", 20, 30, "second")
	if !errors.Is(err, api.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}

	// Finishing the job frees the slot.
	remote.SetClip(id, api.ClipStatus{Status: api.ClipDone, Size: 12345})
	job := waitTerminal(t, tracker)
	if job.Size != 12345 {
		t.Fatalf("size = %d, want 12345", job.Size)
	}
	if tracker.Busy() {
		t.Fatal("tracker busy after terminal state")
	}
	if _, err := tracker.Submit(context.Background(), "https://example.com/a", 20, 30, "second"); err != nil {
		t.Fatalf("slot not freed: %v", err)
	}
}

func TestProgressStates(t *testing.T) {
	remote := testsupport.NewRemote(t)
	tracker := newTracker(t, remote)

	id, err := tracker.Submit(context.Background(), "https://example.com/a", 0, 10, "x")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetClip(id, api.ClipStatus{Status: api.ClipExtracting})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if job, _ := tracker.Current(); job.Status == api.ClipExtracting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("extracting state never observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFailureKeepsFullErrorAndTruncatesDisplay(t *testing.T) {
	remote := testsupport.NewRemote(t)
	tracker := newTracker(t, remote)
	var doneJobs []clip.Job
	tracker.OnDone(func(j clip.Job) { doneJobs = append(doneJobs, j) })

	id, err := tracker.Submit(context.Background(), "https://example.com/a", 0, 10, "x")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	long := strings.Repeat("ffmpeg exploded ", 10)
	remote.SetClip(id, api.ClipStatus{Status: api.ClipError, Error: long})

	job := waitTerminal(t, tracker)
	if job.Error != long {
		t.Fatalf("full error not retained: %q", job.Error)
	}
	display := job.Display()
	if len([]rune(display)) != 63 || !strings.HasSuffix(display, "...") {
		t.Fatalf("display = %q (%d runes)", display, len([]rune(display)))
	}
	if len(doneJobs) != 0 {
		t.Fatal("failed clip fired the done callback")
	}
}

func TestDoneCallback(t *testing.T) {
	remote := testsupport.NewRemote(t)
	tracker := newTracker(t, remote)
	done := make(chan clip.Job, 1)
	tracker.OnDone(func(j clip.Job) { done <- j })

	id, err := tracker.Submit(context.Background(), "https://example.com/a", 5, 25, "highlight")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	remote.SetClip(id, api.ClipStatus{Status: api.ClipDone, Size: 2048})

	select {
	case job := <-done:
		if job.ID != id || job.Size != 2048 || job.Title != "highlight" {
			t.Fatalf("done job = %#v", job)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("done callback never fired")
	}
}
