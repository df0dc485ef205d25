package settings_test

import (
	"context"
	"testing"
	"time"

	"streamq/internal/api"
	"streamq/internal/settings"
	"streamq/internal/testsupport"
)

func TestLoadAdoptsServerCopy(t *testing.T) {
	remote := testsupport.NewRemote(t)
	manager := settings.New(remote.Client(), 10*time.Millisecond, nil)

	want := api.DefaultSettings()
	want.Quality = "720p"
	if _, err := remote.Client().PutSettings(context.Background(), want); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	if err := manager.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := manager.Current(); got.Quality != "720p" {
		t.Fatalf("Quality = %q after load", got.Quality)
	}
}

func TestSaveSurfacesErrors(t *testing.T) {
	remote := testsupport.NewRemote(t)
	manager := settings.New(remote.Client(), 10*time.Millisecond, nil)
	remote.Server.Close()

	if err := manager.Save(context.Background(), api.DefaultSettings()); err == nil {
		t.Fatal("expected save error against a dead server")
	}
}

func TestAutoSaveDebounces(t *testing.T) {
	remote := testsupport.NewRemote(t)
	manager := settings.New(remote.Client(), 50*time.Millisecond, nil)

	manager.AutoSave(func(s *api.Settings) { s.DefaultVolume = 0.5 })
	manager.AutoSave(func(s *api.Settings) { s.DefaultSpeed = 1.5 })
	manager.AutoSave(func(s *api.Settings) { s.AutoplayNext = false })

	// Local copy reflects each edit immediately.
	current := manager.Current()
	if current.DefaultVolume != 0.5 || current.DefaultSpeed != 1.5 || current.AutoplayNext {
		t.Fatalf("local edits not applied: %#v", current)
	}
	// The server has not seen anything inside the debounce window.
	if got := remote.Settings(); got.DefaultVolume == 0.5 {
		t.Fatal("autosave pushed before the debounce elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for remote.Settings().DefaultSpeed != 1.5 {
		if time.Now().After(deadline) {
			t.Fatalf("autosave never pushed: %#v", remote.Settings())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := remote.Settings(); got.DefaultVolume != 0.5 || got.AutoplayNext {
		t.Fatalf("coalesced push dropped edits: %#v", got)
	}
}

func TestFlushPushesPendingEdits(t *testing.T) {
	remote := testsupport.NewRemote(t)
	manager := settings.New(remote.Client(), time.Hour, nil)

	manager.AutoSave(func(s *api.Settings) { s.Quality = "1080p" })
	if err := manager.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := remote.Settings(); got.Quality != "1080p" {
		t.Fatalf("flush did not push: %#v", got)
	}

	// A clean manager flushes as a no-op even with the server gone.
	remote.Server.Close()
	if err := manager.Flush(context.Background()); err != nil {
		t.Fatalf("clean flush errored: %v", err)
	}
}
