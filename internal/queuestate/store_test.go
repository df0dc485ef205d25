package queuestate_test

import (
	"context"
	"testing"
	"time"

	"streamq/internal/api"
	"streamq/internal/queuestate"
	"streamq/internal/testsupport"
)

func newStore(t *testing.T, remote *testsupport.Remote) *queuestate.Store {
	t.Helper()
	return queuestate.New(remote.Client(), 20*time.Millisecond, nil)
}

func TestAddAndRefresh(t *testing.T) {
	remote := testsupport.NewRemote(t)
	store := newStore(t, remote)

	item, err := store.Add(context.Background(), "https://example.com/v/abc-001")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if item.ID == "" || store.Len() != 1 {
		t.Fatalf("item not mirrored locally: %#v len=%d", item, store.Len())
	}

	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len = %d after refresh, want 2", store.Len())
	}
}

func TestAddRejectsLocalDuplicateWithoutNetwork(t *testing.T) {
	remote := testsupport.NewRemote(t)
	store := newStore(t, remote)

	if _, err := store.Add(context.Background(), "https://example.com/v/abc-001"); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	remote.Server.Close() // any further call would fail loudly

	_, err := store.Add(context.Background(), "https://example.com/v/abc-001")
	if !api.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	// Same URL with a query string still matches the bare form.
	_, err = store.Add(context.Background(), "https://example.com/v/abc-001?t=42")
	if !api.IsDuplicate(err) {
		t.Fatalf("expected duplicate error for query variant, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("duplicate add changed queue, len = %d", store.Len())
	}
}

func TestAddRemoteDuplicateClassified(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/ko/abc-001"))
	store := newStore(t, remote)

	// Local mirror is empty, so the duplicate is only visible server-side.
	_, err := store.Add(context.Background(), "https://example.com/ko/abc-001")
	if !api.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestReorderIsOptimistic(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(
		testsupport.Item("a", "https://example.com/a"),
		testsupport.Item("b", "https://example.com/b"),
		testsupport.Item("c", "https://example.com/c"),
	)
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	store.Reorder(0, 2)

	// Local order changed before any server confirmation.
	items := store.Items()
	got := []string{items[0].ID, items[1].ID, items[2].ID}
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("local order = %v, want %v", got, want)
		}
	}

	// The async push eventually lands server-side.
	deadline := time.Now().Add(2 * time.Second)
	for len(remote.Reorders()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reorder never reached the server")
		}
		time.Sleep(5 * time.Millisecond)
	}
	pushed := remote.Reorders()[0]
	for i := range want {
		if pushed[i] != want[i] {
			t.Fatalf("pushed order = %v, want %v", pushed, want)
		}
	}
}

func TestReorderIgnoresOutOfRange(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	store.Reorder(-1, 0)
	store.Reorder(0, 5)
	store.Reorder(0, 0)

	if len(remote.Reorders()) != 0 {
		t.Fatalf("no-op reorders were pushed: %v", remote.Reorders())
	}
}

func TestMoveToTopRefreshes(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(
		testsupport.Item("a", "https://example.com/a"),
		testsupport.Item("b", "https://example.com/b"),
		testsupport.Item("c", "https://example.com/c"),
	)
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := store.MoveToTop(context.Background(), []string{"c"}); err != nil {
		t.Fatalf("MoveToTop failed: %v", err)
	}
	if items := store.Items(); items[0].ID != "c" {
		t.Fatalf("head = %s, want c", items[0].ID)
	}

	if err := store.MoveToBottom(context.Background(), []string{"c"}); err != nil {
		t.Fatalf("MoveToBottom failed: %v", err)
	}
	if items := store.Items(); items[2].ID != "c" {
		t.Fatalf("tail = %s, want c", items[2].ID)
	}
}

func TestDeleteFiresRemoveHookBeforeRefresh(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var removed []string
	var lenAtHook int
	store.OnRemove(func(ids []string) {
		removed = append(removed, ids...)
		lenAtHook = store.Len()
	})

	if err := store.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != "a" {
		t.Fatalf("remove hook got %v", removed)
	}
	if lenAtHook != 2 {
		t.Fatalf("hook ran after removal, len was %d", lenAtHook)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d after delete, want 1", store.Len())
	}
}

func TestBulkDeleteAndClear(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(
		testsupport.Item("a", "https://example.com/a"),
		testsupport.Item("b", "https://example.com/b"),
		testsupport.Item("c", "https://example.com/c"),
	)
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := store.BulkDelete(context.Background(), []string{"a", "c"}); err != nil {
		t.Fatalf("BulkDelete failed: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d after bulk delete, want 1", store.Len())
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len = %d after clear, want 0", store.Len())
	}
}

func TestRunAdoptsServerChangesOnLengthMismatch(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("reconcile loop never adopted the server queue")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunSkipsWhileBackgrounded(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	store.SetForeground(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	time.Sleep(100 * time.Millisecond)
	if store.Len() != 1 {
		t.Fatal("backgrounded store polled anyway")
	}

	store.SetForeground(true)
	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("foregrounded store never caught up")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApplyAndClearCategory(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	cat := "cat-1"
	store.ApplyCategory([]string{"a"}, &cat)
	if item, _ := store.Get("a"); item.Category != "cat-1" {
		t.Fatalf("category not applied: %#v", item)
	}

	store.ClearCategory("cat-1")
	if item, _ := store.Get("a"); item.Category != "" {
		t.Fatalf("category not cleared: %#v", item)
	}
}

func TestFailedDeleteLeavesHookUnfired(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"))
	store := newStore(t, remote)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var removed []string
	store.OnRemove(func(ids []string) {
		removed = append(removed, ids...)
	})

	// The service going away must not kill the item's session: the hook
	// only fires once the delete is accepted.
	remote.Server.Close()
	if err := store.Delete(context.Background(), "a"); err == nil {
		t.Fatal("Delete against a dead server should fail")
	}
	if len(removed) != 0 {
		t.Fatalf("remove hook fired for a failed delete: %v", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d after failed delete, want 1", store.Len())
	}
}
