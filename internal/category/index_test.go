package category_test

import (
	"context"
	"testing"
	"time"

	"streamq/internal/category"
	"streamq/internal/queuestate"
	"streamq/internal/testsupport"
)

func newIndex(t *testing.T) (*testsupport.Remote, *queuestate.Store, *category.Index) {
	t.Helper()
	remote := testsupport.NewRemote(t)
	store := queuestate.New(remote.Client(), time.Minute, nil)
	index := category.NewIndex(remote.Client(), store, nil)
	return remote, store, index
}

func TestCreateAndLoad(t *testing.T) {
	remote, _, index := newIndex(t)

	cat, err := index.Create(context.Background(), "music", "#ff0000")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if cat.ID == "" || cat.Name != "music" {
		t.Fatalf("unexpected category: %#v", cat)
	}

	// A second index loading from scratch sees the same definitions.
	other := category.NewIndex(remote.Client(), queuestate.New(remote.Client(), time.Minute, nil), nil)
	if err := other.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := other.Categories(); len(got) != 1 || got[0].ID != cat.ID {
		t.Fatalf("loaded categories = %#v", got)
	}
}

func TestFilteredViews(t *testing.T) {
	remote, store, index := newIndex(t)
	a := testsupport.Item("a", "https://example.com/a")
	a.Category = "cat-1"
	b := testsupport.Item("b", "https://example.com/b")
	remote.Seed(a, b)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if got := index.Filtered(); len(got) != 2 {
		t.Fatalf("FilterAll returned %d items", len(got))
	}

	index.SetFilter("cat-1")
	if got := index.Filtered(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("category filter returned %#v", got)
	}

	index.SetFilter(category.FilterUncategorized)
	if got := index.Filtered(); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("uncategorized filter returned %#v", got)
	}

	counts := index.Counts()
	if counts["cat-1"] != 1 || counts[""] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestAssignPatchesMirrorWithoutRefetch(t *testing.T) {
	remote, store, index := newIndex(t)
	remote.Seed(testsupport.Item("a", "https://example.com/a"), testsupport.Item("b", "https://example.com/b"))
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	cat := "cat-9"
	if err := index.Assign(context.Background(), "a", &cat); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if item, _ := store.Get("a"); item.Category != "cat-9" {
		t.Fatalf("mirror not patched: %#v", item)
	}
	if srv, _ := remote.ItemByID("a"); srv.Category != "cat-9" {
		t.Fatalf("server not updated: %#v", srv)
	}

	if err := index.BulkAssign(context.Background(), []string{"a", "b"}, nil); err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}
	if item, _ := store.Get("a"); item.Category != "" {
		t.Fatalf("bulk clear did not patch mirror: %#v", item)
	}
}

func TestDeleteCascades(t *testing.T) {
	remote, store, index := newIndex(t)
	cat, err := index.Create(context.Background(), "music", "#ff0000")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	a := testsupport.Item("a", "https://example.com/a")
	a.Category = cat.ID
	remote.Seed(a)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	index.SetFilter(cat.ID)

	if err := index.Delete(context.Background(), cat.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(index.Categories()) != 0 {
		t.Fatal("definition survived delete")
	}
	if item, _ := store.Get("a"); item.Category != "" {
		t.Fatalf("item reference survived delete: %#v", item)
	}
	if index.Filter() != category.FilterAll {
		t.Fatalf("filter = %q after delete, want FilterAll", index.Filter())
	}
}

func TestReorderMirrorsServerOrder(t *testing.T) {
	remote, _, index := newIndex(t)
	first, _ := index.Create(context.Background(), "one", "")
	second, _ := index.Create(context.Background(), "two", "")

	if err := index.Reorder(context.Background(), []string{second.ID, first.ID}); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got := index.Categories(); got[0].ID != second.ID {
		t.Fatalf("local order = %#v", got)
	}
	if got := remote.Categories(); got[0].ID != second.ID {
		t.Fatalf("server order = %#v", got)
	}
}
