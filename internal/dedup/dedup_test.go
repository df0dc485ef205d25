package dedup_test

import (
	"context"
	"testing"
	"time"

	"streamq/internal/api"
	"streamq/internal/dedup"
	"streamq/internal/queuestate"
	"streamq/internal/testsupport"
)

func TestGroupsLocaleMirrors(t *testing.T) {
	items := []api.QueueItem{
		{ID: "1", URL: "https://example.com/ko/abc-001"},
		{ID: "2", URL: "https://example.com/en/abc-001"},
		{ID: "3", URL: "https://example.com/abc-002"},
	}

	groups := dedup.Groups(items)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	group := groups[0]
	if group.Key != "abc-001" {
		t.Fatalf("key = %q", group.Key)
	}
	if group.Keep.ID != "1" {
		t.Fatalf("keep = %s, want first occurrence", group.Keep.ID)
	}
	if len(group.Candidates) != 1 || group.Candidates[0].ID != "2" {
		t.Fatalf("candidates = %#v", group.Candidates)
	}
}

func TestGroupsPreserveFirstAppearanceOrder(t *testing.T) {
	items := []api.QueueItem{
		{ID: "1", URL: "https://example.com/zzz-9"},
		{ID: "2", URL: "https://example.com/aaa-1"},
		{ID: "3", URL: "https://example.com/ko/zzz-9"},
		{ID: "4", URL: "https://example.com/en/aaa-1"},
	}

	groups := dedup.Groups(items)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Key != "zzz-9" || groups[1].Key != "aaa-1" {
		t.Fatalf("group order = %s, %s", groups[0].Key, groups[1].Key)
	}
}

func TestGroupsEmptyWhenNoDuplicates(t *testing.T) {
	items := []api.QueueItem{
		{ID: "1", URL: "https://example.com/abc-001"},
		{ID: "2", URL: "https://example.com/abc-002"},
	}
	if groups := dedup.Groups(items); len(groups) != 0 {
		t.Fatalf("got %d groups, want 0", len(groups))
	}
}

func TestPlanSelection(t *testing.T) {
	items := []api.QueueItem{
		{ID: "1", URL: "https://example.com/ko/abc-001"},
		{ID: "2", URL: "https://example.com/en/abc-001"},
		{ID: "3", URL: "https://example.com/ja/abc-001"},
	}
	plan := dedup.NewPlan(items)

	if plan.Selected("1") {
		t.Fatal("kept item must not be selected")
	}
	if !plan.Selected("2") || !plan.Selected("3") {
		t.Fatal("candidates must start selected")
	}

	plan.Toggle("2")
	if plan.Selected("2") {
		t.Fatal("toggle did not deselect")
	}
	plan.Toggle("1") // keep items are not toggleable
	if plan.Selected("1") {
		t.Fatal("kept item became selectable")
	}

	ids := plan.SelectedIDs()
	if len(ids) != 1 || ids[0] != "3" {
		t.Fatalf("selected ids = %v", ids)
	}
}

func TestApplyRemovesSelectedInOneCall(t *testing.T) {
	remote := testsupport.NewRemote(t)
	remote.Seed(
		testsupport.Item("1", "https://example.com/ko/abc-001"),
		testsupport.Item("2", "https://example.com/en/abc-001"),
		testsupport.Item("3", "https://example.com/abc-002"),
	)
	store := queuestate.New(remote.Client(), time.Minute, nil)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	plan := dedup.NewPlan(store.Items())
	if err := plan.Apply(context.Background(), store); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	ids := remote.ItemIDs()
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "3" {
		t.Fatalf("server queue after apply = %v", ids)
	}
	if store.Len() != 2 {
		t.Fatalf("mirror len = %d after apply, want 2", store.Len())
	}
}
