// Package dedup finds queue items that are mirrors of the same video and
// plans their removal. Grouping runs on slug keys, so locale-prefixed
// mirrors of one slug land in one group.
package dedup

import (
	"context"

	"streamq/internal/api"
	"streamq/internal/queuestate"
	"streamq/internal/slug"
)

// Group is one set of queue items sharing a slug key. Keep is the first
// occurrence in queue order and is never removable; Candidates hold the
// rest, pre-selected for deletion.
type Group struct {
	Key        string
	Keep       api.QueueItem
	Candidates []api.QueueItem
}

// Groups partitions items by slug key, preserving first-appearance order,
// and returns only the groups with at least one duplicate.
func Groups(items []api.QueueItem) []Group {
	index := map[string]int{}
	var all []Group
	for _, item := range items {
		key := slug.Key(item.URL)
		if i, seen := index[key]; seen {
			all[i].Candidates = append(all[i].Candidates, item)
			continue
		}
		index[key] = len(all)
		all = append(all, Group{Key: key, Keep: item})
	}
	out := all[:0]
	for _, group := range all {
		if len(group.Candidates) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// Plan is an editable selection over the duplicate groups. Candidates start
// selected; Keep items cannot be selected.
type Plan struct {
	Groups   []Group
	selected map[string]bool
}

// NewPlan builds a plan from the current queue snapshot.
func NewPlan(items []api.QueueItem) *Plan {
	groups := Groups(items)
	selected := map[string]bool{}
	for _, group := range groups {
		for _, candidate := range group.Candidates {
			selected[candidate.ID] = true
		}
	}
	return &Plan{Groups: groups, selected: selected}
}

// Selected reports whether the item is marked for deletion.
func (p *Plan) Selected(id string) bool {
	return p.selected[id]
}

// Toggle flips one candidate's selection. Toggling a kept item is a no-op.
func (p *Plan) Toggle(id string) {
	if _, ok := p.selected[id]; ok {
		p.selected[id] = !p.selected[id]
	}
}

// SelectedIDs returns the ids marked for deletion, in queue order.
func (p *Plan) SelectedIDs() []string {
	var ids []string
	for _, group := range p.Groups {
		for _, candidate := range group.Candidates {
			if p.selected[candidate.ID] {
				ids = append(ids, candidate.ID)
			}
		}
	}
	return ids
}

// Apply removes every selected candidate in one bulk call through the queue
// mirror, which refreshes afterwards.
func (p *Plan) Apply(ctx context.Context, store *queuestate.Store) error {
	ids := p.SelectedIDs()
	if len(ids) == 0 {
		return nil
	}
	return store.BulkDelete(ctx, ids)
}
