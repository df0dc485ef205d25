// Package category maintains the client-side category index and the active
// queue filter. Definitions live on the server; the index mirrors them and
// patches the queue mirror after assignment changes instead of refetching.
package category

import (
	"context"
	"log/slog"
	"sync"

	"streamq/internal/api"
	"streamq/internal/logging"
	"streamq/internal/queuestate"
)

// Filter sentinels. Real category IDs never collide with these.
const (
	FilterAll           = "__all__"
	FilterUncategorized = "__none__"
)

// Index mirrors the server's category definitions and tracks which filter
// the queue view currently applies.
type Index struct {
	api    *api.Client
	store  *queuestate.Store
	logger *slog.Logger

	mu         sync.RWMutex
	categories []api.Category
	filter     string
}

// NewIndex creates an index bound to the queue mirror it patches.
func NewIndex(client *api.Client, store *queuestate.Store, logger *slog.Logger) *Index {
	return &Index{
		api:    client,
		store:  store,
		logger: logging.NewComponentLogger(logger, "category"),
		filter: FilterAll,
	}
}

// Load fetches the current definitions from the server.
func (x *Index) Load(ctx context.Context) error {
	categories, err := x.api.ListCategories(ctx)
	if err != nil {
		return err
	}
	x.mu.Lock()
	x.categories = categories
	x.mu.Unlock()
	return nil
}

// Categories returns the definitions in server order.
func (x *Index) Categories() []api.Category {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]api.Category(nil), x.categories...)
}

// Get returns a definition by id.
func (x *Index) Get(id string) (api.Category, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, cat := range x.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return api.Category{}, false
}

// ByName returns a definition by display name.
func (x *Index) ByName(name string) (api.Category, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, cat := range x.categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return api.Category{}, false
}

// Filter returns the active filter: FilterAll, FilterUncategorized, or a
// category id.
func (x *Index) Filter() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.filter
}

// SetFilter selects which items Filtered returns.
func (x *Index) SetFilter(filter string) {
	x.mu.Lock()
	x.filter = filter
	x.mu.Unlock()
}

// Filtered returns the queue items visible under the active filter, in
// queue order.
func (x *Index) Filtered() []api.QueueItem {
	filter := x.Filter()
	items := x.store.Items()
	if filter == FilterAll {
		return items
	}
	var out []api.QueueItem
	for _, item := range items {
		switch filter {
		case FilterUncategorized:
			if item.Category == "" {
				out = append(out, item)
			}
		default:
			if item.Category == filter {
				out = append(out, item)
			}
		}
	}
	return out
}

// Counts returns the number of queue items per category id, with the empty
// key counting uncategorized items.
func (x *Index) Counts() map[string]int {
	counts := map[string]int{}
	for _, item := range x.store.Items() {
		counts[item.Category]++
	}
	return counts
}

// Create defines a new category on the server and mirrors it.
func (x *Index) Create(ctx context.Context, name, color string) (api.Category, error) {
	cat, err := x.api.CreateCategory(ctx, name, color)
	if err != nil {
		return api.Category{}, err
	}
	x.mu.Lock()
	x.categories = append(x.categories, cat)
	x.mu.Unlock()
	return cat, nil
}

// Update renames or recolors a category.
func (x *Index) Update(ctx context.Context, id, name, color string) (api.Category, error) {
	cat, err := x.api.UpdateCategory(ctx, id, name, color)
	if err != nil {
		return api.Category{}, err
	}
	x.mu.Lock()
	for i := range x.categories {
		if x.categories[i].ID == id {
			x.categories[i] = cat
		}
	}
	x.mu.Unlock()
	return cat, nil
}

// Delete removes a category definition and cascades: the server clears item
// references, the queue mirror drops them locally, and a filter pointing at
// the deleted category resets to FilterAll.
func (x *Index) Delete(ctx context.Context, id string) error {
	if err := x.api.DeleteCategory(ctx, id); err != nil {
		return err
	}
	x.mu.Lock()
	kept := x.categories[:0]
	for _, cat := range x.categories {
		if cat.ID != id {
			kept = append(kept, cat)
		}
	}
	x.categories = kept
	if x.filter == id {
		x.filter = FilterAll
	}
	x.mu.Unlock()
	x.store.ClearCategory(id)
	return nil
}

// Reorder pushes a full category id order and mirrors it.
func (x *Index) Reorder(ctx context.Context, ids []string) error {
	if err := x.api.ReorderCategories(ctx, ids); err != nil {
		return err
	}
	x.mu.Lock()
	byID := make(map[string]api.Category, len(x.categories))
	for _, cat := range x.categories {
		byID[cat.ID] = cat
	}
	reordered := make([]api.Category, 0, len(x.categories))
	for _, id := range ids {
		if cat, ok := byID[id]; ok {
			reordered = append(reordered, cat)
		}
	}
	x.categories = reordered
	x.mu.Unlock()
	return nil
}

// Assign sets or clears (nil) one item's category and patches the mirror in
// place. No queue refetch: the assignment is the only change.
func (x *Index) Assign(ctx context.Context, itemID string, categoryID *string) error {
	if err := x.api.AssignCategory(ctx, itemID, categoryID); err != nil {
		return err
	}
	x.store.ApplyCategory([]string{itemID}, categoryID)
	return nil
}

// BulkAssign sets or clears (nil) the category on many items in one call.
func (x *Index) BulkAssign(ctx context.Context, itemIDs []string, categoryID *string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if err := x.api.BulkAssignCategory(ctx, itemIDs, categoryID); err != nil {
		return err
	}
	x.store.ApplyCategory(itemIDs, categoryID)
	return nil
}
