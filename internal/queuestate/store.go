package queuestate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"streamq/internal/api"
	"streamq/internal/logging"
)

// Store is the locally cached queue mirror. All reads are served from the
// snapshot; mutations update the snapshot first and then talk to the
// service, so the UI never waits on the network to reflect a change.
type Store struct {
	api      *api.Client
	logger   *slog.Logger
	interval time.Duration

	mu         sync.RWMutex
	items      []api.QueueItem
	foreground bool

	onChange func()
	onRemove func(ids []string)
}

// New creates a store polling at the given refresh interval.
func New(client *api.Client, interval time.Duration, logger *slog.Logger) *Store {
	return &Store{
		api:        client,
		logger:     logging.NewComponentLogger(logger, "queuestate"),
		interval:   interval,
		foreground: true,
	}
}

// OnChange registers the callback invoked after every snapshot change.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// OnRemove registers the callback invoked with the ids of items about to
// leave the queue, before the snapshot drops them.
func (s *Store) OnRemove(fn func(ids []string)) {
	s.mu.Lock()
	s.onRemove = fn
	s.mu.Unlock()
}

// SetForeground toggles background polling. While false the reconcile loop
// keeps ticking but skips its fetch.
func (s *Store) SetForeground(active bool) {
	s.mu.Lock()
	s.foreground = active
	s.mu.Unlock()
}

// Items returns a copy of the current snapshot.
func (s *Store) Items() []api.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.QueueItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports the snapshot size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the item with the given id.
func (s *Store) Get(id string) (api.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return api.QueueItem{}, false
}

// IndexOf returns the snapshot position of the item with the given id, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// At returns the item at the given snapshot position.
func (s *Store) At(index int) (api.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.items) {
		return api.QueueItem{}, false
	}
	return s.items[index], true
}

// Refresh replaces the snapshot with the service's current queue.
func (s *Store) Refresh(ctx context.Context) error {
	items, err := s.api.ListQueue(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.notify()
	return nil
}

// Add submits a URL to the queue. Exact local duplicates (same URL, with or
// without a query string) are rejected before any network call; the service
// still performs its own duplicate check for everything else.
func (s *Store) Add(ctx context.Context, rawURL string) (api.QueueItem, error) {
	rawURL = strings.TrimSpace(rawURL)
	bare := rawURL
	if i := strings.IndexByte(bare, '?'); i >= 0 {
		bare = bare[:i]
	}
	s.mu.RLock()
	for _, item := range s.items {
		if item.URL == rawURL || item.URL == bare {
			s.mu.RUnlock()
			return item, api.Wrap(api.ErrDuplicate, "queuestate", "add", "already in queue", nil)
		}
	}
	s.mu.RUnlock()

	item, err := s.api.AddQueue(ctx, rawURL)
	if err != nil {
		return api.QueueItem{}, err
	}
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Reorder moves the item at from to position to in the local snapshot, then
// pushes the full resulting order to the service asynchronously. A push
// failure leaves the local order in place; the divergence heals on the next
// reconcile fetch.
func (s *Store) Reorder(from, to int) {
	s.mu.Lock()
	if from < 0 || from >= len(s.items) || to < 0 || to >= len(s.items) || from == to {
		s.mu.Unlock()
		return
	}
	item := s.items[from]
	s.items = append(s.items[:from], s.items[from+1:]...)
	s.items = append(s.items[:to], append([]api.QueueItem{item}, s.items[to:]...)...)
	ids := make([]string, len(s.items))
	for i, it := range s.items {
		ids[i] = it.ID
	}
	s.mu.Unlock()
	s.notify()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.api.Reorder(ctx, ids); err != nil {
			s.logger.Debug("reorder push failed", logging.Error(err))
		}
	}()
}

// MoveToTop sends the items to the head of the queue and refetches.
func (s *Store) MoveToTop(ctx context.Context, ids []string) error {
	if err := s.api.Move(ctx, ids, api.MoveTop); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// MoveToBottom sends the items to the tail of the queue and refetches.
func (s *Store) MoveToBottom(ctx context.Context, ids []string) error {
	if err := s.api.Move(ctx, ids, api.MoveBottom); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Delete removes a single item. The remove hook fires after the server has
// accepted the delete and before the refreshed list lands, so a playing
// item's session ends before its row disappears and a failed delete leaves
// the session alone.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.fireRemove([]string{id})
	return s.Refresh(ctx)
}

// BulkDelete removes a set of items in one request.
func (s *Store) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.api.BulkDelete(ctx, ids); err != nil {
		return err
	}
	s.fireRemove(ids)
	return s.Refresh(ctx)
}

// Clear empties the whole queue.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, len(s.items))
	for i, item := range s.items {
		ids[i] = item.ID
	}
	s.mu.RUnlock()
	if err := s.api.ClearQueue(ctx); err != nil {
		return err
	}
	s.fireRemove(ids)
	return s.Refresh(ctx)
}

// ApplyCategory patches the local snapshot after a category assignment has
// been accepted by the service. No refetch: the mutation is the only change.
func (s *Store) ApplyCategory(ids []string, category *string) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	for i := range s.items {
		if _, ok := want[s.items[i].ID]; ok {
			if category == nil {
				s.items[i].Category = ""
			} else {
				s.items[i].Category = *category
			}
		}
	}
	s.mu.Unlock()
	s.notify()
}

// ClearCategory strips a deleted category from every local item.
func (s *Store) ClearCategory(categoryID string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].Category == categoryID {
			s.items[i].Category = ""
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Run reconciles the mirror until ctx is cancelled. Each tick fetches the
// queue and adopts the server list when its length differs from the local
// snapshot; equal-length drift is left for explicit refreshes.
func (s *Store) Run(ctx context.Context) error {
	s.logger.Debug("reconcile loop started", logging.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
		s.mu.RLock()
		active := s.foreground
		localLen := len(s.items)
		s.mu.RUnlock()
		if !active {
			continue
		}
		items, err := s.api.ListQueue(ctx)
		if err != nil {
			s.logger.Debug("reconcile fetch failed", logging.Error(err))
			continue
		}
		if len(items) == localLen {
			continue
		}
		s.mu.Lock()
		s.items = items
		s.mu.Unlock()
		s.notify()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) fireRemove(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.RLock()
	fn := s.onRemove
	s.mu.RUnlock()
	if fn != nil {
		fn(ids)
	}
}
