package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListQueue fetches the full ordered queue.
func (c *Client) ListQueue(ctx context.Context) ([]QueueItem, error) {
	var items []QueueItem
	if err := c.do(ctx, http.MethodGet, "/api/queue", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddQueue submits a URL for enqueueing. The server enriches title,
// thumbnail, and duration; the returned item is canonical.
func (c *Client) AddQueue(ctx context.Context, itemURL string) (QueueItem, error) {
	var item QueueItem
	err := c.do(ctx, http.MethodPost, "/api/queue", map[string]string{"url": itemURL}, &item)
	return item, err
}

// DeleteItem removes a single item by id.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/queue/"+url.PathEscape(id), nil, nil)
}

// ClearQueue removes every item.
func (c *Client) ClearQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/queue/clear", nil, nil)
}

// BulkDelete removes the given ids in one call.
func (c *Client) BulkDelete(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPost, "/api/queue/bulk-delete", map[string][]string{"ids": ids}, nil)
}

// Reorder pushes the full new id order. Callers treat this as
// fire-and-forget; the reconciliation poll recovers from failures.
func (c *Client) Reorder(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPost, "/api/queue/reorder", map[string][]string{"ids": ids}, nil)
}

// Move shifts the given ids to the top or bottom of the server-side order.
func (c *Client) Move(ctx context.Context, ids []string, position MovePosition) error {
	body := struct {
		IDs      []string     `json:"ids"`
		Position MovePosition `json:"position"`
	}{IDs: ids, Position: position}
	return c.do(ctx, http.MethodPost, "/api/queue/move", body, nil)
}

// Related fetches content suggestions for an item URL.
func (c *Client) Related(ctx context.Context, itemURL string) ([]RelatedVideo, error) {
	var out struct {
		Related []RelatedVideo `json:"related"`
	}
	path := "/api/related?url=" + url.QueryEscape(itemURL)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Related, nil
}
