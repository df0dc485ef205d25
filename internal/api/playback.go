package api

import (
	"context"
	"net/http"
	"net/url"
)

// GetPosition fetches the saved playback offset for an item. A missing
// record reads as zero.
func (c *Client) GetPosition(ctx context.Context, itemID string) (float64, error) {
	var out struct {
		Position float64 `json:"position"`
	}
	path := "/api/playback/" + url.PathEscape(itemID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Position, nil
}

// SetPosition persists the playback offset for an item. Last write wins.
func (c *Client) SetPosition(ctx context.Context, itemID string, position float64) error {
	path := "/api/playback/" + url.PathEscape(itemID)
	return c.do(ctx, http.MethodPost, path, map[string]float64{"position": position}, nil)
}

// GetHeatmap fetches the per-second view counts for an item.
func (c *Client) GetHeatmap(ctx context.Context, itemID string) (Heatmap, error) {
	var out Heatmap
	path := "/api/heatmap/" + url.PathEscape(itemID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Heatmap{}
	}
	return out, nil
}

// IncrementHeatmap records one view of the given second. Append-only; the
// server owns the authoritative counts.
func (c *Client) IncrementHeatmap(ctx context.Context, itemID string, second int) error {
	path := "/api/heatmap/" + url.PathEscape(itemID)
	return c.do(ctx, http.MethodPost, path, map[string]int{"second": second}, nil)
}
