package api

import (
	"context"
	"net/http"
	"net/url"
)

// SubmitDownload asks the server to start a full download of the item at
// itemURL. The returned job id doubles as the queue item id.
func (c *Client) SubmitDownload(ctx context.Context, itemURL string) (id, title string, err error) {
	var out struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/download", map[string]string{"url": itemURL}, &out); err != nil {
		return "", "", err
	}
	return out.ID, out.Title, nil
}

// AllDownloadStatus fetches every known job's status in one call.
func (c *Client) AllDownloadStatus(ctx context.Context) (map[string]DownloadStatus, error) {
	var out map[string]DownloadStatus
	if err := c.do(ctx, http.MethodGet, "/api/download/all-status", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]DownloadStatus{}
	}
	return out, nil
}

// ClearCompletedDownloads drops finished and failed jobs from the server's
// job table.
func (c *Client) ClearCompletedDownloads(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/download/clear-done", nil, nil)
}

// SubmitClip requests extraction of the half-open range [start, end) seconds
// from the item at itemURL. Range validation happens in the clip tracker
// before this call.
func (c *Client) SubmitClip(ctx context.Context, itemURL string, start, end int, title string) (string, error) {
	body := struct {
		URL   string `json:"url"`
		Start int    `json:"start"`
		End   int    `json:"end"`
		Title string `json:"title"`
	}{URL: itemURL, Start: start, End: end, Title: title}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/clip-download", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetClipStatus fetches one clip job's status.
func (c *Client) GetClipStatus(ctx context.Context, clipID string) (ClipStatus, error) {
	var out ClipStatus
	path := "/api/clip-status/" + url.PathEscape(clipID)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
