package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// ListCategories fetches all category definitions.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory defines a new category.
func (c *Client) CreateCategory(ctx context.Context, name, color string) (Category, error) {
	var out Category
	body := map[string]string{"name": name, "color": color}
	err := c.do(ctx, http.MethodPost, "/api/categories", body, &out)
	return out, err
}

// UpdateCategory renames or recolors a category.
func (c *Client) UpdateCategory(ctx context.Context, id string, name, color string) (Category, error) {
	var out Category
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	if color != "" {
		body["color"] = color
	}
	err := c.do(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(id), body, &out)
	return out, err
}

// DeleteCategory removes a category definition. The server clears item
// references; the caller mirrors that cascade locally.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/categories/"+url.PathEscape(id), nil, nil)
}

// ReorderCategories pushes a full category id order.
func (c *Client) ReorderCategories(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPost, "/api/categories/reorder", map[string][]string{"ids": ids}, nil)
}

// AssignCategory sets or clears (nil) one item's category.
func (c *Client) AssignCategory(ctx context.Context, itemID string, categoryID *string) error {
	body := struct {
		Category *string `json:"category"`
	}{Category: categoryID}
	path := "/api/queue/" + url.PathEscape(itemID) + "/category"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// BulkAssignCategory sets or clears (nil) the category on many items.
func (c *Client) BulkAssignCategory(ctx context.Context, itemIDs []string, categoryID *string) error {
	body := struct {
		IDs      []string `json:"ids"`
		Category *string  `json:"category"`
	}{IDs: itemIDs, Category: categoryID}
	return c.do(ctx, http.MethodPost, "/api/queue/bulk-category", body, nil)
}

// GetSettings fetches the server-persisted settings object.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out)
	return out, err
}

// PutSettings stores the settings object and returns the persisted result.
func (c *Client) PutSettings(ctx context.Context, settings Settings) (Settings, error) {
	var out Settings
	err := c.do(ctx, http.MethodPut, "/api/settings", settings, &out)
	return out, err
}

// CookiesStatus reports the service's credential freshness.
func (c *Client) CookiesStatus(ctx context.Context) (CookieStatus, error) {
	var out CookieStatus
	err := c.do(ctx, http.MethodGet, "/api/cookies/status", nil, &out)
	return out, err
}

// ExtractCookies asks the service to refresh scraping credentials from a
// local browser profile.
func (c *Client) ExtractCookies(ctx context.Context) (CookieExtractResult, error) {
	var out CookieExtractResult
	err := c.do(ctx, http.MethodPost, "/api/cookies/extract", nil, &out)
	return out, err
}

// Export downloads the full application state bundle (queue + settings).
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, "/api/data/export")
}

// Import uploads a previously exported bundle. The server replaces its state
// and reports the resulting queue count.
func (c *Client) Import(ctx context.Context, filename string, bundle io.Reader) (ImportResult, error) {
	const operation = "POST /api/data/import"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return ImportResult{}, Wrap(ErrValidation, "api", operation, "build form", err)
	}
	if _, err := io.Copy(part, bundle); err != nil {
		return ImportResult{}, Wrap(ErrValidation, "api", operation, "read bundle", err)
	}
	if err := writer.Close(); err != nil {
		return ImportResult{}, Wrap(ErrValidation, "api", operation, "finish form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/data/import", &buf)
	if err != nil {
		return ImportResult{}, Wrap(ErrValidation, "api", operation, "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return ImportResult{}, Wrap(ErrTransient, "api", operation, "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImportResult{}, Wrap(ErrTransient, "api", operation, "read response", err)
	}
	if errPayload := decodeErrorPayload(payload); errPayload != nil {
		return ImportResult{}, errPayload.toError(operation)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return ImportResult{}, Wrap(ErrServer, "api", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var result ImportResult
	if err := decodeJSON(payload, &result); err != nil {
		return ImportResult{}, Wrap(ErrTransient, "api", operation, "decode response", err)
	}
	return result, nil
}
