package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"streamq/internal/config"
	"streamq/internal/logging"
)

// HTTPDoer describes the HTTP client used by the service client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the remote queue service.
type Client struct {
	baseURL string
	http    HTTPDoer
	logger  *slog.Logger
}

// New constructs a client from application configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	httpClient, err := newHTTPClient(cfg.RequestTimeout(), cfg.Server.ProxyURL)
	if err != nil {
		return nil, err
	}
	return NewWithDoer(cfg.Server.BaseURL, httpClient, logger), nil
}

// NewWithDoer constructs a client around an explicit HTTP doer. Tests and
// embedders use this to substitute transports.
func NewWithDoer(baseURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    doer,
		logger:  logging.NewComponentLogger(logger, "api"),
	}
}

// BaseURL returns the configured service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamURL builds the playable-source URL for an item. The media pipeline
// that consumes it is outside this client.
func (c *Client) StreamURL(itemURL string) string {
	return c.baseURL + "/api/stream?url=" + url.QueryEscape(itemURL)
}

// DownloadFileURL builds the file-retrieval URL for a completed download job.
func (c *Client) DownloadFileURL(jobID string) string {
	return c.baseURL + "/api/download/file/" + url.PathEscape(jobID)
}

// do issues one JSON request/response exchange. A body of nil sends no
// payload; an out of nil discards the response. Error payloads are decoded
// regardless of HTTP status because the service reports some failures with
// 200s.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	operation := method + " " + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Wrap(ErrValidation, "api", operation, "encode request", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Wrap(ErrValidation, "api", operation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return Wrap(ErrTransient, "api", operation, "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Wrap(ErrTransient, "api", operation, "read response", err)
	}

	if errPayload := decodeErrorPayload(payload); errPayload != nil {
		c.logger.Debug("server reported error",
			logging.String("operation", operation),
			logging.String("message", errPayload.Error),
			logging.Bool("duplicate", errPayload.Duplicate),
		)
		return errPayload.toError(operation)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Wrap(ErrServer, "api", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return Wrap(ErrTransient, "api", operation, "decode response", err)
	}
	return nil
}

func decodeErrorPayload(payload []byte) *errorPayload {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var decoded errorPayload
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil
	}
	if decoded.Error == "" || decoded.Status != "" {
		return nil
	}
	return &decoded
}

func decodeJSON(payload []byte, out any) error {
	return json.Unmarshal(payload, out)
}

// raw issues a request and returns the body bytes unparsed. Used for the
// export bundle.
func (c *Client) raw(ctx context.Context, method, path string) ([]byte, error) {
	operation := method + " " + path

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, Wrap(ErrValidation, "api", operation, "build request", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Wrap(ErrTransient, "api", operation, "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(ErrTransient, "api", operation, "read response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, Wrap(ErrServer, "api", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return payload, nil
}
