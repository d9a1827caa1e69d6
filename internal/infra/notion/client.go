// Package notion implements domain.Store against the Notion HTTP API.
// It speaks the small slice of the API this system needs: filtered
// database queries with cursor pagination, page create/update, page read.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
	pageSize       = 100
)

// Config controls client behavior.
type Config struct {
	Token   string        // integration secret, required
	BaseURL string        // override for tests; default is the public API
	Timeout time.Duration // per-request timeout (default: 30s)
}

// DefaultConfig returns production defaults for the given token.
func DefaultConfig(token string) Config {
	return Config{
		Token:   token,
		BaseURL: defaultBaseURL,
		Timeout: 30 * time.Second,
	}
}

// Client is an HTTP client for the Notion API. It implements domain.Store.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *zap.Logger
}

// NewClient creates a store client.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   log.Named("notion"),
	}
}

// ─── domain.Store Implementation ────────────────────────────────────────────

type queryRequest struct {
	Filter      any    `json:"filter,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size"`
}

type queryResponse struct {
	Results    []pageObject `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

// Query returns one page of records matching f.
func (c *Client) Query(ctx context.Context, collectionID string, f domain.Filter, cursor string) (domain.Page, error) {
	req := queryRequest{
		Filter:      compileFilter(f),
		StartCursor: cursor,
		PageSize:    pageSize,
	}

	var resp queryResponse
	path := fmt.Sprintf("/databases/%s/query", collectionID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return domain.Page{}, fmt.Errorf("query %s: %w", collectionID, err)
	}

	page := domain.Page{HasMore: resp.HasMore}
	if resp.NextCursor != nil {
		page.NextCursor = *resp.NextCursor
	}
	for _, obj := range resp.Results {
		page.Records = append(page.Records, decodeRecord(obj))
	}
	return page, nil
}

type createRequest struct {
	Parent     parentRef               `json:"parent"`
	Properties map[string]propertyJSON `json:"properties"`
}

type parentRef struct {
	DatabaseID string `json:"database_id"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateRecord appends a record to a collection.
func (c *Client) CreateRecord(ctx context.Context, collectionID string, fields map[string]domain.Value) (string, error) {
	req := createRequest{
		Parent:     parentRef{DatabaseID: collectionID},
		Properties: encodeFields(fields),
	}

	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/pages", req, &resp); err != nil {
		return "", fmt.Errorf("create record in %s: %w", collectionID, err)
	}
	return resp.ID, nil
}

type updateRequest struct {
	Properties map[string]propertyJSON `json:"properties"`
}

// UpdateRecord patches the given fields of an existing record.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, fields map[string]domain.Value) error {
	req := updateRequest{Properties: encodeFields(fields)}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+recordID, req, nil); err != nil {
		return fmt.Errorf("update record %s: %w", recordID, err)
	}
	return nil
}

// GetRecord fetches a single record by id.
func (c *Client) GetRecord(ctx context.Context, recordID string) (domain.Record, error) {
	var obj pageObject
	if err := c.do(ctx, http.MethodGet, "/pages/"+recordID, nil, &obj); err != nil {
		return domain.Record{}, fmt.Errorf("get record %s: %w", recordID, err)
	}
	return decodeRecord(obj), nil
}

// ─── Request Plumbing ───────────────────────────────────────────────────────

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do issues one API request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps an error response to a sentinel where one applies.
func (c *Client) statusError(resp *http.Response) error {
	var ae apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &ae)
	msg := ae.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, domain.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, domain.ErrRateLimited)
	default:
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
}
