package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Client talks to the graph application's local HTTP API. Every call is a
// POST of a {"method": ..., "args": [...]} envelope to a single endpoint,
// authenticated with a bearer token.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient creates an API client for the given endpoint.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type apiCall struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// call performs one API invocation and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method string, args []any, out any) error {
	body, err := json.Marshal(apiCall{Method: method, Args: args})
	if err != nil {
		return fmt.Errorf("graph: marshal call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graph: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph: %s: %w: %w", method, apperr.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph: %s: %w: status %d: %s", method, apperr.ErrProvider, resp.StatusCode, bytes.TrimSpace(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("graph: %s: %w: decode: %w", method, apperr.ErrProvider, err)
	}
	return nil
}

// ListAllPages fetches every page in the graph.
func (c *Client) ListAllPages(ctx context.Context) ([]*models.Page, error) {
	var pages []*models.Page
	if err := c.call(ctx, "get_all_pages", nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// PageBlocks fetches the block tree of the named page.
func (c *Client) PageBlocks(ctx context.Context, page string) ([]*models.Block, error) {
	var blocks []*models.Block
	if err := c.call(ctx, "get_page_blocks", []any{page}, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Query passes a raw structured query through to the application.
func (c *Client) Query(ctx context.Context, dsl string) ([]map[string]any, error) {
	var rows []map[string]any
	if err := c.call(ctx, "query", []any{dsl}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
