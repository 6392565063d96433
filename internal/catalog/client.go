// Package catalog mirrors the upstream content catalog into the local
// database. The upstream is the source of truth for entities and their
// relationships; this server only adds per-user state on top.
package catalog

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/ratelimit"
)

const (
	defaultBurst   = 3
	defaultTimeout = 30 * time.Second
)

// Client is a rate-limited upstream catalog client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger

	baseURL string
	apiKey  string
}

// NewClient creates a catalog client. An empty baseURL yields a client
// whose calls all fail with ErrDisabled; callers check Enabled first.
func NewClient(baseURL, apiKey string, rps int, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(float64(rps), defaultBurst),
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Enabled reports whether an upstream catalog is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Page is one page of entities of a single type. Exactly one slice is
// populated, matching the requested type.
type Page struct {
	Total      int                 `json:"total"`
	Scenes     []*domain.Scene     `json:"scenes,omitempty"`
	Performers []*domain.Performer `json:"performers,omitempty"`
	Studios    []*domain.Studio    `json:"studios,omitempty"`
	Tags       []*domain.Tag       `json:"tags,omitempty"`
	Groups     []*domain.Group     `json:"groups,omitempty"`
	Galleries  []*domain.Gallery   `json:"galleries,omitempty"`
	Images     []*domain.Image     `json:"images,omitempty"`
}

// Len returns the number of entities on the page.
func (p *Page) Len() int {
	return len(p.Scenes) + len(p.Performers) + len(p.Studios) + len(p.Tags) +
		len(p.Groups) + len(p.Galleries) + len(p.Images)
}

// ListEntities fetches one page of entities of typ. Pages are 1-based.
func (c *Client) ListEntities(ctx context.Context, typ domain.EntityType, page, perPage int) (*Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	body, err := c.doRequest(ctx, "/api/v1/"+string(typ)+"s", query)
	if err != nil {
		return nil, err
	}

	var out Page
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", typ, err)
	}
	return &out, nil
}

// doRequest executes an HTTP request with rate limiting. All requests
// share one limiter key: the upstream cares about total volume, not
// per-endpoint volume.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	// Wait for rate limit
	if err := c.limiter.Wait(ctx, "catalog"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mirador/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("catalog request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
