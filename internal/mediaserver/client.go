// Package mediaserver is a client for the Jellyfin-compatible server the
// media library lives on. Every availability decision in the system
// bottoms out in the item data returned from here.
package mediaserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the server reports 404 for a lookup.
var ErrNotFound = errors.New("mediaserver: not found")

// Client talks to the media server's REST API. Requests pass through a
// rate limiter so cache-miss storms cannot hammer the server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit bounds outgoing requests to perSecond with the given
// burst. Zero disables limiting.
func WithRateLimit(perSecond, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a media server client.
func NewClient(baseURL, apiKey string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL: trimTrailingSlash(baseURL),
		apiKey:  apiKey,
		log:     log.With("component", "mediaserver"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// itemsResponse is the standard paged envelope the server wraps item
// lists in.
type itemsResponse struct {
	Items            []LibraryItem `json:"Items"`
	TotalRecordCount int           `json:"TotalRecordCount"`
}

// QueryItems returns library items matching the filter.
func (c *Client) QueryItems(ctx context.Context, f Filter) ([]LibraryItem, error) {
	var result itemsResponse
	if err := c.doGet(ctx, "/Items", f.values(), &result); err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return result.Items, nil
}

// EpisodesForSeries returns every episode of a series in one call. The
// caller filters client-side; the two external ID numbering schemes
// disagree on season boundaries often enough that server-side season
// scoping drops episodes.
func (c *Client) EpisodesForSeries(ctx context.Context, seriesID string) ([]LibraryItem, error) {
	params := url.Values{}
	params.Set("fields", itemFields)

	var result itemsResponse
	path := "/Shows/" + url.PathEscape(seriesID) + "/Episodes"
	if err := c.doGet(ctx, path, params, &result); err != nil {
		return nil, fmt.Errorf("episodes for series %s: %w", seriesID, err)
	}
	return result.Items, nil
}

// SearchByName free-text searches the library, optionally restricted to
// the given item types.
func (c *Client) SearchByName(ctx context.Context, term string, types ...ItemType) ([]LibraryItem, error) {
	items, err := c.QueryItems(ctx, Filter{
		SearchTerm:   term,
		IncludeTypes: types,
		Recursive:    true,
		Limit:        50,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	return items, nil
}

// SystemInfo identifies the server.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
}

// Info returns the server's name and version. Used for connection
// checks.
func (c *Client) Info(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.doGet(ctx, "/System/Info", nil, &info); err != nil {
		return nil, fmt.Errorf("system info: %w", err)
	}
	return &info, nil
}
