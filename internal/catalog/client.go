package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/leleasley/lemedia/internal/media"
)

const defaultBaseURL = "https://api.themoviedb.org"
const defaultCacheTTL = 10 * time.Minute

// ErrNotFound is returned when a title doesn't exist in the catalog.
var ErrNotFound = errors.New("catalog: not found")

// Client is a catalog API client. Responses are cached briefly so
// calendar refreshes and repeated detail views don't re-fetch.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	releases *queryCache[[]Release]
	details  *queryCache[*Details]
	ids      *queryCache[ExternalIDs]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithCacheTTL sets the query cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.releases = newQueryCache[[]Release](ttl)
		c.details = newQueryCache[*Details](ttl)
		c.ids = newQueryCache[ExternalIDs](ttl)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a catalog client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		releases: newQueryCache[[]Release](defaultCacheTTL),
		details:  newQueryCache[*Details](defaultCacheTTL),
		ids:      newQueryCache[ExternalIDs](defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// kindPath maps a media type onto the catalog's URL segment.
func kindPath(kind media.Type) string {
	if kind == media.TypeTV {
		return "tv"
	}
	return "movie"
}

// Discover returns titles of the given kind releasing inside the date
// range, most popular first.
func (c *Client) Discover(ctx context.Context, r media.DateRange, kind media.Type) ([]Release, error) {
	from := r.From.Format("2006-01-02")
	to := r.To.Format("2006-01-02")
	cacheKey := "discover:" + string(kind) + ":" + from + ":" + to
	if rel, ok := c.releases.get(cacheKey); ok {
		return rel, nil
	}

	dateField := "primary_release_date"
	if kind == media.TypeTV {
		dateField = "first_air_date"
	}
	params := url.Values{}
	params.Set(dateField+".gte", from)
	params.Set(dateField+".lte", to)
	params.Set("sort_by", "popularity.desc")

	var result struct {
		Results []releaseResult `json:"results"`
	}
	if err := c.doGet(ctx, "/3/discover/"+kindPath(kind), params, &result); err != nil {
		return nil, fmt.Errorf("discover %s: %w", kind, err)
	}

	releases := make([]Release, 0, len(result.Results))
	for _, res := range result.Results {
		releases = append(releases, res.toRelease(kind))
	}
	c.releases.set(cacheKey, releases)
	return releases, nil
}

// Details fetches full metadata for one title.
func (c *Client) Details(ctx context.Context, kind media.Type, id int64) (*Details, error) {
	cacheKey := "details:" + string(kind) + ":" + strconv.FormatInt(id, 10)
	if det, ok := c.details.get(cacheKey); ok {
		return det, nil
	}

	var result detailsResult
	path := fmt.Sprintf("/3/%s/%d", kindPath(kind), id)
	if err := c.doGet(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("details %s %d: %w", kind, id, err)
	}

	det := result.toDetails(kind)
	c.details.set(cacheKey, det)
	return det, nil
}

// ExternalIDs fetches the title's IDs in the other identity spaces.
// Series submissions need the legacy ID from here before admission.
func (c *Client) ExternalIDs(ctx context.Context, kind media.Type, id int64) (ExternalIDs, error) {
	cacheKey := "external:" + string(kind) + ":" + strconv.FormatInt(id, 10)
	if ids, ok := c.ids.get(cacheKey); ok {
		return ids, nil
	}

	var ids ExternalIDs
	path := fmt.Sprintf("/3/%s/%d/external_ids", kindPath(kind), id)
	if err := c.doGet(ctx, path, nil, &ids); err != nil {
		return ExternalIDs{}, fmt.Errorf("external ids %s %d: %w", kind, id, err)
	}

	c.ids.set(cacheKey, ids)
	return ids, nil
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
