package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps HTTP calls to the lemedia server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new lemedia API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// decodeError turns a non-2xx response into an error, using the
// server's JSON error envelope when it is one.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("server error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Error)
	}
	return fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) put(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}

	return nil
}

// API types (mirror server types)

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type SubmitRequest struct {
	MediaType   string `json:"media_type"`
	CatalogID   int64  `json:"catalog_id"`
	LegacyID    int64  `json:"legacy_id,omitempty"`
	Title       string `json:"title,omitempty"`
	RequestedBy string `json:"requested_by"`
	Privileged  bool   `json:"privileged,omitempty"`
	Seasons     []int  `json:"seasons,omitempty"`
}

type RequestItemResponse struct {
	ID             int64   `json:"id"`
	Provider       string  `json:"provider"`
	ProviderItemID *string `json:"provider_item_id,omitempty"`
	Season         *int    `json:"season,omitempty"`
	Episode        *int    `json:"episode,omitempty"`
	Status         string  `json:"status"`
}

type RequestResponse struct {
	ID          string                `json:"id"`
	MediaType   string                `json:"media_type"`
	CatalogID   int64                 `json:"catalog_id"`
	LegacyID    int64                 `json:"legacy_id,omitempty"`
	Title       string                `json:"title,omitempty"`
	RequestedBy string                `json:"requested_by"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Items       []RequestItemResponse `json:"items"`
}

type ListRequestsResponse struct {
	Items  []RequestResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type QuotaResponse struct {
	User       string `json:"user"`
	MediaType  string `json:"media_type"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	WindowDays int    `json:"window_days"`
	Exhausted  bool   `json:"exhausted"`
}

type AvailabilityResponse struct {
	Available bool   `json:"available"`
	ItemID    string `json:"item_id,omitempty"`
}

type CalendarEvent struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	MediaType string    `json:"media_type"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Overview  string    `json:"overview,omitempty"`
	CatalogID int64     `json:"catalog_id,omitempty"`
	LegacyID  int64     `json:"legacy_id,omitempty"`
	Season    int       `json:"season,omitempty"`
	Episode   int       `json:"episode,omitempty"`
	Status    string    `json:"status,omitempty"`
	Available *bool     `json:"available,omitempty"`
}

type CalendarResponse struct {
	Events []CalendarEvent `json:"events"`
	Errors []string        `json:"errors,omitempty"`
}

type EventResponse struct {
	Name       string `json:"name"`
	RequestID  string `json:"request_id"`
	MediaType  string `json:"media_type"`
	CatalogID  int64  `json:"catalog_id"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

type ListEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
}

type VerifyProblem struct {
	RequestID string   `json:"request_id"`
	Status    string   `json:"status"`
	Title     string   `json:"title"`
	Since     string   `json:"since"`
	Issue     string   `json:"issue"`
	Checks    []string `json:"checks"`
	Likely    string   `json:"likely_cause"`
	Fixes     []string `json:"suggested_fixes"`
}

type VerifyResponse struct {
	Connections struct {
		MediaServer bool   `json:"media_server"`
		MediaErr    string `json:"media_server_error,omitempty"`
		Series      bool   `json:"series_automation"`
		SeriesErr   string `json:"series_automation_error,omitempty"`
		Movies      bool   `json:"movie_automation"`
		MoviesErr   string `json:"movie_automation_error,omitempty"`
	} `json:"connections"`
	Checked  int             `json:"checked"`
	Passed   int             `json:"passed"`
	Problems []VerifyProblem `json:"problems"`
}

// API methods

func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitRequest(req *SubmitRequest) (*RequestResponse, error) {
	var resp RequestResponse
	if err := c.post("/api/v1/requests", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestFilters narrows what Requests returns. Zero values are omitted.
type RequestFilters struct {
	Status string
	User   string
	Type   string
	Limit  int
	Offset int
}

func (c *Client) Requests(f RequestFilters) (*ListRequestsResponse, error) {
	params := url.Values{}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.User != "" {
		params.Set("user", f.User)
	}
	if f.Type != "" {
		params.Set("type", f.Type)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		params.Set("offset", strconv.Itoa(f.Offset))
	}

	path := "/api/v1/requests"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp ListRequestsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Request(id string) (*RequestResponse, error) {
	var resp RequestResponse
	if err := c.get("/api/v1/requests/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteRequest(id string) error {
	return c.delete("/api/v1/requests/" + url.PathEscape(id))
}

func (c *Client) SetRequestStatus(id, status string) (*RequestResponse, error) {
	body := map[string]string{"status": status}
	var resp RequestResponse
	if err := c.put("/api/v1/requests/"+url.PathEscape(id)+"/status", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Quota(user, mediaType string) (*QuotaResponse, error) {
	params := url.Values{}
	params.Set("user", user)
	if mediaType != "" {
		params.Set("type", mediaType)
	}

	var resp QuotaResponse
	if err := c.get("/api/v1/quota?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MovieAvailability(catalogID int64, title string) (*AvailabilityResponse, error) {
	path := fmt.Sprintf("/api/v1/availability/movie/%d", catalogID)
	if title != "" {
		path += "?title=" + url.QueryEscape(title)
	}

	var resp AvailabilityResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodeQuery identifies one episode for an availability check. At
// least one of CatalogID, LegacyID or Title must be set.
type EpisodeQuery struct {
	CatalogID int64
	LegacyID  int64
	Title     string
	Season    int
	Episode   int
	AirDate   string
	Daily     bool
}

func (c *Client) EpisodeAvailability(q EpisodeQuery) (*AvailabilityResponse, error) {
	params := url.Values{}
	if q.CatalogID != 0 {
		params.Set("catalog_id", strconv.FormatInt(q.CatalogID, 10))
	}
	if q.LegacyID != 0 {
		params.Set("legacy_id", strconv.FormatInt(q.LegacyID, 10))
	}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.Season != 0 {
		params.Set("season", strconv.Itoa(q.Season))
	}
	if q.Episode != 0 {
		params.Set("episode", strconv.Itoa(q.Episode))
	}
	if q.AirDate != "" {
		params.Set("air_date", q.AirDate)
	}
	if q.Daily {
		params.Set("series_type", "daily")
	}

	var resp AvailabilityResponse
	if err := c.get("/api/v1/availability/episode?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Calendar(from, to string, sources []string, enrich bool) (*CalendarResponse, error) {
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}
	if len(sources) > 0 {
		params.Set("sources", strings.Join(sources, ","))
	}
	if enrich {
		params.Set("enrich", "true")
	}

	path := "/api/v1/calendar"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp CalendarResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Events(limit int) (*ListEventsResponse, error) {
	path := fmt.Sprintf("/api/v1/events?limit=%d", limit)
	var resp ListEventsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Verify(id string) (*VerifyResponse, error) {
	path := "/api/v1/verify"
	if id != "" {
		path += "?id=" + url.QueryEscape(id)
	}
	var resp VerifyResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
