// Package automation holds clients for the two downstream acquisition
// services: one manages series, the other movies. Both speak the same
// REST dialect, differ in resource shapes, and reject duplicate adds
// with a validation error this package classifies into a typed Kind.
package automation

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
	"time"
)

// apiClient is the HTTP plumbing shared by the series and movie
// clients.
type apiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a client.
type Option func(*apiClient)

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) {
		c.httpClient = hc
	}
}

func newAPIClient(baseURL, apiKey, component string, log *slog.Logger, opts ...Option) *apiClient {
	if log == nil {
		log = slog.Default()
	}
	c := &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		log:     log.With("component", component),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *apiClient) get(ctx context.Context, path string, params url.Values, result any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	return c.do(req, result)
}

func (c *apiClient) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// SystemStatus identifies the automation service.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

func (c *apiClient) status(ctx context.Context) (*SystemStatus, error) {
	var st SystemStatus
	if err := c.get(ctx, "/api/v3/system/status", nil, &st); err != nil {
		return nil, fmt.Errorf("system status: %w", err)
	}
	return &st, nil
}

func (c *apiClient) do(req *http.Request, result any) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", req.URL.Path, "error", err)
		return ErrServiceUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		se := classify(resp.StatusCode, body)
		c.log.Debug("api request rejected",
			"path", req.URL.Path, "status", resp.StatusCode, "kind", se.Kind)
		return se
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	c.log.Debug("api request complete",
		"path", req.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
