package v1

import (
	"time"
)

// submitRequest is the body of POST /requests.
type submitRequest struct {
	MediaType   string `json:"media_type"`
	CatalogID   int64  `json:"catalog_id"`
	LegacyID    int64  `json:"legacy_id,omitempty"`
	Title       string `json:"title,omitempty"`
	RequestedBy string `json:"requested_by"`
	Privileged  bool   `json:"privileged,omitempty"`
	Seasons     []int  `json:"seasons,omitempty"`
}

// updateStatusRequest is the body of PUT /requests/{id}/status.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// requestItemResponse is the API representation of one request item.
type requestItemResponse struct {
	ID             int64   `json:"id"`
	Provider       string  `json:"provider"`
	ProviderItemID *string `json:"provider_item_id,omitempty"`
	Season         *int    `json:"season,omitempty"`
	Episode        *int    `json:"episode,omitempty"`
	Status         string  `json:"status"`
}

// requestResponse is the API representation of a request.
type requestResponse struct {
	ID          string                `json:"id"`
	MediaType   string                `json:"media_type"`
	CatalogID   int64                 `json:"catalog_id"`
	LegacyID    int64                 `json:"legacy_id,omitempty"`
	Title       string                `json:"title,omitempty"`
	RequestedBy string                `json:"requested_by"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Items       []requestItemResponse `json:"items"`
}

// listRequestsResponse is the response for GET /requests.
type listRequestsResponse struct {
	Items  []requestResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// quotaResponse is the response for GET /quota.
type quotaResponse struct {
	User       string `json:"user"`
	MediaType  string `json:"media_type"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	WindowDays int    `json:"window_days"`
	Exhausted  bool   `json:"exhausted"`
}

// availabilityResponse is the response for the availability endpoints.
type availabilityResponse struct {
	Available bool   `json:"available"`
	ItemID    string `json:"item_id,omitempty"`
}

// statusResponse is the response for GET /status.
type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// eventResponse is the API representation of one lifecycle event.
type eventResponse struct {
	Name       string `json:"name"`
	RequestID  string `json:"request_id"`
	MediaType  string `json:"media_type"`
	CatalogID  int64  `json:"catalog_id"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// listEventsResponse is the response for GET /events.
type listEventsResponse struct {
	Items []eventResponse `json:"items"`
	Total int             `json:"total"`
}
