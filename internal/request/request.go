// Package request owns the request lifecycle: the SQLite-backed store,
// the admission controller that serializes creation per subject, and
// the typed rejections callers branch on.
package request

import (
	"fmt"
	"time"

	"github.com/leleasley/lemedia/internal/media"
)

// Status is a request's lifecycle state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusQueued      Status = "queued"
	StatusSubmitted   Status = "submitted"
	StatusDownloading Status = "downloading"
	StatusAvailable   Status = "available"
	StatusDenied      Status = "denied"
	StatusFailed      Status = "failed"
	// StatusAlreadyExists marks a submission whose title turned out to
	// already be present downstream. Terminal, like failed, but
	// semantically "this was fine".
	StatusAlreadyExists Status = "already_exists"
)

// Active reports whether the status still blocks a new request for the
// same subject.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusQueued, StatusSubmitted, StatusDownloading:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusSubmitted, StatusDownloading,
		StatusAvailable, StatusDenied, StatusFailed, StatusAlreadyExists:
		return true
	}
	return false
}

// Record is one media request.
type Record struct {
	ID          string
	Subject     media.Subject
	RequestedBy string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []Item
}

// Item is one line item of a request: the whole title for movies, one
// episode for series. ProviderItemID references the downstream
// automation job and stays nil until the request is submitted.
type Item struct {
	ID             int64
	RequestID      string
	Provider       string
	ProviderItemID *string
	SeasonNumber   *int
	EpisodeNumber  *int
	Status         Status
	CreatedAt      time.Time
}

// Providers an Item can reference.
const (
	ProviderSeries = "series"
	ProviderMovie  = "movie"
)

// Requester identifies who is submitting and whether they bypass quota
// and go straight to acquisition.
type Requester struct {
	Name       string
	Privileged bool
}

// QuotaStatus is a requester's standing against the rolling quota.
// Limit 0 means unlimited.
type QuotaStatus struct {
	Limit      int
	Remaining  int
	WindowDays int
}

// Exhausted reports whether the quota blocks another request.
func (q QuotaStatus) Exhausted() bool {
	return q.Limit > 0 && q.Remaining <= 0
}

// EpisodeSelector narrows a series request to specific seasons. Empty
// means every regular season.
type EpisodeSelector struct {
	Seasons []int
}

func (s *EpisodeSelector) wants(season int) bool {
	if s == nil || len(s.Seasons) == 0 {
		// Specials are never implied; they must be selected explicitly.
		return season > 0
	}
	for _, n := range s.Seasons {
		if n == season {
			return true
		}
	}
	return false
}

// EpisodeKey is the item-granularity identity used to diff wanted
// episodes against already-requested ones.
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("s%de%d", season, episode)
}
