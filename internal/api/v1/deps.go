package v1

//go:generate mockgen -source=deps.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"

	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/calendar"
	"github.com/leleasley/lemedia/internal/catalog"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/mediaserver"
	"github.com/leleasley/lemedia/internal/notify"
	"github.com/leleasley/lemedia/internal/request"
)

// Admission decides whether a submission becomes a request.
type Admission interface {
	Submit(ctx context.Context, subject media.Subject, requester request.Requester, sel *request.EpisodeSelector) (*request.Record, error)
}

// RequestStore reads and mutates stored requests.
type RequestStore interface {
	List(ctx context.Context, f request.Filter) ([]*request.Record, error)
	Get(ctx context.Context, id string) (*request.Record, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status request.Status) error
	QuotaStatus(ctx context.Context, user string, kind media.Type, limit, windowDays int) (request.QuotaStatus, error)
}

// Checker answers library availability questions.
type Checker interface {
	IsEpisodeAvailable(ctx context.Context, q availability.EpisodeQuery) (availability.Result, error)
	IsMovieAvailable(ctx context.Context, q availability.MovieQuery) (availability.Result, error)
}

// EventSource aggregates upcoming-release events.
type EventSource interface {
	Events(ctx context.Context, r media.DateRange, opts calendar.Options) ([]calendar.Event, []error)
}

// EventLog exposes recent request lifecycle events.
type EventLog interface {
	Recent(limit int) []notify.Event
}

// CatalogResolver bridges catalog IDs into the legacy identity space.
type CatalogResolver interface {
	ExternalIDs(ctx context.Context, kind media.Type, id int64) (catalog.ExternalIDs, error)
}

// MediaServer reports the media server's identity.
type MediaServer interface {
	Info(ctx context.Context) (*mediaserver.SystemInfo, error)
}

// AutomationService reports an automation service's identity.
type AutomationService interface {
	Status(ctx context.Context) (*automation.SystemStatus, error)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil
// when the backing service is not configured.
type ServerDeps struct {
	// Required dependencies
	Requests  RequestStore
	Admission Admission

	// Optional dependencies (nil if not configured)
	Checker     Checker
	Calendar    EventSource
	EventLog    EventLog
	Catalog     CatalogResolver
	MediaServer MediaServer
	Series      AutomationService
	Movies      AutomationService
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Requests == nil {
		return errors.New("request store is required")
	}
	if d.Admission == nil {
		return errors.New("admission controller is required")
	}
	return nil
}
