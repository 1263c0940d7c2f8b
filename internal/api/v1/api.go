// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/calendar"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/request"
)

const defaultCalendarDays = 30

// Config holds API server configuration.
type Config struct {
	Version string
	Quota   request.QuotaPolicy
}

// Server is the v1 API server.
type Server struct {
	deps ServerDeps
	cfg  Config
	log  *slog.Logger
}

// New creates a new v1 API server.
func New(deps ServerDeps, cfg Config, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{deps: deps, cfg: cfg, log: log.With("component", "api")}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Requests
	mux.HandleFunc("POST /api/v1/requests", s.createRequest)
	mux.HandleFunc("GET /api/v1/requests", s.listRequests)
	mux.HandleFunc("GET /api/v1/requests/{id}", s.getRequest)
	mux.HandleFunc("DELETE /api/v1/requests/{id}", s.deleteRequest)
	mux.HandleFunc("PUT /api/v1/requests/{id}/status", s.updateRequestStatus)

	// Quota
	mux.HandleFunc("GET /api/v1/quota", s.getQuota)

	// Availability
	mux.HandleFunc("GET /api/v1/availability/movie/{catalogID}", s.requireChecker(s.movieAvailability))
	mux.HandleFunc("GET /api/v1/availability/episode", s.requireChecker(s.episodeAvailability))

	// Calendar
	mux.HandleFunc("GET /api/v1/calendar", s.requireCalendar(s.getCalendar))

	// Events
	mux.HandleFunc("GET /api/v1/events", s.listEvents)

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
	mux.HandleFunc("GET /api/v1/verify", s.verify)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// pathID extracts an integer ID from the URL path.
func pathID(r *http.Request, name string) (int64, error) {
	idStr := r.PathValue(name)
	if idStr == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// queryInt64 extracts an optional 64-bit integer from query string.
func queryInt64(r *http.Request, name string) int64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return 0
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return i
}

// queryString extracts an optional string from query string.
func queryString(r *http.Request, name string) *string {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	return &val
}

// queryBool extracts an optional boolean from query string.
func queryBool(r *http.Request, name string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && b
}

// queryDate extracts an optional YYYY-MM-DD date from query string.
func queryDate(r *http.Request, name string) (time.Time, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return d, nil
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Version: s.cfg.Version})
}

func (s *Server) movieAvailability(w http.ResponseWriter, r *http.Request) {
	catalogID, err := pathID(r, "catalogID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	q := availability.MovieQuery{CatalogID: catalogID}
	if title := queryString(r, "title"); title != nil {
		q.Title = *title
	}

	res, err := s.deps.Checker.IsMovieAvailable(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadGateway, "LIBRARY_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: res.Available, ItemID: res.ItemID})
}

func (s *Server) episodeAvailability(w http.ResponseWriter, r *http.Request) {
	q := availability.EpisodeQuery{
		CatalogID:        queryInt64(r, "catalog_id"),
		LegacyID:         queryInt64(r, "legacy_id"),
		LegacyEpisodeID:  queryInt64(r, "legacy_episode_id"),
		CatalogEpisodeID: queryInt64(r, "catalog_episode_id"),
		Season:           queryInt(r, "season", 0),
		Episode:          queryInt(r, "episode", 0),
		SeriesType:       media.SeriesStandard,
	}
	if title := queryString(r, "title"); title != nil {
		q.SeriesTitle = *title
	}
	if q.CatalogID == 0 && q.LegacyID == 0 && q.SeriesTitle == "" {
		writeError(w, http.StatusBadRequest, "MISSING_IDENTITY", "one of catalog_id, legacy_id or title is required")
		return
	}

	airDate, err := queryDate(r, "air_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}
	q.AirDate = airDate

	if st := r.URL.Query().Get("series_type"); st != "" {
		switch media.SeriesType(st) {
		case media.SeriesStandard, media.SeriesDaily:
			q.SeriesType = media.SeriesType(st)
		default:
			writeError(w, http.StatusBadRequest, "INVALID_SERIES_TYPE", "series_type must be 'standard' or 'daily'")
			return
		}
	}

	res, err := s.deps.Checker.IsEpisodeAvailable(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadGateway, "LIBRARY_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: res.Available, ItemID: res.ItemID})
}

// calendarResponse is the response for GET /calendar. Source failures
// are reported alongside the events that did arrive.
type calendarResponse struct {
	Events []calendar.Event `json:"events"`
	Errors []string         `json:"errors,omitempty"`
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}
	if from.IsZero() {
		from = time.Now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, defaultCalendarDays)
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", "to must not precede from")
		return
	}

	opts := calendar.AllSources()
	if src := queryString(r, "sources"); src != nil {
		opts = calendar.Options{}
		for _, name := range strings.Split(*src, ",") {
			switch strings.TrimSpace(name) {
			case "catalog":
				opts.Catalog = true
			case "series":
				opts.Series = true
			case "movies":
				opts.Movies = true
			case "premieres":
				opts.Premieres = true
			case "requests":
				opts.Requests = true
			default:
				writeError(w, http.StatusBadRequest, "INVALID_SOURCE", "unknown source: "+name)
				return
			}
		}
	}
	opts.Enrich = queryBool(r, "enrich")

	events, errs := s.deps.Calendar.Events(r.Context(), media.DateRange{From: from, To: to}, opts)

	resp := calendarResponse{Events: events}
	if resp.Events == nil {
		resp.Events = []calendar.Event{}
	}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.EventLog == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_EVENT_LOG", "Event log not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be non-negative")
		return
	}

	events := s.deps.EventLog.Recent(limit)
	resp := listEventsResponse{
		Items: make([]eventResponse, len(events)),
		Total: len(events),
	}
	for i, e := range events {
		resp.Items[i] = eventResponse{
			Name:       e.Name,
			RequestID:  e.RequestID,
			MediaType:  string(e.Subject.Type),
			CatalogID:  e.Subject.CatalogID,
			Title:      e.Subject.Title,
			Message:    e.Message,
			OccurredAt: e.OccurredAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
