package automation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/leleasley/lemedia/internal/media"
)

// MonitoredMovie is a movie resource as the automation service models
// it, used for calendar rows, lookups, and adds alike.
type MonitoredMovie struct {
	ID               int64            `json:"id,omitempty"`
	Title            string           `json:"title"`
	TitleSlug        string           `json:"titleSlug"`
	TmdbID           int64            `json:"tmdbId"`
	Year             int              `json:"year,omitempty"`
	Overview         string           `json:"overview,omitempty"`
	InCinemas        time.Time        `json:"inCinemas"`
	DigitalRelease   time.Time        `json:"digitalRelease"`
	PhysicalRelease  time.Time        `json:"physicalRelease"`
	HasFile          bool             `json:"hasFile"`
	QualityProfileID int              `json:"qualityProfileId,omitempty"`
	RootFolderPath   string           `json:"rootFolderPath,omitempty"`
	Monitored        bool             `json:"monitored"`
	AddOptions       *MovieAddOptions `json:"addOptions,omitempty"`
}

// MovieAddOptions controls what the service does right after an add.
type MovieAddOptions struct {
	SearchForMovie bool `json:"searchForMovie"`
}

// ReleaseDate picks the movie's presentable release date: theatrical
// first, then digital, then physical.
func (m *MonitoredMovie) ReleaseDate() time.Time {
	for _, d := range []time.Time{m.InCinemas, m.DigitalRelease, m.PhysicalRelease} {
		if !d.IsZero() {
			return d
		}
	}
	return time.Time{}
}

// MovieClient talks to the movie automation service.
type MovieClient struct {
	api              *apiClient
	qualityProfileID int
	rootFolder       string
}

// NewMovieClient creates a movie automation client. qualityProfileID
// and rootFolder are applied to every add.
func NewMovieClient(baseURL, apiKey string, qualityProfileID int, rootFolder string, log *slog.Logger, opts ...Option) *MovieClient {
	return &MovieClient{
		api:              newAPIClient(baseURL, apiKey, "movie-automation", log, opts...),
		qualityProfileID: qualityProfileID,
		rootFolder:       rootFolder,
	}
}

// Status reports the service's identity; used as a connectivity check.
func (c *MovieClient) Status(ctx context.Context) (*SystemStatus, error) {
	return c.api.status(ctx)
}

// Calendar returns the movies releasing inside the date range.
func (c *MovieClient) Calendar(ctx context.Context, r media.DateRange) ([]MonitoredMovie, error) {
	params := url.Values{}
	params.Set("start", r.From.Format("2006-01-02"))
	params.Set("end", r.To.Format("2006-01-02"))

	var movies []MonitoredMovie
	if err := c.api.get(ctx, "/api/v3/calendar", params, &movies); err != nil {
		return nil, fmt.Errorf("movie calendar: %w", err)
	}
	return movies, nil
}

// LookupByCatalogID finds the movie candidate to add, keyed by the
// catalog ID.
func (c *MovieClient) LookupByCatalogID(ctx context.Context, catalogID int64) (*MonitoredMovie, error) {
	params := url.Values{}
	params.Set("tmdbId", strconv.FormatInt(catalogID, 10))

	var movie MonitoredMovie
	if err := c.api.get(ctx, "/api/v3/movie/lookup/tmdb", params, &movie); err != nil {
		return nil, fmt.Errorf("movie lookup tmdb:%d: %w", catalogID, err)
	}
	if movie.TmdbID == 0 {
		return nil, ErrNotFound
	}
	return &movie, nil
}

// AddMovie registers the movie with the service, monitored but without
// an automatic search; the caller triggers the search explicitly.
func (c *MovieClient) AddMovie(ctx context.Context, m *MonitoredMovie) (*MonitoredMovie, error) {
	m.QualityProfileID = c.qualityProfileID
	m.RootFolderPath = c.rootFolder
	m.Monitored = true
	m.AddOptions = &MovieAddOptions{SearchForMovie: false}

	var added MonitoredMovie
	if err := c.api.post(ctx, "/api/v3/movie", m, &added); err != nil {
		return nil, fmt.Errorf("add movie %q: %w", m.Title, err)
	}
	return &added, nil
}

// SearchMovie queues an acquisition search for the movie.
func (c *MovieClient) SearchMovie(ctx context.Context, movieID int64) error {
	cmd := struct {
		Name     string  `json:"name"`
		MovieIDs []int64 `json:"movieIds"`
	}{Name: "MoviesSearch", MovieIDs: []int64{movieID}}

	if err := c.api.post(ctx, "/api/v3/command", cmd, nil); err != nil {
		return fmt.Errorf("search movie %d: %w", movieID, err)
	}
	return nil
}
