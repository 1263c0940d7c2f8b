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

// Series is a series resource as the automation service models it.
// Lookup returns it populated; AddSeries sends it back with the
// acquisition fields filled in.
type Series struct {
	ID               int64          `json:"id,omitempty"`
	Title            string         `json:"title"`
	TitleSlug        string         `json:"titleSlug"`
	TvdbID           int64          `json:"tvdbId"`
	Year             int            `json:"year,omitempty"`
	Overview         string         `json:"overview,omitempty"`
	SeriesType       string         `json:"seriesType,omitempty"`
	Seasons          []SeriesSeason `json:"seasons,omitempty"`
	QualityProfileID int            `json:"qualityProfileId,omitempty"`
	RootFolderPath   string         `json:"rootFolderPath,omitempty"`
	Monitored        bool           `json:"monitored"`
	SeasonFolder     bool           `json:"seasonFolder"`
	AddOptions       *AddOptions    `json:"addOptions,omitempty"`
}

// SeriesSeason is a season entry in a series resource.
type SeriesSeason struct {
	SeasonNumber int  `json:"seasonNumber"`
	Monitored    bool `json:"monitored"`
}

// AddOptions controls what the service does right after an add.
type AddOptions struct {
	SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
}

// Type maps the service's series type onto ours. Anything it considers
// irregular enough to not trust episode numbering counts as daily.
func (s *Series) Type() media.SeriesType {
	if s.SeriesType == "daily" {
		return media.SeriesDaily
	}
	return media.SeriesStandard
}

// MonitoredEpisode is one episode the service monitors. The calendar
// endpoint embeds the owning series; the per-series episode list leaves
// Series nil.
type MonitoredEpisode struct {
	ID            int64     `json:"id"`
	SeriesID      int64     `json:"seriesId"`
	TvdbID        int64     `json:"tvdbId,omitempty"`
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodeNumber int       `json:"episodeNumber"`
	Title         string    `json:"title"`
	Overview      string    `json:"overview,omitempty"`
	AirDateUTC    time.Time `json:"airDateUtc"`
	HasFile       bool      `json:"hasFile"`
	Monitored     bool      `json:"monitored"`
	Series        *Series   `json:"series,omitempty"`
}

// SeriesClient talks to the series automation service.
type SeriesClient struct {
	api              *apiClient
	qualityProfileID int
	rootFolder       string
}

// NewSeriesClient creates a series automation client. qualityProfileID
// and rootFolder are applied to every add.
func NewSeriesClient(baseURL, apiKey string, qualityProfileID int, rootFolder string, log *slog.Logger, opts ...Option) *SeriesClient {
	return &SeriesClient{
		api:              newAPIClient(baseURL, apiKey, "series-automation", log, opts...),
		qualityProfileID: qualityProfileID,
		rootFolder:       rootFolder,
	}
}

// Status reports the service's identity; used as a connectivity check.
func (c *SeriesClient) Status(ctx context.Context) (*SystemStatus, error) {
	return c.api.status(ctx)
}

// Calendar returns the episodes airing inside the date range.
func (c *SeriesClient) Calendar(ctx context.Context, r media.DateRange) ([]MonitoredEpisode, error) {
	params := url.Values{}
	params.Set("start", r.From.Format("2006-01-02"))
	params.Set("end", r.To.Format("2006-01-02"))
	params.Set("includeSeries", "true")

	var episodes []MonitoredEpisode
	if err := c.api.get(ctx, "/api/v3/calendar", params, &episodes); err != nil {
		return nil, fmt.Errorf("series calendar: %w", err)
	}
	return episodes, nil
}

// LookupByLegacyID finds the series candidate to add, keyed by the
// legacy TV database ID. This is the only lookup the service accepts
// reliably, which is why admission rejects TV submissions without one.
func (c *SeriesClient) LookupByLegacyID(ctx context.Context, legacyID int64) (*Series, error) {
	params := url.Values{}
	params.Set("term", "tvdb:"+strconv.FormatInt(legacyID, 10))

	var results []Series
	if err := c.api.get(ctx, "/api/v3/series/lookup", params, &results); err != nil {
		return nil, fmt.Errorf("series lookup tvdb:%d: %w", legacyID, err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

// AddSeries registers the series with the service, monitored but
// without an automatic search; the caller triggers per-episode searches
// for exactly the episodes it wants.
func (c *SeriesClient) AddSeries(ctx context.Context, s *Series) (*Series, error) {
	s.QualityProfileID = c.qualityProfileID
	s.RootFolderPath = c.rootFolder
	s.Monitored = true
	s.SeasonFolder = true
	s.AddOptions = &AddOptions{SearchForMissingEpisodes: false}

	var added Series
	if err := c.api.post(ctx, "/api/v3/series", s, &added); err != nil {
		return nil, fmt.Errorf("add series %q: %w", s.Title, err)
	}
	return &added, nil
}

// Episodes returns every episode the service knows for a series.
func (c *SeriesClient) Episodes(ctx context.Context, seriesID int64) ([]MonitoredEpisode, error) {
	params := url.Values{}
	params.Set("seriesId", strconv.FormatInt(seriesID, 10))

	var episodes []MonitoredEpisode
	if err := c.api.get(ctx, "/api/v3/episode", params, &episodes); err != nil {
		return nil, fmt.Errorf("episodes for series %d: %w", seriesID, err)
	}
	return episodes, nil
}

// SearchEpisodes queues an acquisition search for the given episode
// IDs.
func (c *SeriesClient) SearchEpisodes(ctx context.Context, episodeIDs []int64) error {
	if len(episodeIDs) == 0 {
		return nil
	}

	cmd := struct {
		Name       string  `json:"name"`
		EpisodeIDs []int64 `json:"episodeIds"`
	}{Name: "EpisodeSearch", EpisodeIDs: episodeIDs}

	if err := c.api.post(ctx, "/api/v3/command", cmd, nil); err != nil {
		return fmt.Errorf("search %d episodes: %w", len(episodeIDs), err)
	}
	return nil
}
