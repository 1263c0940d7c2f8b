package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/catalog"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/request"
	"github.com/leleasley/lemedia/pkg/title"
)

const defaultSourceTimeout = 15 * time.Second

// CatalogSource provides upcoming releases and per-title detail.
type CatalogSource interface {
	Discover(ctx context.Context, r media.DateRange, kind media.Type) ([]catalog.Release, error)
	Details(ctx context.Context, kind media.Type, id int64) (*catalog.Details, error)
}

// SeriesCalendar provides the series automation service's monitored
// episodes for a date range.
type SeriesCalendar interface {
	Calendar(ctx context.Context, r media.DateRange) ([]automation.MonitoredEpisode, error)
}

// MovieCalendar provides the movie automation service's monitored
// movies for a date range.
type MovieCalendar interface {
	Calendar(ctx context.Context, r media.DateRange) ([]automation.MonitoredMovie, error)
}

// RequestSource reads locally stored requests.
type RequestSource interface {
	List(ctx context.Context, f request.Filter) ([]*request.Record, error)
}

// Availability answers library availability during enrichment.
type Availability interface {
	IsEpisodeAvailable(ctx context.Context, q availability.EpisodeQuery) (availability.Result, error)
	IsMovieAvailable(ctx context.Context, q availability.MovieQuery) (availability.Result, error)
}

// Options selects sources and enrichment for one aggregation pass.
type Options struct {
	Catalog   bool
	Series    bool
	Movies    bool
	Premieres bool
	Requests  bool
	Enrich    bool
}

// AllSources enables every source without enrichment.
func AllSources() Options {
	return Options{Catalog: true, Series: true, Movies: true, Premieres: true, Requests: true}
}

// Aggregator fans out to the event sources in parallel and merges their
// results. Any source may be nil; it is then skipped.
type Aggregator struct {
	catalog  CatalogSource
	series   SeriesCalendar
	movies   MovieCalendar
	requests RequestSource
	checker  Availability

	sourceTimeout time.Duration
	log           *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSourceTimeout bounds each individual source fetch.
func WithSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.sourceTimeout = d
	}
}

// NewAggregator creates a calendar aggregator.
func NewAggregator(cat CatalogSource, series SeriesCalendar, movies MovieCalendar, requests RequestSource, checker Availability, log *slog.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	a := &Aggregator{
		catalog:       cat,
		series:        series,
		movies:        movies,
		requests:      requests,
		checker:       checker,
		sourceTimeout: defaultSourceTimeout,
		log:           log.With("component", "calendar"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type sourceResult struct {
	source Source
	events []Event
	err    error
}

// Events aggregates all enabled sources for the range. Each source is
// awaited independently; a failure is logged, reported in the returned
// error slice, and excluded, never failing the aggregation as a whole.
// Results are sorted by date for presentation.
func (a *Aggregator) Events(ctx context.Context, r media.DateRange, opts Options) ([]Event, []error) {
	start := time.Now()

	type fetch struct {
		source  Source
		enabled bool
		run     func(context.Context) ([]Event, error)
	}
	fetches := []fetch{
		{SourceCatalog, opts.Catalog && a.catalog != nil,
			func(ctx context.Context) ([]Event, error) { return a.catalogEvents(ctx, r) }},
		{SourceSeries, opts.Series && a.series != nil,
			func(ctx context.Context) ([]Event, error) { return a.seriesEvents(ctx, r) }},
		{SourceMovies, opts.Movies && a.movies != nil,
			func(ctx context.Context) ([]Event, error) { return a.movieEvents(ctx, r) }},
		{SourcePremiere, opts.Premieres && a.catalog != nil && a.requests != nil,
			func(ctx context.Context) ([]Event, error) { return a.premiereEvents(ctx, r) }},
		{SourceRequest, opts.Requests && a.requests != nil,
			func(ctx context.Context) ([]Event, error) { return a.requestEvents(ctx, r) }},
	}

	results := make(chan sourceResult, len(fetches))
	var wg sync.WaitGroup

	for _, f := range fetches {
		if !f.enabled {
			continue
		}
		wg.Add(1)
		go func(f fetch) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()

			fetchStart := time.Now()
			events, err := f.run(sctx)
			if err != nil {
				a.log.Warn("calendar source failed", "source", f.source, "error", err,
					"duration_ms", time.Since(fetchStart).Milliseconds())
			} else {
				a.log.Debug("calendar source returned", "source", f.source, "events", len(events),
					"duration_ms", time.Since(fetchStart).Milliseconds())
			}
			results <- sourceResult{source: f.source, events: events, err: err}
		}(f)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []Event
	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.source, res.err))
			continue
		}
		all = append(all, res.events...)
	}

	all = dedupe(all)
	if opts.Enrich && a.checker != nil {
		a.enrich(ctx, all)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })

	a.log.Info("calendar aggregated", "events", len(all), "errors", len(errs),
		"duration_ms", time.Since(start).Milliseconds())
	return all, errs
}

func (a *Aggregator) catalogEvents(ctx context.Context, r media.DateRange) ([]Event, error) {
	releases, err := a.catalog.Discover(ctx, r, media.TypeMovie)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(releases))
	for _, rel := range releases {
		events = append(events, Event{
			ID:           movieEventID(rel.ID),
			Source:       SourceCatalog,
			Type:         media.TypeMovie,
			Title:        rel.Title,
			Date:         rel.Date(),
			Overview:     rel.Overview,
			PosterPath:   rel.PosterPath,
			BackdropPath: rel.BackdropPath,
			CatalogID:    rel.ID,
		})
	}
	return events, nil
}

func (a *Aggregator) seriesEvents(ctx context.Context, r media.DateRange) ([]Event, error) {
	episodes, err := a.series.Calendar(ctx, r)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(episodes))
	for _, ep := range episodes {
		e := Event{
			ID:       episodeEventID(ep.ID),
			Source:   SourceSeries,
			Type:     media.TypeTV,
			Title:    ep.Title,
			Date:     ep.AirDateUTC,
			Overview: ep.Overview,
			Season:   ep.SeasonNumber,
			Episode:  ep.EpisodeNumber,
		}
		if ep.Series != nil {
			e.Title = ep.Series.Title
			e.LegacyID = ep.Series.TvdbID
		}
		if ep.HasFile {
			available := true
			e.Available = &available
		}
		events = append(events, e)
	}
	return events, nil
}

func (a *Aggregator) movieEvents(ctx context.Context, r media.DateRange) ([]Event, error) {
	movies, err := a.movies.Calendar(ctx, r)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(movies))
	for _, m := range movies {
		id := movieEventID(m.TmdbID)
		if m.TmdbID == 0 {
			id = fmt.Sprintf("movie-auto-%d", m.ID)
		}
		e := Event{
			ID:        id,
			Source:    SourceMovies,
			Type:      media.TypeMovie,
			Title:     m.Title,
			Date:      m.ReleaseDate(),
			Overview:  m.Overview,
			CatalogID: m.TmdbID,
		}
		if m.HasFile {
			available := true
			e.Available = &available
		}
		events = append(events, e)
	}
	return events, nil
}

// premiereEvents surfaces season premieres of series the users track,
// meaning series with an active TV request.
func (a *Aggregator) premiereEvents(ctx context.Context, r media.DateRange) ([]Event, error) {
	tv := media.TypeTV
	records, err := a.requests.List(ctx, request.Filter{Type: &tv})
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var events []Event
	for _, rec := range records {
		if !rec.Status.Active() || seen[rec.Subject.CatalogID] {
			continue
		}
		seen[rec.Subject.CatalogID] = true

		details, err := a.catalog.Details(ctx, media.TypeTV, rec.Subject.CatalogID)
		if err != nil {
			a.log.Warn("premiere lookup failed", "catalog_id", rec.Subject.CatalogID, "error", err)
			continue
		}
		for _, season := range details.Seasons {
			premiere := season.PremiereDate()
			if premiere.IsZero() || !r.Contains(premiere) {
				continue
			}
			events = append(events, Event{
				ID:           premiereEventID(details.ID, season.SeasonNumber),
				Source:       SourcePremiere,
				Type:         media.TypeTV,
				Title:        details.Title,
				Date:         premiere,
				Overview:     details.Overview,
				PosterPath:   details.PosterPath,
				BackdropPath: details.BackdropPath,
				CatalogID:    details.ID,
				LegacyID:     rec.Subject.LegacyID,
				Season:       season.SeasonNumber,
			})
		}
	}
	return events, nil
}

func (a *Aggregator) requestEvents(ctx context.Context, r media.DateRange) ([]Event, error) {
	records, err := a.requests.List(ctx, request.Filter{})
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, rec := range records {
		if !r.Contains(rec.CreatedAt) {
			continue
		}
		events = append(events, Event{
			ID:        requestEventID(rec.ID),
			Source:    SourceRequest,
			Type:      rec.Subject.Type,
			Title:     rec.Subject.Title,
			Date:      rec.CreatedAt,
			CatalogID: rec.Subject.CatalogID,
			LegacyID:  rec.Subject.LegacyID,
			Status:    string(rec.Status),
		})
	}
	return events, nil
}

// dedupe merges movie-automation events into their catalog counterpart,
// matched by catalog ID or, lacking one, by normalized title and exact
// date. The catalog's metadata wins; the automation event only fills
// fields the catalog left empty, and is then dropped.
func dedupe(events []Event) []Event {
	byCatalogID := make(map[int64]int)
	byTitleDate := make(map[string]int)
	for i, e := range events {
		if e.Source != SourceCatalog || e.Type != media.TypeMovie {
			continue
		}
		if e.CatalogID != 0 {
			byCatalogID[e.CatalogID] = i
		}
		byTitleDate[titleDateKey(e.Title, e.Date)] = i
	}
	if len(byCatalogID) == 0 && len(byTitleDate) == 0 {
		return events
	}

	dropped := make(map[int]bool)
	for i, e := range events {
		if e.Source != SourceMovies {
			continue
		}
		target := -1
		if e.CatalogID != 0 {
			if j, ok := byCatalogID[e.CatalogID]; ok {
				target = j
			}
		} else if j, ok := byTitleDate[titleDateKey(e.Title, e.Date)]; ok {
			target = j
		}
		if target >= 0 {
			fillEmpty(&events[target], e)
			dropped[i] = true
		}
	}
	if len(dropped) == 0 {
		return events
	}

	out := make([]Event, 0, len(events)-len(dropped))
	for i, e := range events {
		if !dropped[i] {
			out = append(out, e)
		}
	}
	return out
}

func titleDateKey(t string, d time.Time) string {
	return title.Clean(t) + "|" + d.Format("2006-01-02")
}

func fillEmpty(dst *Event, src Event) {
	if dst.Overview == "" {
		dst.Overview = src.Overview
	}
	if dst.PosterPath == "" {
		dst.PosterPath = src.PosterPath
	}
	if dst.BackdropPath == "" {
		dst.BackdropPath = src.BackdropPath
	}
	if dst.LegacyID == 0 {
		dst.LegacyID = src.LegacyID
	}
	if dst.Available == nil {
		dst.Available = src.Available
	}
}
