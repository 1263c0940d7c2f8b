package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/notify"
)

// EpisodeChecker is the slice of the availability checker admission
// needs to compute wanted-episode deltas.
type EpisodeChecker interface {
	IsEpisodeAvailable(ctx context.Context, q availability.EpisodeQuery) (availability.Result, error)
}

// SeriesAutomation is the series acquisition service.
type SeriesAutomation interface {
	LookupByLegacyID(ctx context.Context, legacyID int64) (*automation.Series, error)
	AddSeries(ctx context.Context, s *automation.Series) (*automation.Series, error)
	Episodes(ctx context.Context, seriesID int64) ([]automation.MonitoredEpisode, error)
	SearchEpisodes(ctx context.Context, episodeIDs []int64) error
}

// MovieAutomation is the movie acquisition service.
type MovieAutomation interface {
	LookupByCatalogID(ctx context.Context, catalogID int64) (*automation.MonitoredMovie, error)
	AddMovie(ctx context.Context, m *automation.MonitoredMovie) (*automation.MonitoredMovie, error)
	SearchMovie(ctx context.Context, movieID int64) error
}

// Notifier receives lifecycle events. Emission must never block.
type Notifier interface {
	Emit(e notify.Event)
}

// QuotaPolicy is the rolling-quota configuration applied to
// non-privileged requesters. Zero limits disable the quota.
type QuotaPolicy struct {
	MovieLimit int
	MovieDays  int
	TVLimit    int
	TVDays     int
}

// For returns the limit and window applying to one media kind.
func (p QuotaPolicy) For(kind media.Type) (limit, windowDays int) {
	if kind == media.TypeTV {
		return p.TVLimit, p.TVDays
	}
	return p.MovieLimit, p.MovieDays
}

// Controller admits new requests. All decisions for one subject run
// under that subject's lock: the existing-request check and the record
// creation are atomic with respect to other admissions for the same
// subject, while different subjects proceed in parallel.
type Controller struct {
	store    *Store
	checker  EpisodeChecker
	series   SeriesAutomation
	movies   MovieAutomation
	notifier Notifier
	quota    QuotaPolicy
	locks    *keyedMutex
	log      *slog.Logger
}

// NewController creates an admission controller. The automation clients
// may be nil when the corresponding service is not configured;
// privileged submissions for that kind then fail cleanly.
func NewController(store *Store, checker EpisodeChecker, series SeriesAutomation, movies MovieAutomation, notifier Notifier, quota QuotaPolicy, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = notify.New(log)
	}
	return &Controller{
		store:    store,
		checker:  checker,
		series:   series,
		movies:   movies,
		notifier: notifier,
		quota:    quota,
		locks:    newKeyedMutex(),
		log:      log.With("component", "admission"),
	}
}

func subjectKey(s media.Subject) string {
	return string(s.Type) + ":" + strconv.FormatInt(s.CatalogID, 10)
}

// Submit admits one request. Returns the created record, or a typed
// rejection: *ConflictError when an active request already covers the
// subject, *QuotaError when the requester's rolling quota is exhausted.
// Input validation happens before the subject lock is taken.
func (c *Controller) Submit(ctx context.Context, subject media.Subject, requester Requester, sel *EpisodeSelector) (*Record, error) {
	if !subject.Type.Valid() {
		return nil, fmt.Errorf("unknown media type %q", subject.Type)
	}
	if subject.CatalogID == 0 {
		return nil, errors.New("catalog id is required")
	}
	if requester.Name == "" {
		return nil, errors.New("requester name is required")
	}
	if subject.Type == media.TypeTV && subject.LegacyID == 0 {
		return nil, ErrLegacyIDRequired
	}

	unlock := c.locks.lock(subjectKey(subject))
	defer unlock()

	existing, err := c.store.FindActive(ctx, subject.CatalogID, subject.Type)
	if err != nil {
		return nil, fmt.Errorf("find active request: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{ExistingID: existing.ID, Status: existing.Status}
	}

	if !requester.Privileged {
		limit, days := c.quota.For(subject.Type)
		qs, err := c.store.QuotaStatus(ctx, requester.Name, subject.Type, limit, days)
		if err != nil {
			return nil, fmt.Errorf("quota status: %w", err)
		}
		if qs.Exhausted() {
			return nil, &QuotaError{Limit: qs.Limit, Remaining: qs.Remaining, WindowDays: qs.WindowDays}
		}
		return c.admitPending(ctx, subject, requester)
	}

	if subject.Type == media.TypeMovie {
		return c.acquireMovie(ctx, subject, requester)
	}
	return c.acquireSeries(ctx, subject, requester, sel)
}

// admitPending records a request awaiting approval: status pending, one
// placeholder item with no downstream reference yet.
func (c *Controller) admitPending(ctx context.Context, subject media.Subject, requester Requester) (*Record, error) {
	rec := &Record{
		Subject:     subject,
		RequestedBy: requester.Name,
		Status:      StatusPending,
	}
	items := []Item{{Provider: providerFor(subject.Type)}}

	if err := c.store.CreateWithItems(ctx, rec, items); err != nil {
		return nil, fmt.Errorf("create pending request: %w", err)
	}

	c.log.Info("request pending",
		"request_id", rec.ID, "media_type", subject.Type, "catalog_id", subject.CatalogID, "user", requester.Name)
	c.notifier.Emit(notify.NewEvent(notify.RequestPending, rec.ID, subject, ""))
	return rec, nil
}

// acquireMovie is the privileged movie path: look the title up, add it
// to the automation service, and trigger the search.
func (c *Controller) acquireMovie(ctx context.Context, subject media.Subject, requester Requester) (*Record, error) {
	if c.movies == nil {
		return nil, fmt.Errorf("movie: %w", ErrNotConfigured)
	}

	movie, err := c.movies.LookupByCatalogID(ctx, subject.CatalogID)
	if err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("movie lookup: %w", err))
	}
	added, err := c.movies.AddMovie(ctx, movie)
	if err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("movie add: %w", err))
	}
	if err := c.movies.SearchMovie(ctx, added.ID); err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("movie search: %w", err))
	}

	downstreamID := strconv.FormatInt(added.ID, 10)
	rec := &Record{
		Subject:     subject,
		RequestedBy: requester.Name,
		Status:      StatusSubmitted,
	}
	items := []Item{{Provider: ProviderMovie, ProviderItemID: &downstreamID}}

	if err := c.store.CreateWithItems(ctx, rec, items); err != nil {
		return nil, fmt.Errorf("create submitted request: %w", err)
	}

	c.log.Info("request submitted",
		"request_id", rec.ID, "media_type", subject.Type, "catalog_id", subject.CatalogID, "downstream_id", downstreamID)
	c.notifier.Emit(notify.NewEvent(notify.RequestSubmitted, rec.ID, subject, ""))
	return rec, nil
}

// acquireSeries is the privileged TV path: add the series, diff the
// wanted episodes against the library and against episodes already
// covered by active requests, then search for exactly that delta.
func (c *Controller) acquireSeries(ctx context.Context, subject media.Subject, requester Requester, sel *EpisodeSelector) (*Record, error) {
	if c.series == nil {
		return nil, fmt.Errorf("series: %w", ErrNotConfigured)
	}

	candidate, err := c.series.LookupByLegacyID(ctx, subject.LegacyID)
	if err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("series lookup: %w", err))
	}
	seriesType := candidate.Type()

	added, err := c.series.AddSeries(ctx, candidate)
	if err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("series add: %w", err))
	}

	episodes, err := c.series.Episodes(ctx, added.ID)
	if err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("series episodes: %w", err))
	}

	requested, err := c.store.ActiveEpisodeKeys(ctx, subject.CatalogID)
	if err != nil {
		return nil, fmt.Errorf("active episode keys: %w", err)
	}

	wanted := c.wantedEpisodes(ctx, subject, seriesType, episodes, requested, sel)
	if len(wanted) == 0 {
		return c.admitAlreadyCovered(ctx, subject, requester)
	}

	ids := make([]int64, len(wanted))
	for i, ep := range wanted {
		ids[i] = ep.ID
	}
	if err := c.series.SearchEpisodes(ctx, ids); err != nil {
		return nil, c.failDownstream(ctx, subject, requester, fmt.Errorf("episode search: %w", err))
	}

	rec := &Record{
		Subject:     subject,
		RequestedBy: requester.Name,
		Status:      StatusSubmitted,
	}
	items := make([]Item, len(wanted))
	for i, ep := range wanted {
		downstreamID := strconv.FormatInt(ep.ID, 10)
		season, episode := ep.SeasonNumber, ep.EpisodeNumber
		items[i] = Item{
			Provider:       ProviderSeries,
			ProviderItemID: &downstreamID,
			SeasonNumber:   &season,
			EpisodeNumber:  &episode,
		}
	}

	if err := c.store.CreateWithItems(ctx, rec, items); err != nil {
		return nil, fmt.Errorf("create submitted request: %w", err)
	}

	c.log.Info("request submitted",
		"request_id", rec.ID, "media_type", subject.Type, "catalog_id", subject.CatalogID, "episodes", len(wanted))
	c.notifier.Emit(notify.NewEvent(notify.RequestSubmitted, rec.ID, subject, ""))
	return rec, nil
}

// wantedEpisodes filters the series' episode list down to the delta
// worth searching for: selected, monitored, not yet downloaded by the
// service, not already in the library, and not covered by another
// active request. A failed availability check counts as "not in the
// library" so a flaky media server cannot silently shrink a request.
func (c *Controller) wantedEpisodes(ctx context.Context, subject media.Subject, seriesType media.SeriesType, episodes []automation.MonitoredEpisode, requested map[string]bool, sel *EpisodeSelector) []automation.MonitoredEpisode {
	var wanted []automation.MonitoredEpisode
	for _, ep := range episodes {
		if !ep.Monitored || ep.HasFile {
			continue
		}
		if !sel.wants(ep.SeasonNumber) {
			continue
		}
		if requested[EpisodeKey(ep.SeasonNumber, ep.EpisodeNumber)] {
			continue
		}

		if c.checker != nil {
			res, err := c.checker.IsEpisodeAvailable(ctx, availability.EpisodeQuery{
				CatalogID:       subject.CatalogID,
				LegacyID:        subject.LegacyID,
				LegacyEpisodeID: ep.TvdbID,
				Season:          ep.SeasonNumber,
				Episode:         ep.EpisodeNumber,
				SeriesTitle:     subject.Title,
				AirDate:         ep.AirDateUTC,
				SeriesType:      seriesType,
			})
			if err != nil {
				c.log.Warn("availability check failed, assuming missing",
					"catalog_id", subject.CatalogID, "season", ep.SeasonNumber, "episode", ep.EpisodeNumber, "error", err)
			} else if res.Available {
				continue
			}
		}

		wanted = append(wanted, ep)
	}
	return wanted
}

// admitAlreadyCovered records that nothing was left to acquire: every
// selected episode is in the library or already actively requested.
func (c *Controller) admitAlreadyCovered(ctx context.Context, subject media.Subject, requester Requester) (*Record, error) {
	rec := &Record{
		Subject:     subject,
		RequestedBy: requester.Name,
		Status:      StatusAlreadyExists,
	}
	if err := c.store.CreateWithItems(ctx, rec, nil); err != nil {
		return nil, fmt.Errorf("create already-covered request: %w", err)
	}

	c.log.Info("request already covered",
		"request_id", rec.ID, "media_type", subject.Type, "catalog_id", subject.CatalogID)
	c.notifier.Emit(notify.NewEvent(notify.RequestFailedExists, rec.ID, subject,
		"all selected episodes are already available or requested"))
	return rec, nil
}

// failDownstream persists a failed-request marker, classifies the
// failure via the automation client's structured Kind, emits the
// matching event, and hands the original error back to the caller.
// Marker statuses are terminal, so a later resubmission is not blocked.
func (c *Controller) failDownstream(ctx context.Context, subject media.Subject, requester Requester, err error) error {
	status := StatusFailed
	event := notify.RequestFailed

	var se *automation.StatusError
	if errors.As(err, &se) && se.Kind == automation.KindAlreadyExists {
		status = StatusAlreadyExists
		event = notify.RequestFailedExists
	}

	marker := &Record{
		Subject:     subject,
		RequestedBy: requester.Name,
		Status:      status,
	}
	if cerr := c.store.CreateWithItems(ctx, marker, nil); cerr != nil {
		c.log.Error("persist failure marker", "catalog_id", subject.CatalogID, "error", cerr)
	}

	c.log.Warn("downstream acquisition failed",
		"request_id", marker.ID, "media_type", subject.Type, "catalog_id", subject.CatalogID,
		"status", status, "error", err)
	c.notifier.Emit(notify.NewEvent(event, marker.ID, subject, err.Error()))
	return err
}

func providerFor(kind media.Type) string {
	if kind == media.TypeTV {
		return ProviderSeries
	}
	return ProviderMovie
}
