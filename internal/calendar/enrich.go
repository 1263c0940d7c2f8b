package calendar

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/media"
)

// enrichWorkers bounds concurrent availability lookups per pass.
const enrichWorkers = 10

// enrich resolves library availability for each event in place. A
// failed lookup leaves the event's Available unset.
func (a *Aggregator) enrich(ctx context.Context, events []Event) {
	p := pool.New().WithMaxGoroutines(enrichWorkers)
	for i := range events {
		e := &events[i]
		p.Go(func() {
			if available, ok := a.lookupAvailability(ctx, e); ok {
				e.Available = &available
			}
		})
	}
	p.Wait()
}

func (a *Aggregator) lookupAvailability(ctx context.Context, e *Event) (available, ok bool) {
	switch e.Type {
	case media.TypeMovie:
		if e.CatalogID == 0 && e.Title == "" {
			return false, false
		}
		res, err := a.checker.IsMovieAvailable(ctx, availability.MovieQuery{
			CatalogID: e.CatalogID,
			Title:     e.Title,
		})
		if err != nil {
			a.log.Debug("movie enrichment failed", "event", e.ID, "error", err)
			return false, false
		}
		return res.Available, true

	case media.TypeTV:
		// Request event dates are creation dates, not air dates.
		if e.Source == SourceRequest {
			return false, false
		}
		res, err := a.checker.IsEpisodeAvailable(ctx, availability.EpisodeQuery{
			CatalogID:   e.CatalogID,
			LegacyID:    e.LegacyID,
			Season:      e.Season,
			Episode:     e.Episode,
			SeriesTitle: e.Title,
			AirDate:     e.Date,
		})
		if err != nil {
			a.log.Debug("episode enrichment failed", "event", e.ID, "error", err)
			return false, false
		}
		return res.Available, true
	}
	return false, false
}
