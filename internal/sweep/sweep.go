// Package sweep promotes requests to available once their media lands
// in the library.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/notify"
	"github.com/leleasley/lemedia/internal/request"
)

const defaultInterval = 30 * time.Minute

// Checker answers library availability.
type Checker interface {
	IsEpisodeAvailable(ctx context.Context, q availability.EpisodeQuery) (availability.Result, error)
	IsMovieAvailable(ctx context.Context, q availability.MovieQuery) (availability.Result, error)
}

// Store is the slice of the request store the sweeper needs.
type Store interface {
	List(ctx context.Context, f request.Filter) ([]*request.Record, error)
	UpdateStatus(ctx context.Context, id string, status request.Status) error
}

// Notifier receives promotion events.
type Notifier interface {
	Emit(e notify.Event)
}

// sweepStatuses are the states a request can be promoted out of.
var sweepStatuses = []request.Status{
	request.StatusPending,
	request.StatusQueued,
	request.StatusSubmitted,
	request.StatusDownloading,
}

// Sweeper re-checks open requests against the library and promotes the
// ones whose media has arrived.
type Sweeper struct {
	store    Store
	checker  Checker
	notifier Notifier
	interval time.Duration
	log      *slog.Logger
}

// New creates a sweeper. Interval <= 0 falls back to the default.
func New(store Store, checker Checker, notifier Notifier, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		store:    store,
		checker:  checker,
		notifier: notifier,
		interval: interval,
		log:      log.With("component", "sweep"),
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass over all open requests and returns how many were
// promoted. A failed availability check skips the record, never the
// whole pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	promoted := 0

	for _, status := range sweepStatuses {
		st := status
		records, err := s.store.List(ctx, request.Filter{Status: &st})
		if err != nil {
			return promoted, fmt.Errorf("list %s requests: %w", status, err)
		}

		for _, rec := range records {
			available, err := s.recordAvailable(ctx, rec)
			if err != nil {
				s.log.Warn("availability check failed", "request_id", rec.ID, "error", err)
				continue
			}
			if !available {
				continue
			}

			if err := s.store.UpdateStatus(ctx, rec.ID, request.StatusAvailable); err != nil {
				s.log.Error("promote request", "request_id", rec.ID, "error", err)
				continue
			}
			promoted++
			s.log.Info("request available", "request_id", rec.ID,
				"media_type", rec.Subject.Type, "title", rec.Subject.Title)
			s.notifier.Emit(notify.NewEvent(notify.RequestAvailable, rec.ID, rec.Subject, ""))
		}
	}

	s.log.Debug("sweep complete", "promoted", promoted, "duration_ms", time.Since(start).Milliseconds())
	return promoted, nil
}

// recordAvailable reports whether everything the request covers is in
// the library. A TV request without episode items (a pending
// placeholder) cannot be decided and stays put.
func (s *Sweeper) recordAvailable(ctx context.Context, rec *request.Record) (bool, error) {
	if rec.Subject.Type == media.TypeMovie {
		res, err := s.checker.IsMovieAvailable(ctx, availability.MovieQuery{
			CatalogID: rec.Subject.CatalogID,
			Title:     rec.Subject.Title,
		})
		if err != nil {
			return false, err
		}
		return res.Available, nil
	}

	checked := 0
	for _, it := range rec.Items {
		if it.SeasonNumber == nil || it.EpisodeNumber == nil {
			continue
		}
		res, err := s.checker.IsEpisodeAvailable(ctx, availability.EpisodeQuery{
			CatalogID:   rec.Subject.CatalogID,
			LegacyID:    rec.Subject.LegacyID,
			Season:      *it.SeasonNumber,
			Episode:     *it.EpisodeNumber,
			SeriesTitle: rec.Subject.Title,
		})
		if err != nil {
			return false, err
		}
		if !res.Available {
			return false, nil
		}
		checked++
	}
	return checked > 0, nil
}
