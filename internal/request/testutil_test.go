package request

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/migrations"
	"github.com/leleasley/lemedia/internal/notify"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every connection to :memory: is a separate database; one
	// connection keeps concurrent tests on shared state.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}

func movieSubject(catalogID int64, title string) media.Subject {
	return media.Subject{CatalogID: catalogID, Type: media.TypeMovie, Title: title}
}

func tvSubject(catalogID, legacyID int64, title string) media.Subject {
	return media.Subject{CatalogID: catalogID, LegacyID: legacyID, Type: media.TypeTV, Title: title}
}

// fakeSeriesAutomation scripts the series service for admission tests.
type fakeSeriesAutomation struct {
	mu sync.Mutex

	candidate *automation.Series
	episodes  []automation.MonitoredEpisode

	lookupErr   error
	addErr      error
	episodesErr error
	searchErr   error

	addCalls int
	searched [][]int64
}

func (f *fakeSeriesAutomation) LookupByLegacyID(_ context.Context, legacyID int64) (*automation.Series, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.candidate == nil {
		return nil, automation.ErrNotFound
	}
	s := *f.candidate
	s.TvdbID = legacyID
	return &s, nil
}

func (f *fakeSeriesAutomation) AddSeries(_ context.Context, s *automation.Series) (*automation.Series, error) {
	f.mu.Lock()
	f.addCalls++
	f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	added := *s
	added.ID = 7
	return &added, nil
}

func (f *fakeSeriesAutomation) Episodes(_ context.Context, _ int64) ([]automation.MonitoredEpisode, error) {
	if f.episodesErr != nil {
		return nil, f.episodesErr
	}
	return f.episodes, nil
}

func (f *fakeSeriesAutomation) SearchEpisodes(_ context.Context, ids []int64) error {
	if f.searchErr != nil {
		return f.searchErr
	}
	f.mu.Lock()
	f.searched = append(f.searched, ids)
	f.mu.Unlock()
	return nil
}

// fakeMovieAutomation scripts the movie service for admission tests.
type fakeMovieAutomation struct {
	mu sync.Mutex

	lookupErr error
	addErr    error
	searchErr error

	addCalls int
	searched []int64
}

func (f *fakeMovieAutomation) LookupByCatalogID(_ context.Context, catalogID int64) (*automation.MonitoredMovie, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return &automation.MonitoredMovie{Title: "Looked Up", TmdbID: catalogID}, nil
}

func (f *fakeMovieAutomation) AddMovie(_ context.Context, m *automation.MonitoredMovie) (*automation.MonitoredMovie, error) {
	f.mu.Lock()
	f.addCalls++
	f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	added := *m
	added.ID = 55
	return &added, nil
}

func (f *fakeMovieAutomation) SearchMovie(_ context.Context, movieID int64) error {
	if f.searchErr != nil {
		return f.searchErr
	}
	f.mu.Lock()
	f.searched = append(f.searched, movieID)
	f.mu.Unlock()
	return nil
}

// fakeChecker answers availability from a fixed episode-key set.
type fakeChecker struct {
	available map[string]bool
	err       error
}

func (f *fakeChecker) IsEpisodeAvailable(_ context.Context, q availability.EpisodeQuery) (availability.Result, error) {
	if f.err != nil {
		return availability.Result{}, f.err
	}
	key := EpisodeKey(q.Season, q.Episode)
	return availability.Result{Available: f.available[key], ItemID: "item-" + key}, nil
}

// captureNotifier records emitted events.
type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureNotifier) Emit(e notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureNotifier) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Name
	}
	return out
}
