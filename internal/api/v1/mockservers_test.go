//go:build integration

package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/leleasley/lemedia/internal/automation"
)

// Fake downstream services for the integration tests. Paths, query
// parameters, and JSON shapes mirror what the production clients send
// and expect, so the clients run unmodified against them.

const testAPIKey = "integration-key"

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requireKey rejects requests that do not carry the test API key.
func requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// fakeSeriesService is an in-memory series automation service.
type fakeSeriesService struct {
	mu sync.Mutex

	nextID int64
	known  map[int64]*seriesFixture // keyed by legacy ID

	added    []automation.Series
	commands []episodeSearchCommand

	addStatus int // non-zero forces this status on POST /series
	addBody   string

	srv *httptest.Server
}

type seriesFixture struct {
	resource automation.Series
	episodes []automation.MonitoredEpisode
	addedID  int64
}

type episodeSearchCommand struct {
	Name       string  `json:"name"`
	EpisodeIDs []int64 `json:"episodeIds"`
}

func newFakeSeriesService() *fakeSeriesService {
	return &fakeSeriesService{nextID: 100, known: make(map[int64]*seriesFixture)}
}

// WithSeries registers a lookup candidate and the episodes the service
// reports for it once it has been added.
func (f *fakeSeriesService) WithSeries(legacyID int64, title, seriesType string, episodes ...automation.MonitoredEpisode) *fakeSeriesService {
	f.known[legacyID] = &seriesFixture{
		resource: automation.Series{
			Title:      title,
			TitleSlug:  strings.ToLower(strings.ReplaceAll(title, " ", "-")),
			TvdbID:     legacyID,
			SeriesType: seriesType,
		},
		episodes: episodes,
	}
	return f
}

// WithAddFailure makes POST /series answer with the given status and
// body instead of accepting the add.
func (f *fakeSeriesService) WithAddFailure(status int, body string) *fakeSeriesService {
	f.addStatus = status
	f.addBody = body
	return f
}

func (f *fakeSeriesService) Build() *fakeSeriesService {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/system/status", requireKey(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]string{"appName": "series-automation", "version": "4.0.2"})
	}))
	mux.HandleFunc("GET /api/v3/series/lookup", requireKey(f.handleLookup))
	mux.HandleFunc("POST /api/v3/series", requireKey(f.handleAdd))
	mux.HandleFunc("GET /api/v3/episode", requireKey(f.handleEpisodes))
	mux.HandleFunc("POST /api/v3/command", requireKey(f.handleCommand))
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeSeriesService) URL() string { return f.srv.URL }
func (f *fakeSeriesService) Close()      { f.srv.Close() }

func (f *fakeSeriesService) handleLookup(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	legacyID, _ := strconv.ParseInt(strings.TrimPrefix(term, "tvdb:"), 10, 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	fix, ok := f.known[legacyID]
	if !ok {
		writeBody(w, http.StatusOK, []automation.Series{})
		return
	}
	writeBody(w, http.StatusOK, []automation.Series{fix.resource})
}

func (f *fakeSeriesService) handleAdd(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.addStatus)
		_, _ = w.Write([]byte(f.addBody))
		return
	}

	var s automation.Series
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.nextID++
	s.ID = f.nextID
	f.added = append(f.added, s)
	if fix, ok := f.known[s.TvdbID]; ok {
		fix.addedID = s.ID
	}
	writeBody(w, http.StatusCreated, s)
}

func (f *fakeSeriesService) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	seriesID, _ := strconv.ParseInt(r.URL.Query().Get("seriesId"), 10, 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fix := range f.known {
		if fix.addedID != seriesID {
			continue
		}
		eps := make([]automation.MonitoredEpisode, len(fix.episodes))
		for i, e := range fix.episodes {
			e.SeriesID = seriesID
			eps[i] = e
		}
		writeBody(w, http.StatusOK, eps)
		return
	}
	writeBody(w, http.StatusOK, []automation.MonitoredEpisode{})
}

func (f *fakeSeriesService) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd episodeSearchCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	writeBody(w, http.StatusCreated, map[string]any{"id": 1, "name": cmd.Name})
}

// addedSeries returns the series accepted by POST /series.
func (f *fakeSeriesService) addedSeries() []automation.Series {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]automation.Series(nil), f.added...)
}

// searchedEpisodes returns the episode ID batches queued for search.
func (f *fakeSeriesService) searchedEpisodes() [][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]int64
	for _, c := range f.commands {
		if c.Name == "EpisodeSearch" {
			out = append(out, c.EpisodeIDs)
		}
	}
	return out
}

// fakeMovieService is an in-memory movie automation service.
type fakeMovieService struct {
	mu sync.Mutex

	nextID int64
	known  map[int64]automation.MonitoredMovie // keyed by catalog ID

	added    []automation.MonitoredMovie
	commands []movieSearchCommand

	addStatus int
	addBody   string

	srv *httptest.Server
}

type movieSearchCommand struct {
	Name     string  `json:"name"`
	MovieIDs []int64 `json:"movieIds"`
}

func newFakeMovieService() *fakeMovieService {
	return &fakeMovieService{nextID: 200, known: make(map[int64]automation.MonitoredMovie)}
}

// WithMovie registers a lookup candidate.
func (f *fakeMovieService) WithMovie(catalogID int64, title string, year int) *fakeMovieService {
	f.known[catalogID] = automation.MonitoredMovie{
		Title:     title,
		TitleSlug: strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		TmdbID:    catalogID,
		Year:      year,
	}
	return f
}

// WithAddFailure makes POST /movie answer with the given status and
// body instead of accepting the add.
func (f *fakeMovieService) WithAddFailure(status int, body string) *fakeMovieService {
	f.addStatus = status
	f.addBody = body
	return f
}

func (f *fakeMovieService) Build() *fakeMovieService {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/system/status", requireKey(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]string{"appName": "movie-automation", "version": "5.14.0"})
	}))
	mux.HandleFunc("GET /api/v3/movie/lookup/tmdb", requireKey(f.handleLookup))
	mux.HandleFunc("POST /api/v3/movie", requireKey(f.handleAdd))
	mux.HandleFunc("POST /api/v3/command", requireKey(f.handleCommand))
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeMovieService) URL() string { return f.srv.URL }
func (f *fakeMovieService) Close()      { f.srv.Close() }

func (f *fakeMovieService) handleLookup(w http.ResponseWriter, r *http.Request) {
	catalogID, _ := strconv.ParseInt(r.URL.Query().Get("tmdbId"), 10, 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.known[catalogID]
	if !ok {
		// Unknown titles come back as an empty object; the client treats
		// a zero tmdbId as not found.
		writeBody(w, http.StatusOK, map[string]any{})
		return
	}
	writeBody(w, http.StatusOK, m)
}

func (f *fakeMovieService) handleAdd(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.addStatus)
		_, _ = w.Write([]byte(f.addBody))
		return
	}

	var m automation.MonitoredMovie
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.nextID++
	m.ID = f.nextID
	f.added = append(f.added, m)
	writeBody(w, http.StatusCreated, m)
}

func (f *fakeMovieService) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd movieSearchCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	writeBody(w, http.StatusCreated, map[string]any{"id": 2, "name": cmd.Name})
}

// addedMovies returns the movies accepted by POST /movie.
func (f *fakeMovieService) addedMovies() []automation.MonitoredMovie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]automation.MonitoredMovie(nil), f.added...)
}

// searchedMovies returns the downstream movie IDs queued for search.
func (f *fakeMovieService) searchedMovies() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, c := range f.commands {
		if c.Name == "MoviesSearch" {
			out = append(out, c.MovieIDs...)
		}
	}
	return out
}

// newFakeMediaServer serves just enough of the media server API for
// connection checks.
func newFakeMediaServer(name, version string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /System/Info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeBody(w, http.StatusOK, map[string]string{"ServerName": name, "Version": version})
	})
	return httptest.NewServer(mux)
}
