package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leleasley/lemedia/internal/media"
)

func TestMovieClient_Calendar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/calendar", r.URL.Path)
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("start"))

		_, _ = w.Write([]byte(`[
			{"id":3,"title":"Dune: Part Two","tmdbId":693134,
			 "inCinemas":"2024-03-01T00:00:00Z","hasFile":false,"monitored":true}
		]`))
	}))
	defer server.Close()

	client := NewMovieClient(server.URL, "test-key", 1, "/movies", nil)

	movies, err := client.Calendar(context.Background(), media.DateRange{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(693134), movies[0].TmdbID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), movies[0].ReleaseDate())
}

func TestMovieClient_LookupByCatalogID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/movie/lookup/tmdb", r.URL.Path)
		assert.Equal(t, "603", r.URL.Query().Get("tmdbId"))

		_, _ = w.Write([]byte(`{"title":"The Matrix","titleSlug":"the-matrix-603","tmdbId":603,"year":1999}`))
	}))
	defer server.Close()

	client := NewMovieClient(server.URL, "test-key", 1, "/movies", nil)

	movie, err := client.LookupByCatalogID(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", movie.Title)
	assert.Equal(t, int64(603), movie.TmdbID)
}

func TestMovieClient_LookupByCatalogID_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewMovieClient(server.URL, "test-key", 1, "/movies", nil)

	_, err := client.LookupByCatalogID(context.Background(), 99999999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMovieClient_AddMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/movie", r.URL.Path)

		var posted MonitoredMovie
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		assert.Equal(t, 2, posted.QualityProfileID)
		assert.Equal(t, "/movies", posted.RootFolderPath)
		assert.True(t, posted.Monitored)
		require.NotNil(t, posted.AddOptions)
		assert.False(t, posted.AddOptions.SearchForMovie)

		posted.ID = 55
		_ = json.NewEncoder(w).Encode(posted)
	}))
	defer server.Close()

	client := NewMovieClient(server.URL, "test-key", 2, "/movies", nil)

	added, err := client.AddMovie(context.Background(), &MonitoredMovie{Title: "The Matrix", TmdbID: 603})
	require.NoError(t, err)
	assert.Equal(t, int64(55), added.ID)
}

func TestMovieClient_AddMovie_GenericFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database is locked"}`))
	}))
	defer server.Close()

	client := NewMovieClient(server.URL, "test-key", 2, "/movies", nil)

	_, err := client.AddMovie(context.Background(), &MonitoredMovie{Title: "The Matrix", TmdbID: 603})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindGeneric, se.Kind)
	assert.Equal(t, "database is locked", se.Message)
}

func TestMovieClient_SearchMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/command", r.URL.Path)

		var cmd struct {
			Name     string  `json:"name"`
			MovieIDs []int64 `json:"movieIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cmd))
		assert.Equal(t, "MoviesSearch", cmd.Name)
		assert.Equal(t, []int64{55}, cmd.MovieIDs)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":901,"status":"queued"}`))
	}))
	defer server.Close()

	client := NewMovieClient(server.URL, "test-key", 2, "/movies", nil)
	require.NoError(t, client.SearchMovie(context.Background(), 55))
}

func TestMonitoredMovie_ReleaseDate_Fallback(t *testing.T) {
	digital := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	physical := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	m := &MonitoredMovie{DigitalRelease: digital, PhysicalRelease: physical}
	assert.Equal(t, digital, m.ReleaseDate(), "digital wins when no theatrical date")

	assert.True(t, (&MonitoredMovie{}).ReleaseDate().IsZero())
}
