//go:build integration

package v1

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/mediaserver"
	"github.com/leleasley/lemedia/internal/migrations"
	"github.com/leleasley/lemedia/internal/notify"
	"github.com/leleasley/lemedia/internal/request"
)

// testEnv wires the real store, admission controller, and automation
// clients against fake downstream services, with the API served over
// HTTP. Only the network edge is faked.
type testEnv struct {
	t *testing.T

	api    *httptest.Server
	series *fakeSeriesService
	movies *fakeMovieService
	media  *httptest.Server

	db    *sql.DB
	store *request.Store
}

func (e *testEnv) cleanup() {
	if e.api != nil {
		e.api.Close()
	}
	if e.media != nil {
		e.media.Close()
	}
	if e.movies != nil {
		e.movies.Close()
	}
	if e.series != nil {
		e.series.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
}

func setupIntegrationTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{t: t}
	t.Cleanup(env.cleanup)

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err, "open db")
	// Every connection to :memory: is a separate database; one
	// connection keeps the handlers on shared state.
	db.SetMaxOpenConns(1)
	env.db = db

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err, "apply schema")

	env.series = newFakeSeriesService().Build()
	env.movies = newFakeMovieService().Build()
	env.media = newFakeMediaServer("homelab", "10.9.2")

	log := testLogger()
	env.store = request.NewStore(db)

	seriesClient := automation.NewSeriesClient(env.series.URL(), testAPIKey, 1, "/tv", log)
	movieClient := automation.NewMovieClient(env.movies.URL(), testAPIKey, 1, "/movies", log)

	notifier := notify.New(log)
	history := notify.NewHistory(64)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go notify.RunRecorder(ctx, notifier, history)

	quota := request.QuotaPolicy{MovieLimit: 2, MovieDays: 7, TVLimit: 2, TVDays: 7}
	ctrl := request.NewController(env.store, nil, seriesClient, movieClient, notifier, quota, log)

	srv, err := New(ServerDeps{
		Requests:    env.store,
		Admission:   ctrl,
		EventLog:    history,
		MediaServer: mediaserver.NewClient(env.media.URL, testAPIKey, log),
		Series:      seriesClient,
		Movies:      movieClient,
	}, Config{Version: "integration", Quota: quota}, log)
	require.NoError(t, err, "create server")

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	env.api = httptest.NewServer(mux)

	return env
}

// HTTP helpers

func httpPost(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	jsonBody, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(jsonBody))
	require.NoError(t, err, "httpPost")
	return resp
}

func httpGet(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err, "httpGet")
	return resp
}

func httpDo(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		rd = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err, "build request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "httpDo")
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, json.Unmarshal(body, v), "decode JSON, body: %s", string(body))
}

// readBody is a helper to read response body for error messages.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return string(body)
}

func TestIntegration_MovieRequestLifecycle(t *testing.T) {
	env := setupIntegrationTest(t)
	env.movies.WithMovie(603, "The Matrix", 1999)

	submitBody := map[string]any{
		"media_type":   "movie",
		"catalog_id":   603,
		"title":        "The Matrix",
		"requested_by": "alice",
		"privileged":   true,
	}

	// 1. Privileged submission goes straight to acquisition.
	resp := httpPost(t, env.api.URL+"/api/v1/requests", submitBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "submit failed: %s", readBody(t, resp))

	var created requestResponse
	decodeJSON(t, resp, &created)

	assert.Equal(t, "submitted", created.Status)
	assert.Equal(t, int64(603), created.CatalogID)
	require.Len(t, created.Items, 1)
	require.NotNil(t, created.Items[0].ProviderItemID)
	assert.Equal(t, "201", *created.Items[0].ProviderItemID, "downstream ID assigned by the fake")

	// The fake received the add and exactly one search.
	added := env.movies.addedMovies()
	require.Len(t, added, 1)
	assert.Equal(t, "The Matrix", added[0].Title)
	assert.Equal(t, []int64{201}, env.movies.searchedMovies())

	// 2. The same subject conflicts while the first request is active.
	resp = httpPost(t, env.api.URL+"/api/v1/requests", submitBody)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var conflict errorResponse
	decodeJSON(t, resp, &conflict)
	assert.Equal(t, "REQUEST_EXISTS", conflict.Code)

	// 3. The stored record is visible to get and list.
	resp = httpGet(t, env.api.URL+"/api/v1/requests/"+created.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got requestResponse
	decodeJSON(t, resp, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "alice", got.RequestedBy)

	resp = httpGet(t, env.api.URL+"/api/v1/requests?user=alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list listRequestsResponse
	decodeJSON(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, created.ID, list.Items[0].ID)

	// 4. Deleting releases the subject for resubmission.
	resp = httpDo(t, http.MethodDelete, env.api.URL+"/api/v1/requests/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = httpPost(t, env.api.URL+"/api/v1/requests", submitBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "resubmit failed: %s", readBody(t, resp))

	var resubmitted requestResponse
	decodeJSON(t, resp, &resubmitted)
	assert.NotEqual(t, created.ID, resubmitted.ID)
}

func TestIntegration_SeriesRequestDelta(t *testing.T) {
	env := setupIntegrationTest(t)
	env.series.WithSeries(121361, "Game of Thrones", "standard",
		automation.MonitoredEpisode{ID: 9001, SeasonNumber: 1, EpisodeNumber: 1, Title: "Winter Is Coming", Monitored: true},
		automation.MonitoredEpisode{ID: 9002, SeasonNumber: 1, EpisodeNumber: 2, Title: "The Kingsroad", Monitored: true, HasFile: true},
		automation.MonitoredEpisode{ID: 9003, SeasonNumber: 0, EpisodeNumber: 1, Title: "Inside the Episode", Monitored: true},
	)

	resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
		"media_type":   "tv",
		"catalog_id":   1399,
		"legacy_id":    121361,
		"title":        "Game of Thrones",
		"requested_by": "alice",
		"privileged":   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "submit failed: %s", readBody(t, resp))

	var created requestResponse
	decodeJSON(t, resp, &created)

	assert.Equal(t, "submitted", created.Status)
	assert.Equal(t, int64(121361), created.LegacyID)

	// Only the missing regular episode is requested: the downloaded one
	// and the special are excluded from the delta.
	require.Len(t, created.Items, 1)
	require.NotNil(t, created.Items[0].Season)
	require.NotNil(t, created.Items[0].Episode)
	assert.Equal(t, 1, *created.Items[0].Season)
	assert.Equal(t, 1, *created.Items[0].Episode)
	require.NotNil(t, created.Items[0].ProviderItemID)
	assert.Equal(t, "9001", *created.Items[0].ProviderItemID)

	added := env.series.addedSeries()
	require.Len(t, added, 1)
	assert.Equal(t, "Game of Thrones", added[0].Title)
	assert.True(t, added[0].Monitored)

	assert.Equal(t, [][]int64{{9001}}, env.series.searchedEpisodes())
}

func TestIntegration_SeriesRequiresLegacyID(t *testing.T) {
	env := setupIntegrationTest(t)

	resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
		"media_type":   "tv",
		"catalog_id":   1399,
		"requested_by": "alice",
		"privileged":   true,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp errorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "MISSING_LEGACY_ID", errResp.Code)
}

func TestIntegration_QuotaAndPending(t *testing.T) {
	env := setupIntegrationTest(t)

	// 1. Non-privileged submissions park as pending without touching the
	// automation service.
	for i, catalogID := range []int{550, 603} {
		resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
			"media_type":   "movie",
			"catalog_id":   catalogID,
			"requested_by": "bob",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "submit %d failed: %s", i, readBody(t, resp))

		var created requestResponse
		decodeJSON(t, resp, &created)
		assert.Equal(t, "pending", created.Status)
	}
	assert.Empty(t, env.movies.addedMovies(), "pending requests must not reach the automation service")

	// 2. The third submission trips the rolling per-user limit of two.
	resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
		"media_type":   "movie",
		"catalog_id":   27205,
		"requested_by": "bob",
	})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var errResp errorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "QUOTA_EXCEEDED", errResp.Code)

	// 3. The quota endpoint agrees.
	resp = httpGet(t, env.api.URL+"/api/v1/quota?user=bob")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var quota quotaResponse
	decodeJSON(t, resp, &quota)
	assert.Equal(t, 2, quota.Limit)
	assert.Zero(t, quota.Remaining)
	assert.True(t, quota.Exhausted)

	// 4. Another user is unaffected.
	resp = httpGet(t, env.api.URL+"/api/v1/quota?user=carol")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decodeJSON(t, resp, &quota)
	assert.Equal(t, 2, quota.Remaining)
	assert.False(t, quota.Exhausted)
}

func TestIntegration_AlreadyExistsDownstream(t *testing.T) {
	env := setupIntegrationTest(t)
	env.movies.WithMovie(603, "The Matrix", 1999)
	env.movies.WithAddFailure(http.StatusBadRequest,
		`[{"errorMessage":"This movie has already been added","errorCode":"MovieExistsValidator"}]`)

	resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
		"media_type":   "movie",
		"catalog_id":   603,
		"requested_by": "alice",
		"privileged":   true,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp errorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "ALREADY_EXISTS", errResp.Code)

	// The rejection left a terminal marker record behind.
	resp = httpGet(t, env.api.URL+"/api/v1/requests?status=already_exists")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list listRequestsResponse
	decodeJSON(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "already_exists", list.Items[0].Status)
	assert.Equal(t, int64(603), list.Items[0].CatalogID)
}

func TestIntegration_StatusTransitionAndVerify(t *testing.T) {
	env := setupIntegrationTest(t)
	env.movies.WithMovie(603, "The Matrix", 1999)

	resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
		"media_type":   "movie",
		"catalog_id":   603,
		"requested_by": "alice",
		"privileged":   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "submit failed: %s", readBody(t, resp))

	var created requestResponse
	decodeJSON(t, resp, &created)

	resp = httpDo(t, http.MethodPut, env.api.URL+"/api/v1/requests/"+created.ID+"/status",
		map[string]any{"status": "downloading"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated requestResponse
	decodeJSON(t, resp, &updated)
	assert.Equal(t, "downloading", updated.Status)

	// Verify sees every downstream connection and a healthy request.
	resp = httpGet(t, env.api.URL+"/api/v1/verify")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verify VerifyResponse
	decodeJSON(t, resp, &verify)
	assert.True(t, verify.Connections.MediaServer)
	assert.True(t, verify.Connections.Series)
	assert.True(t, verify.Connections.Movies)
	assert.Equal(t, 1, verify.Checked)
	assert.Equal(t, 1, verify.Passed)
	assert.Empty(t, verify.Problems)
}

func TestIntegration_EventsFlow(t *testing.T) {
	env := setupIntegrationTest(t)

	resp := httpPost(t, env.api.URL+"/api/v1/requests", map[string]any{
		"media_type":   "movie",
		"catalog_id":   550,
		"requested_by": "bob",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "submit failed: %s", readBody(t, resp))

	var created requestResponse
	decodeJSON(t, resp, &created)

	// Event delivery is asynchronous through the recorder worker.
	require.Eventually(t, func() bool {
		resp := httpGet(t, env.api.URL+"/api/v1/events")
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return false
		}
		var events listEventsResponse
		decodeJSON(t, resp, &events)
		return len(events.Items) == 1 &&
			events.Items[0].Name == notify.RequestPending &&
			events.Items[0].RequestID == created.ID
	}, 2*time.Second, 20*time.Millisecond)
}
