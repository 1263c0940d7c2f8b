package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/leleasley/lemedia/internal/availability"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/request"
)

// stalePending is how long a request may sit awaiting approval before
// verify flags it.
const stalePending = 24 * time.Hour

// VerifyProblem describes a problem found during verification.
type VerifyProblem struct {
	RequestID string   `json:"request_id"`
	Status    string   `json:"status"`
	Title     string   `json:"title"`
	Since     string   `json:"since"`
	Issue     string   `json:"issue"`
	Checks    []string `json:"checks"`
	Likely    string   `json:"likely_cause"`
	Fixes     []string `json:"suggested_fixes"`
}

// VerifyResponse is the response for GET /verify.
type VerifyResponse struct {
	Connections struct {
		MediaServer bool   `json:"media_server"`
		MediaErr    string `json:"media_server_error,omitempty"`
		Series      bool   `json:"series_automation"`
		SeriesErr   string `json:"series_automation_error,omitempty"`
		Movies      bool   `json:"movie_automation"`
		MoviesErr   string `json:"movie_automation_error,omitempty"`
	} `json:"connections"`
	Checked  int             `json:"checked"`
	Passed   int             `json:"passed"`
	Problems []VerifyProblem `json:"problems"`
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filterID := r.URL.Query().Get("id")

	resp := VerifyResponse{}

	// Test connections
	if s.deps.MediaServer != nil {
		_, err := s.deps.MediaServer.Info(ctx)
		resp.Connections.MediaServer = err == nil
		if err != nil {
			resp.Connections.MediaErr = err.Error()
		}
	}
	if s.deps.Series != nil {
		_, err := s.deps.Series.Status(ctx)
		resp.Connections.Series = err == nil
		if err != nil {
			resp.Connections.SeriesErr = err.Error()
		}
	}
	if s.deps.Movies != nil {
		_, err := s.deps.Movies.Status(ctx)
		resp.Connections.Movies = err == nil
		if err != nil {
			resp.Connections.MoviesErr = err.Error()
		}
	}

	// Verify everything unsettled: the active statuses plus failed.
	var records []*request.Record
	for _, st := range []request.Status{
		request.StatusPending,
		request.StatusQueued,
		request.StatusSubmitted,
		request.StatusDownloading,
		request.StatusFailed,
	} {
		status := st
		batch, err := s.deps.Requests.List(ctx, request.Filter{Status: &status})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "DB_ERROR", "list requests: "+err.Error())
			return
		}
		records = append(records, batch...)
	}

	if filterID != "" {
		filtered := make([]*request.Record, 0, 1)
		for _, rec := range records {
			if rec.ID == filterID {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	resp.Checked = len(records)

	for _, rec := range records {
		problem := s.verifyRequest(ctx, rec)
		if problem != nil {
			resp.Problems = append(resp.Problems, *problem)
		} else {
			resp.Passed++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) verifyRequest(ctx context.Context, rec *request.Record) *VerifyProblem {
	var age time.Duration
	since := ""
	if !rec.UpdatedAt.IsZero() {
		age = time.Since(rec.UpdatedAt)
		since = age.Round(time.Minute).String()
	}

	switch rec.Status {
	case request.StatusPending:
		if age > stalePending {
			return &VerifyProblem{
				RequestID: rec.ID,
				Status:    string(rec.Status),
				Title:     rec.Subject.Title,
				Since:     since,
				Issue:     "Awaiting approval for more than a day",
				Checks:    []string{"Status: pending since " + since + " ago"},
				Likely:    "No privileged user has acted on it",
				Fixes:     []string{"lemedia requests set-status " + rec.ID + " queued", "lemedia requests delete " + rec.ID},
			}
		}

	case request.StatusSubmitted, request.StatusDownloading:
		// Already in the library means the sweeper should have promoted
		// it; flag so the operator doesn't wait on a download that
		// finished long ago.
		if s.deps.Checker != nil && rec.Subject.Type == media.TypeMovie {
			res, err := s.deps.Checker.IsMovieAvailable(ctx, availability.MovieQuery{
				CatalogID: rec.Subject.CatalogID,
				Title:     rec.Subject.Title,
			})
			if err == nil && res.Available {
				return &VerifyProblem{
					RequestID: rec.ID,
					Status:    string(rec.Status),
					Title:     rec.Subject.Title,
					Since:     since,
					Issue:     "Library already has this title",
					Checks:    []string{"Library lookup: found item " + res.ItemID},
					Likely:    "The availability sweep has not run since the file arrived",
					Fixes:     []string{"Wait for the next sweep", "lemedia requests set-status " + rec.ID + " available"},
				}
			}
		}

	case request.StatusFailed:
		// Failed submissions are always problems
		return &VerifyProblem{
			RequestID: rec.ID,
			Status:    string(rec.Status),
			Title:     rec.Subject.Title,
			Since:     since,
			Issue:     "Submission failed downstream",
			Checks:    []string{"Status: failed"},
			Likely:    "The automation service rejected the title or was unreachable",
			Fixes:     []string{"lemedia verify", "lemedia requests delete " + rec.ID + " and resubmit"},
		}
	}

	return nil
}
