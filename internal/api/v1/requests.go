package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leleasley/lemedia/internal/automation"
	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/request"
)

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	mediaType := media.Type(req.MediaType)
	if !mediaType.Valid() {
		writeError(w, http.StatusBadRequest, "INVALID_TYPE", "media_type must be 'movie' or 'tv'")
		return
	}
	if req.CatalogID == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_CATALOG_ID", "catalog_id is required")
		return
	}
	if req.RequestedBy == "" {
		writeError(w, http.StatusBadRequest, "MISSING_REQUESTER", "requested_by is required")
		return
	}

	subject := media.Subject{
		CatalogID: req.CatalogID,
		LegacyID:  req.LegacyID,
		Type:      mediaType,
		Title:     req.Title,
	}

	// TV submissions may omit the legacy series ID; bridge it through
	// the catalog when one is configured. Admission still rejects the
	// submission if no mapping exists.
	if subject.Type == media.TypeTV && subject.LegacyID == 0 && s.deps.Catalog != nil {
		ids, err := s.deps.Catalog.ExternalIDs(r.Context(), media.TypeTV, subject.CatalogID)
		if err != nil {
			s.log.Warn("legacy id lookup failed", "catalog_id", subject.CatalogID, "error", err)
		} else {
			subject.LegacyID = ids.LegacyID
		}
	}

	requester := request.Requester{Name: req.RequestedBy, Privileged: req.Privileged}

	var sel *request.EpisodeSelector
	if len(req.Seasons) > 0 {
		sel = &request.EpisodeSelector{Seasons: req.Seasons}
	}

	rec, err := s.deps.Admission.Submit(r.Context(), subject, requester, sel)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, requestToResponse(rec))
}

// writeSubmitError maps admission rejections onto HTTP statuses. Typed
// rejections keep their own codes; downstream automation failures are
// gateway errors because the record of what happened is already stored.
func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var conflict *request.ConflictError
	if errors.As(err, &conflict) {
		writeError(w, http.StatusConflict, "REQUEST_EXISTS", conflict.Error())
		return
	}
	var quota *request.QuotaError
	if errors.As(err, &quota) {
		writeError(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED", quota.Error())
		return
	}
	if errors.Is(err, request.ErrLegacyIDRequired) {
		writeError(w, http.StatusBadRequest, "MISSING_LEGACY_ID", err.Error())
		return
	}
	if errors.Is(err, request.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
		return
	}
	var se *automation.StatusError
	if errors.As(err, &se) {
		if se.Kind == automation.KindAlreadyExists {
			writeError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "AUTOMATION_ERROR", err.Error())
		return
	}
	if errors.Is(err, automation.ErrServiceUnavailable) || errors.Is(err, automation.ErrNotFound) {
		writeError(w, http.StatusBadGateway, "AUTOMATION_ERROR", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	filter := request.Filter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit and offset must be non-negative")
		return
	}

	if statusStr := queryString(r, "status"); statusStr != nil {
		st := request.Status(*statusStr)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status: "+*statusStr)
			return
		}
		filter.Status = &st
	}
	if user := queryString(r, "user"); user != nil {
		filter.RequestedBy = user
	}
	if typeStr := queryString(r, "type"); typeStr != nil {
		mt := media.Type(*typeStr)
		if !mt.Valid() {
			writeError(w, http.StatusBadRequest, "INVALID_TYPE", "unknown media type: "+*typeStr)
			return
		}
		filter.Type = &mt
	}

	records, err := s.deps.Requests.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := listRequestsResponse{
		Items:  make([]requestResponse, len(records)),
		Total:  len(records),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i, rec := range records {
		resp.Items[i] = requestToResponse(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Requests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, requestToResponse(rec))
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Requests.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, request.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	status := request.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status: "+req.Status)
		return
	}

	if err := s.deps.Requests.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, request.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	rec, err := s.deps.Requests.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, requestToResponse(rec))
}

func (s *Server) getQuota(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER", "user is required")
		return
	}

	mediaType := media.TypeMovie
	if typeStr := queryString(r, "type"); typeStr != nil {
		mediaType = media.Type(*typeStr)
		if !mediaType.Valid() {
			writeError(w, http.StatusBadRequest, "INVALID_TYPE", "unknown media type: "+*typeStr)
			return
		}
	}

	limit, days := s.cfg.Quota.For(mediaType)
	qs, err := s.deps.Requests.QuotaStatus(r.Context(), user, mediaType, limit, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, quotaResponse{
		User:       user,
		MediaType:  string(mediaType),
		Limit:      qs.Limit,
		Remaining:  qs.Remaining,
		WindowDays: qs.WindowDays,
		Exhausted:  qs.Exhausted(),
	})
}

func requestToResponse(rec *request.Record) requestResponse {
	resp := requestResponse{
		ID:          rec.ID,
		MediaType:   string(rec.Subject.Type),
		CatalogID:   rec.Subject.CatalogID,
		LegacyID:    rec.Subject.LegacyID,
		Title:       rec.Subject.Title,
		RequestedBy: rec.RequestedBy,
		Status:      string(rec.Status),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Items:       make([]requestItemResponse, len(rec.Items)),
	}
	for i, item := range rec.Items {
		resp.Items[i] = requestItemResponse{
			ID:             item.ID,
			Provider:       item.Provider,
			ProviderItemID: item.ProviderItemID,
			Season:         item.SeasonNumber,
			Episode:        item.EpisodeNumber,
			Status:         string(item.Status),
		}
	}
	return resp
}
