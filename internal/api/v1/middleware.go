package v1

import "net/http"

// requireChecker wraps a handler and returns 503 if the availability
// checker is not configured.
func (s *Server) requireChecker(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Checker == nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Availability checker not configured")
			return
		}
		next(w, r)
	}
}

// requireCalendar wraps a handler and returns 503 if the calendar
// aggregator is not configured.
func (s *Server) requireCalendar(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Calendar == nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Calendar not configured")
			return
		}
		next(w, r)
	}
}
