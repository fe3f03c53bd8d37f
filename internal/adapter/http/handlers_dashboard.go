package adapthttp

import (
	"net/http"
	"strconv"

	"glucare/internal/dashboard"
)

// handleDashboard returns the dashboard view model for the session user.
// ?focus=i focuses the i-th chart point, ?x= the point nearest to x.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.newDashboard()
	defer d.Unmount()
	d.Mount(r.Context(), dashboard.PresentSession(userFromContext(r)))

	q := r.URL.Query()
	if v := q.Get("focus"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			d.Focus(i)
		}
	} else if v := q.Get("x"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			d.FocusNearest(x)
		}
	}

	writeJSON(w, http.StatusOK, d.View())
}
