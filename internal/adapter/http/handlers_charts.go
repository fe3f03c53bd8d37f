package adapthttp

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"glucare/internal/logger"
	"glucare/internal/render"
)

func (s *Server) handleChartLayout(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	days := intQuery(r, "days", 0)

	layout, err := s.charts.GetLayout(r.Context(), user.ID, days, s.formatter())
	if err != nil {
		s.log.Error(r.Context(), "chart layout failed", logger.Int64("user_id", user.ID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to load readings"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"layout": layout,
		"path":   layout.Path(),
	})
}

// handleChartImage exports the chart as SVG or PNG depending on the
// requested extension.
func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	days := intQuery(r, "days", 0)
	format := render.SVG
	if strings.HasSuffix(r.URL.Path, ".png") {
		format = render.PNG
	}

	layout, err := s.charts.GetLayout(r.Context(), user.ID, days, s.formatter())
	if err != nil {
		s.log.Error(r.Context(), "chart layout failed", logger.Int64("user_id", user.ID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to load readings"))
		return
	}

	var buf bytes.Buffer
	err = render.Chart(&buf, layout, format, render.Options{
		Focus: intQuery(r, "focus", -1),
		Title: "Glucose (mg/dL)",
	})
	if errors.Is(err, render.ErrEmpty) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.log.Error(r.Context(), "render chart failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to render chart"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	_, _ = buf.WriteTo(w)
}
