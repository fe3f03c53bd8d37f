package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"glucare/internal/app"
	"glucare/internal/domain"
	"glucare/internal/logger"
)

type readingRequest struct {
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recordedAt"`
	Notes      *string   `json:"notes,omitempty"`
}

func (s *Server) handleReadingsList(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = domain.UnitMgDL
	}

	items, err := s.readings.ListInUnit(r.Context(), user.ID, unit)
	if errors.Is(err, app.ErrInvalidUnit) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.log.Error(r.Context(), "list readings failed", logger.Int64("user_id", user.ID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to load readings"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unit":  unit,
		"items": items,
	})
}

// handleReadingsCreate stores a reading for the session user. Any owner
// supplied by the client is ignored.
func (s *Server) handleReadingsCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)

	var req readingRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.readings.InsertReading(r.Context(), domain.NewReading{
		Value:      req.Value,
		RecordedAt: req.RecordedAt,
		Notes:      req.Notes,
		OwnerID:    user.ID,
	})
	if errors.Is(err, app.ErrInvalidReading) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.log.Error(r.Context(), "insert reading failed", logger.Int64("user_id", user.ID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to save reading"))
		return
	}

	writeJSON(w, http.StatusCreated, created)
}
