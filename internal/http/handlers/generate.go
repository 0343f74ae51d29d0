package handlers

import (
	"errors"
	"net/http"
	"strings"

	"iffy/internal/domain"
)

type generateResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	// Iffy is the record after the run.
	Iffy *domain.Iffy `json:"iffy,omitempty"`
}

// Generate handles GET /generate?id=<uuid>, the target of the http trigger.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		a.json(w, http.StatusBadRequest, generateResponse{Status: "error", Error: "Missing id"})
		return
	}
	rec, err := a.Stylizer.Run(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, generateResponse{Status: "error", Error: "Iffy not found"})
	case err != nil:
		a.logger(r).Error().Err(err).Str("iffy_id", id).Msg("stylization run failed")
		a.json(w, http.StatusInternalServerError, generateResponse{Status: "error", Error: domain.ErrorCode(err), Iffy: rec})
	default:
		a.json(w, http.StatusOK, generateResponse{Status: "ok", Iffy: rec})
	}
}
