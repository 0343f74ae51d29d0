package handlers

import (
	"net/http"
)

// AllGifts handles GET /allgifts.
func (a *App) AllGifts(w http.ResponseWriter, r *http.Request) {
	n, err := a.Iffies.Count(r.Context())
	if err != nil {
		a.logger(r).Error().Err(err).Msg("count iffies")
		a.error(w, http.StatusInternalServerError, "internal", "failed to count gifts")
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"resultCount": n})
}
