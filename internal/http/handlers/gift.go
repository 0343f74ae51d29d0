package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"iffy/internal/domain"
	"iffy/internal/gift"
	"iffy/internal/middleware"
)

const defaultMaxUpload = 10 << 20

// CreateGift handles POST /gift with the photo in the multipart field "image".
func (a *App) CreateGift(w http.ResponseWriter, r *http.Request) {
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "image is too large")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "No image uploaded")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "No image uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
		return
	}
	if int64(len(data)) > limit {
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "image is too large")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "No image uploaded")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	sub := gift.Submission{
		Image:    data,
		MIMEType: mimeType,
		Locale:   middleware.LocaleFromContext(r.Context()),
	}
	if uid := middleware.UserIDFromContext(r.Context()); uid != "" {
		sub.UserID = &uid
	}

	rec, err := a.Gifts.Submit(r.Context(), sub)
	if err != nil {
		var failure *gift.FailureError
		if errors.As(err, &failure) {
			a.json(w, http.StatusInternalServerError, failure.Failure)
			return
		}
		a.logger(r).Error().Err(err).Msg("gift submission failed")
		a.error(w, http.StatusInternalServerError, domain.ErrorCode(err), "failed to process image")
		return
	}
	a.json(w, http.StatusOK, rec)
}

// GetGift handles GET /gift?id=<uuid>.
func (a *App) GetGift(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing id")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "Iffy not found")
		return
	}
	rec, err := a.Iffies.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "Iffy not found")
	case err != nil:
		a.logger(r).Error().Err(err).Str("iffy_id", id).Msg("load iffy")
		a.error(w, http.StatusInternalServerError, "internal", "Failed to get iffy")
	default:
		a.json(w, http.StatusOK, rec)
	}
}
