package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
	"iffy/internal/gift"
)

type GiftSubmitter interface {
	Submit(ctx context.Context, sub gift.Submission) (*domain.Iffy, error)
}

type StylizeRunner interface {
	Run(ctx context.Context, id string) (*domain.Iffy, error)
}

type App struct {
	Gifts    GiftSubmitter
	Iffies   domain.IffyRepository
	Stylizer StylizeRunner
	Logger   zerolog.Logger
	// Ping reports whether the database is reachable. Nil skips the check.
	Ping           func(ctx context.Context) error
	MaxUploadBytes int64
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errorCode, message string) {
	a.json(w, code, errorResponse{Error: message, ErrorCode: errorCode})
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
