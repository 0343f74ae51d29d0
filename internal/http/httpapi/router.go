package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"iffy/internal/http/handlers"
	"iffy/internal/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger          zerolog.Logger
	CORSOrigins     []string
	JWTSecret       string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	Gatherer        prometheus.Gatherer
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/healthz", app.Health)
	r.Get("/readyz", app.Ready)
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs/*", handlers.OpenAPIDocs())
	if opts.Gatherer != nil {
		r.Handle("/metrics", handlers.MetricsHandler(opts.Gatherer))
	}
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/gift", func(r chi.Router) {
		r.Use(middleware.OptionalIdentity(opts.JWTSecret))
		r.Get("/", app.GetGift)
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/", app.CreateGift)
	})
	r.Get("/generate", app.Generate)
	r.Get("/allgifts", app.AllGifts)

	return r
}
