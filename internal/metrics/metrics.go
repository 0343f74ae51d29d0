package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"iffy/internal/domain"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing, which keeps wiring optional in tests.
type Metrics struct {
	jobs             *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	catalogRefresh   *prometheus.CounterVec
	triggers         *prometheus.CounterVec
	stylize          *prometheus.CounterVec
	pollAttempts     *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iffy_jobs_total",
			Help: "Gift submissions by outcome",
		}, []string{"outcome", "error_code"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iffy_gift_fallbacks_total",
			Help: "Gift selections that did not come from a matched recommendation",
		}, []string{"reason"}),
		providerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iffy_provider_request_duration_seconds",
			Help:    "Latency of external model calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider", "operation", "result"}),
		catalogRefresh: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iffy_catalog_refresh_total",
			Help: "Catalog loads by result",
		}, []string{"result"}),
		triggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iffy_stylize_triggers_total",
			Help: "Stylization triggers by mode and result",
		}, []string{"mode", "result"}),
		stylize: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iffy_stylize_runs_total",
			Help: "Stylization runs by result",
		}, []string{"result"}),
		pollAttempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iffy_poll_attempts",
			Help:    "Status polls issued per job before a terminal state",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}, []string{"state"}),
	}
}

func (m *Metrics) ObserveJob(outcome string, err error) {
	if m == nil {
		return
	}
	code := ""
	if err != nil {
		code = domain.ErrorCode(err)
	}
	m.jobs.WithLabelValues(outcome, code).Inc()
}

func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveProvider(provider, operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		result = "quota"
	case err != nil:
		result = "error"
	}
	m.providerDuration.WithLabelValues(provider, operation, result).Observe(took.Seconds())
}

func (m *Metrics) ObserveCatalogRefresh(result string) {
	if m == nil {
		return
	}
	m.catalogRefresh.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTrigger(mode string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.triggers.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) ObserveStylize(result string) {
	if m == nil {
		return
	}
	m.stylize.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePollAttempts(state string, attempts int) {
	if m == nil {
		return
	}
	m.pollAttempts.WithLabelValues(state).Observe(float64(attempts))
}
