package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrCatalogUnavailable   = errors.New("catalog unavailable")
	ErrAnalysis             = errors.New("analysis failed")
	ErrRecommendation       = errors.New("recommendation failed")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrCatalogEntryMissing  = errors.New("catalog entry missing")
	ErrNoCandidateAvailable = errors.New("no candidate available")
	ErrStorage              = errors.New("storage failure")
	ErrPersistence          = errors.New("persistence failure")
	ErrGenerationTrigger    = errors.New("generation trigger failure")
)

// QuotaError marks a provider rejection caused by exhausted quota or rate
// limits. It matches both ErrRecommendation and ErrQuotaExceeded.
type QuotaError struct {
	Provider string
	Err      error
}

func (e *QuotaError) Error() string {
	if e.Err == nil {
		return e.Provider + ": quota exceeded"
	}
	return e.Provider + ": quota exceeded: " + e.Err.Error()
}

func (e *QuotaError) Unwrap() []error {
	errs := []error{ErrQuotaExceeded, ErrRecommendation}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorCode maps an error onto the short code exposed in API payloads.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrCatalogUnavailable):
		return "catalog_unavailable"
	case errors.Is(err, ErrAnalysis):
		return "analysis_error"
	case errors.Is(err, ErrRecommendation):
		return "recommendation_error"
	case errors.Is(err, ErrCatalogEntryMissing):
		return "catalog_entry_missing"
	case errors.Is(err, ErrNoCandidateAvailable):
		return "no_candidate"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	case errors.Is(err, ErrGenerationTrigger):
		return "trigger_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
