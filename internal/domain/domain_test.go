package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIffyStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to IffyStatus
		want     bool
	}{
		{IffyStatusProcessing, IffyStatusProcessing, true},
		{IffyStatusProcessing, IffyStatusCompleted, true},
		{IffyStatusProcessing, IffyStatusFailed, true},
		{IffyStatusCompleted, IffyStatusFailed, false},
		{IffyStatusCompleted, IffyStatusProcessing, false},
		{IffyStatusCompleted, IffyStatusCompleted, false},
		{IffyStatusFailed, IffyStatusCompleted, false},
		{IffyStatusFailed, IffyStatusProcessing, false},
		{IffyStatusProcessing, "archived", false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestQuotaErrorMatchesBothKinds(t *testing.T) {
	cause := errors.New("429 Too Many Requests")
	err := fmt.Errorf("analyze: %w", &QuotaError{Provider: "openai", Err: cause})

	if !errors.Is(err, ErrQuotaExceeded) || !errors.Is(err, ErrRecommendation) || !errors.Is(err, cause) {
		t.Fatalf("quota error does not match expected sentinels: %v", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Provider != "openai" {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	tests := map[string]error{
		"":                      nil,
		"quota_exceeded":        &QuotaError{Provider: "openai"},
		"catalog_unavailable":   fmt.Errorf("load: %w", ErrCatalogUnavailable),
		"analysis_error":        ErrAnalysis,
		"recommendation_error":  ErrRecommendation,
		"catalog_entry_missing": ErrCatalogEntryMissing,
		"no_candidate":          ErrNoCandidateAvailable,
		"storage_error":         ErrStorage,
		"persistence_error":     ErrPersistence,
		"trigger_error":         ErrGenerationTrigger,
		"not_found":             ErrNotFound,
		"internal":              errors.New("boom"),
	}
	for want, err := range tests {
		if got := ErrorCode(err); got != want {
			t.Errorf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
