package vision

import (
	"context"

	"iffy/internal/domain"
)

// Static answers without calling a model. It keeps local runs working when no
// OpenAI key is configured: every photo is treated as a non-person subject, so
// the default catalog entry is chosen.
type Static struct {
	Analysis       domain.AnalysisResult
	Recommendation domain.RecommendationResult
}

func NewStatic() *Static {
	return &Static{Analysis: domain.AnalysisResult{Description: "사진"}}
}

func (s *Static) Analyze(ctx context.Context, image []byte, mimeType string) (domain.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnalysisResult{}, err
	}
	return s.Analysis, nil
}

func (s *Static) Recommend(ctx context.Context, prompt string) (domain.RecommendationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RecommendationResult{}, err
	}
	return s.Recommendation, nil
}
