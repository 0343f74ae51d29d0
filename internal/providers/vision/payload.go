package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"iffy/internal/domain"
)

const analysisSchema = `{
  "type": "object",
  "required": ["is_person", "desc", "age"],
  "properties": {
    "is_person": {"type": "boolean"},
    "desc": {"type": "string"},
    "age": {"type": "integer", "minimum": 0, "maximum": 150}
  }
}`

// The recommendation may come back with Korean or English keys depending on
// which prompt the catalog variant used.
const recommendationSchema = `{
  "type": "object",
  "anyOf": [
    {"required": ["제품명"], "properties": {"제품명": {"type": "string", "minLength": 1}}},
    {"required": ["product_name"], "properties": {"product_name": {"type": "string", "minLength": 1}}}
  ],
  "properties": {
    "추천이유": {"type": "string"},
    "유머": {"type": "string"},
    "reason": {"type": "string"},
    "humor": {"type": "string"}
  }
}`

var (
	analysisValidator       = jsonschema.MustCompileString("analysis.json", analysisSchema)
	recommendationValidator = jsonschema.MustCompileString("recommendation.json", recommendationSchema)
)

var errEmptyPayload = errors.New("empty payload")

type analysisPayload struct {
	IsPerson bool   `json:"is_person"`
	Desc     string `json:"desc"`
	Age      int    `json:"age"`
}

type recommendationPayload struct {
	NameKO   string `json:"제품명"`
	ReasonKO string `json:"추천이유"`
	HumorKO  string `json:"유머"`
	Name     string `json:"product_name"`
	Reason   string `json:"reason"`
	Humor    string `json:"humor"`
}

func parseAnalysis(raw string) (domain.AnalysisResult, error) {
	var p analysisPayload
	if err := decodeValidated(raw, analysisValidator, &p); err != nil {
		return domain.AnalysisResult{}, err
	}
	return domain.AnalysisResult{
		IsPerson:     p.IsPerson,
		Description:  strings.TrimSpace(p.Desc),
		EstimatedAge: p.Age,
	}, nil
}

func parseRecommendation(raw string) (domain.RecommendationResult, error) {
	var p recommendationPayload
	if err := decodeValidated(raw, recommendationValidator, &p); err != nil {
		return domain.RecommendationResult{}, err
	}
	return domain.RecommendationResult{
		SelectedProductName: strings.TrimSpace(coalesce(p.NameKO, p.Name)),
		Reason:              coalesce(p.ReasonKO, p.Reason),
		HumorLine:           coalesce(p.HumorKO, p.Humor),
	}, nil
}

// decodeValidated strips fences and prose around the JSON object, checks it
// against schema and decodes it into out.
func decodeValidated(raw string, schema *jsonschema.Schema, out any) error {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return errEmptyPayload
	}
	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return fmt.Errorf("decode model payload: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("model payload rejected: %w", err)
	}
	return json.Unmarshal([]byte(cleaned), out)
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func trimCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
