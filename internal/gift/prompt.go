package gift

import (
	"fmt"
	"strings"

	"iffy/internal/domain"
)

// StylePrompt is the instruction sent to the image-edit model.
func StylePrompt(a domain.AnalysisResult) string {
	if a.IsPerson {
		return fmt.Sprintf("make this person look like a cute cartoon character who is %d years old, with a soft and playful illustration style", a.EstimatedAge)
	}
	return fmt.Sprintf("make the subject described as '%s' look like a cute cartoon character, with a soft and playful illustration style", a.Description)
}

// RecommendationPrompt enumerates candidates 1-based and asks for a JSON pick.
// Korean copy uses the Korean key set, everything else the English one.
func RecommendationPrompt(candidates []domain.CatalogEntry, a domain.AnalysisResult, bracket, locale string) string {
	var b strings.Builder
	if locale == "en" {
		fmt.Fprintf(&b, "Here are gift candidates for the %s age group.\n", bracket)
		for i, c := range candidates {
			fmt.Fprintf(&b, "%d. Brand: %s, Product name: %s, Description: %s\n", i+1, c.Brand, c.Name, c.Description)
		}
		fmt.Fprintf(&b, "The person in the photo: %s (estimated age %d).\n", a.Description, a.EstimatedAge)
		b.WriteString("Pick exactly one product from the list, copy its product name verbatim, and answer only with JSON in this format:\n")
		b.WriteString(`{"product_name": "...", "reason": "one or two friendly sentences", "humor": "one witty line"}`)
		return b.String()
	}
	fmt.Fprintf(&b, "다음은 %s 나이대에 맞는 선물 후보 목록이야.\n", bracket)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. 브랜드: %s, 제품 명: %s, 설명: %s\n", i+1, c.Brand, c.Name, c.Description)
	}
	fmt.Fprintf(&b, "사진 속 대상: %s (예상 나이 %d세)\n", a.Description, a.EstimatedAge)
	b.WriteString("위 목록에서 딱 하나를 골라 제품 명을 그대로 적고, 아래 JSON 형식으로만 대답해줘:\n")
	b.WriteString(`{"제품명": "...", "추천이유": "한두 문장의 다정한 이유", "유머": "재치 있는 한 줄"}`)
	return b.String()
}
