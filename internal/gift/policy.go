package gift

import (
	"fmt"
	"strings"

	"iffy/internal/catalog"
	"iffy/internal/domain"
)

const DefaultFallbackImageURL = "https://ageijospngqmyzptvsoo.supabase.co/storage/v1/object/public/imageFile/iffy/fallback_image.webp"

// FallbackStep names one way of resolving a recommendation that matched no candidate.
type FallbackStep string

const (
	FallbackDefault FallbackStep = "default"
	FallbackFirst   FallbackStep = "first"
)

// Messages holds the user-facing copy for one locale and catalog variant.
type Messages struct {
	AnalysisFailedDesc string
	ErrorGiftName      string
	ErrorCommentary    string
	ErrorHumor         string

	NonPersonReason string
	NonPersonHumor  string
	// EmptyBracketReason takes the bracket label as its only verb.
	EmptyBracketReason string
	EmptyBracketHumor  string
	DefaultReason      string
	DefaultHumor       string
	SubstituteReason   string
	SubstituteHumor    string

	CatalogUnavailable string
	StorageFailed      string
	QuotaExceeded      string
}

// Policy collects the per-deployment knobs of gift selection.
type Policy struct {
	Variant          string
	DefaultEntry     string
	FallbackOrder    []FallbackStep
	FallbackImageURL string
	messages         map[string]Messages
}

func NewPolicy(variant catalog.Variant, order []string, fallbackImageURL string) (Policy, error) {
	steps, err := parseFallbackOrder(order)
	if err != nil {
		return Policy{}, err
	}
	if strings.TrimSpace(fallbackImageURL) == "" {
		fallbackImageURL = DefaultFallbackImageURL
	}
	msgs := map[string]Messages{"ko": koreanGeneral, "en": englishGeneral}
	if variant.Name == catalog.SponsorVariant.Name {
		msgs = map[string]Messages{"ko": koreanSponsor, "en": englishSponsor}
	}
	return Policy{
		Variant:          variant.Name,
		DefaultEntry:     variant.DefaultEntry,
		FallbackOrder:    steps,
		FallbackImageURL: fallbackImageURL,
		messages:         msgs,
	}, nil
}

func parseFallbackOrder(order []string) ([]FallbackStep, error) {
	if len(order) == 0 {
		return []FallbackStep{FallbackDefault, FallbackFirst}, nil
	}
	seen := make(map[FallbackStep]bool, len(order))
	steps := make([]FallbackStep, 0, len(order))
	for _, raw := range order {
		step := FallbackStep(strings.ToLower(strings.TrimSpace(raw)))
		switch step {
		case FallbackDefault, FallbackFirst:
		default:
			return nil, fmt.Errorf("unknown fallback step %q", raw)
		}
		if seen[step] {
			continue
		}
		seen[step] = true
		steps = append(steps, step)
	}
	return steps, nil
}

// Messages returns the copy for locale, falling back to Korean.
func (p Policy) Messages(locale string) Messages {
	if m, ok := p.messages[locale]; ok {
		return m
	}
	return p.messages["ko"]
}

// FailureCommentary explains a fatal error to the user.
func (p Policy) FailureCommentary(locale string, err error) string {
	m := p.Messages(locale)
	switch domain.ErrorCode(err) {
	case "quota_exceeded":
		return m.QuotaExceeded
	case "catalog_unavailable":
		return m.CatalogUnavailable
	case "storage_error":
		return m.StorageFailed
	default:
		return m.ErrorCommentary
	}
}

var koreanGeneral = Messages{
	AnalysisFailedDesc: "분석 실패",
	ErrorGiftName:      "🤖",
	ErrorCommentary:    "문제가 발생했어요. 다시 시도해볼까요?",
	ErrorHumor:         "사진이 너무 귀여워서 AI가 심쿵했어요… 추천은 잠시 쉬어갈게요!",
	NonPersonReason:    "특별한 날, 나눔의 기쁨을 선물하는 건 어떨까요? 따뜻한 마음을 전해보세요.",
	NonPersonHumor:     "세상 모든 존재에게 따뜻함을 전해요!",
	EmptyBracketReason: "AI도 %s 나이대 선물을 고르기 어려웠나봐요! 대신 따뜻한 마음을 나누는 기부를 추천해요.",
	EmptyBracketHumor:  "선물 고민될 땐 나눔이 최고!",
	DefaultReason:      "AI가 길을 잃었나봐요! 추천 대신 마음을 나누는 기부는 어떨까요?",
	DefaultHumor:       "선물보다 값진 나눔의 기쁨!",
	SubstituteReason:   "AI 추천을 찾지 못해 다른 선물을 골랐어요. 이것도 좋아할 거예요!",
	SubstituteHumor:    "가끔은 예상치 못한 선물이 더 좋을 때도 있죠!",
	CatalogUnavailable: "선물 목록을 불러오지 못했어요. 잠시 후 다시 시도해주세요.",
	StorageFailed:      "사진을 저장하지 못했어요. 다시 시도해볼까요?",
	QuotaExceeded:      "AI 최대 사용량을 초과했어요.",
}

var koreanSponsor = func() Messages {
	m := koreanGeneral
	m.NonPersonReason = "도대체 무슨 사진을 올린거에요? 그냥 기본 LG제품(QNED TV)을 추천해드릴게요."
	m.NonPersonHumor = "잘 모르겠을때는 TV가 최고!"
	m.EmptyBracketReason = "AI도 %s 나이대 선물을 고르기 어려웠나봐요! 대신 모두가 좋아하는 기본 제품을 추천해요."
	m.EmptyBracketHumor = "잘 모르겠을때는 TV가 최고!"
	m.DefaultReason = "AI가 길을 잃었나봐요! 대신 모두가 좋아하는 기본 제품을 추천해요."
	m.DefaultHumor = "잘 모르겠을때는 TV가 최고!"
	return m
}()

var englishGeneral = Messages{
	AnalysisFailedDesc: "analysis failed",
	ErrorGiftName:      "🤖",
	ErrorCommentary:    "Something went wrong. Shall we try again?",
	ErrorHumor:         "The photo was so cute the AI's heart skipped a beat… recommendations are taking a short break!",
	NonPersonReason:    "How about gifting the joy of sharing on a special day? Pass on some warmth.",
	NonPersonHumor:     "Warmth for every being in the world!",
	EmptyBracketReason: "Even the AI struggled to pick a gift for the %s age group! How about a donation that shares some warmth instead?",
	EmptyBracketHumor:  "When in doubt, sharing is the best gift!",
	DefaultReason:      "The AI got lost! How about a donation that shares your heart instead?",
	DefaultHumor:       "The joy of giving beats any gift!",
	SubstituteReason:   "The AI pick was not in the list, so we chose another gift. They will love this one too!",
	SubstituteHumor:    "Sometimes the unexpected gift is the best one!",
	CatalogUnavailable: "We could not load the gift list. Please try again shortly.",
	StorageFailed:      "We could not save your photo. Shall we try again?",
	QuotaExceeded:      "The AI usage limit has been reached.",
}

var englishSponsor = func() Messages {
	m := englishGeneral
	m.NonPersonReason = "What on earth did you upload? Here is our signature LG pick (QNED TV)."
	m.NonPersonHumor = "When in doubt, a TV is the answer!"
	m.EmptyBracketReason = "Even the AI struggled to pick a gift for the %s age group! Here is a product everyone loves instead."
	m.EmptyBracketHumor = "When in doubt, a TV is the answer!"
	m.DefaultReason = "The AI got lost! Here is a product everyone loves instead."
	m.DefaultHumor = "When in doubt, a TV is the answer!"
	return m
}()
