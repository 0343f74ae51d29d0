package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
)

const (
	providerName = "openai"

	defaultBaseURL        = "https://api.openai.com/v1"
	defaultVisionModel    = "gpt-4o"
	defaultRecommendModel = "gpt-4o-mini"
	defaultTimeout        = 45 * time.Second

	analysisPrompt = `이 사진을 보고 다음 정보를 JSON 형식으로 알려줘: is_person (true/false), desc (대상의 묘사), age (예상 나이 숫자). 예시: {"is_person": true, "desc": "귀여운 아이", "age": 6}`
	recommendSystemPrompt = "너는 센스 있는 선물 추천 AI야. 형식에 꼭 맞게 대답해야 해."
)

// Observer is told about every upstream call, e.g. to record latency.
type Observer func(provider, operation string, took time.Duration, err error)

type Options struct {
	APIKey         string
	BaseURL        string
	Organization   string
	VisionModel    string
	RecommendModel string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	Observe        Observer
}

// OpenAIClient classifies photos and picks gifts through chat completions.
type OpenAIClient struct {
	apiKey         string
	baseURL        string
	organization   string
	visionModel    string
	recommendModel string
	client         *http.Client
	logger         zerolog.Logger
	observe        Observer
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Content is either a plain string or a list of contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &OpenAIClient{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		organization:   strings.TrimSpace(opts.Organization),
		visionModel:    coalesce(opts.VisionModel, defaultVisionModel),
		recommendModel: coalesce(opts.RecommendModel, defaultRecommendModel),
		client:         client,
		logger:         opts.Logger.With().Str("component", "vision").Logger(),
		observe:        opts.Observe,
	}, nil
}

// Analyze sends the photo inline as a data URL. Quota failures come back as
// *domain.QuotaError, everything else wraps domain.ErrAnalysis.
func (c *OpenAIClient) Analyze(ctx context.Context, image []byte, mimeType string) (domain.AnalysisResult, error) {
	if len(image) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("%w: empty image", domain.ErrAnalysis)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	text, err := c.chat(ctx, "analyze", chatRequest{
		Model:          c.visionModel,
		MaxTokens:      300,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: analysisPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return domain.AnalysisResult{}, classify(err, domain.ErrAnalysis)
	}
	res, err := parseAnalysis(text)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %v", domain.ErrAnalysis, err)
	}
	return res, nil
}

// Recommend asks the model to pick one of the candidates enumerated in prompt.
func (c *OpenAIClient) Recommend(ctx context.Context, prompt string) (domain.RecommendationResult, error) {
	text, err := c.chat(ctx, "recommend", chatRequest{
		Model:          c.recommendModel,
		Temperature:    0.7,
		MaxTokens:      300,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: recommendSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return domain.RecommendationResult{}, classify(err, domain.ErrRecommendation)
	}
	res, err := parseRecommendation(text)
	if err != nil {
		return domain.RecommendationResult{}, fmt.Errorf("%w: %v", domain.ErrRecommendation, err)
	}
	return res, nil
}

func classify(err error, kind error) error {
	var quota *domain.QuotaError
	if errors.As(err, &quota) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func (c *OpenAIClient) chat(ctx context.Context, operation string, payload chatRequest) (text string, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(providerName, operation, time.Since(start), err)
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("operation", operation).Str("model", payload.Model).Msg("openai call failed")
		}
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr apiErrorResponse
		_ = json.Unmarshal(raw, &apiErr)
		cause := fmt.Errorf("openai status %d: %s", resp.StatusCode, coalesce(apiErr.Error.Message, strings.TrimSpace(string(raw))))
		if resp.StatusCode == http.StatusTooManyRequests || apiErr.Error.Code == "insufficient_quota" || apiErr.Error.Type == "insufficient_quota" {
			return "", &domain.QuotaError{Provider: providerName, Err: cause}
		}
		return "", cause
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices")
	}
	text = strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}
