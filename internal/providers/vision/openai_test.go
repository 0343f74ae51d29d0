package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func chatBody(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(raw)
}

func newTestClient(t *testing.T, fn roundTripFunc) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(Options{
		APIKey:     "sk-test",
		HTTPClient: &http.Client{Transport: fn},
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	return c
}

func TestAnalyzeSendsImageAndParsesResult(t *testing.T) {
	var captured chatRequest
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "data:image/png;base64,") {
			t.Errorf("request does not carry the image data url")
		}
		_ = json.Unmarshal(body, &captured)
		return jsonResponse(http.StatusOK, chatBody("```json\n{\"is_person\": true, \"desc\": \"웃는 아이\", \"age\": 6}\n```")), nil
	})

	res, err := c.Analyze(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := domain.AnalysisResult{IsPerson: true, Description: "웃는 아이", EstimatedAge: 6}
	if res != want {
		t.Fatalf("Analyze = %+v, want %+v", res, want)
	}
	if captured.Model != defaultVisionModel || captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request: %+v", captured)
	}
}

func TestAnalyzeRejectsInvalidPayload(t *testing.T) {
	cases := map[string]string{
		"missing age":    `{"is_person": true, "desc": "x"}`,
		"negative age":   `{"is_person": true, "desc": "x", "age": -2}`,
		"fractional age": `{"is_person": true, "desc": "x", "age": 6.5}`,
		"string bool":    `{"is_person": "yes", "desc": "x", "age": 3}`,
		"prose only":     `I cannot tell.`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, chatBody(content)), nil
			})
			_, err := c.Analyze(context.Background(), []byte("img"), "image/jpeg")
			if !errors.Is(err, domain.ErrAnalysis) {
				t.Fatalf("err = %v, want ErrAnalysis", err)
			}
		})
	}
}

func TestQuotaErrorsAreDistinguished(t *testing.T) {
	cases := map[string]*http.Response{
		"429":                jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`),
		"insufficient_quota": jsonResponse(http.StatusForbidden, `{"error":{"message":"You exceeded your current quota","code":"insufficient_quota"}}`),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			var observed error
			c, _ := NewOpenAIClient(Options{
				APIKey:     "sk-test",
				HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) { return resp, nil })},
				Observe: func(provider, op string, took time.Duration, err error) {
					observed = err
				},
			})
			_, err := c.Analyze(context.Background(), []byte("img"), "image/jpeg")
			if !errors.Is(err, domain.ErrQuotaExceeded) || !errors.Is(err, domain.ErrRecommendation) {
				t.Fatalf("err = %v, want quota error", err)
			}
			if errors.Is(err, domain.ErrAnalysis) {
				t.Fatal("quota error must not be reported as analysis error")
			}
			if observed == nil {
				t.Fatal("observer not called with the failure")
			}
		})
	}
}

func TestServerErrorIsAnalysisError(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"error":{"message":"boom"}}`), nil
	})
	_, err := c.Analyze(context.Background(), []byte("img"), "")
	if !errors.Is(err, domain.ErrAnalysis) || errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestRecommendAcceptsBothKeySets(t *testing.T) {
	cases := map[string]string{
		"korean":  `{"제품명": " 레고 클래식 ", "추천이유": "창의력", "유머": "블록 장인"}`,
		"english": `{"product_name": "레고 클래식", "reason": "창의력", "humor": "블록 장인"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				body, _ := io.ReadAll(r.Body)
				var req chatRequest
				_ = json.Unmarshal(body, &req)
				if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
					t.Errorf("unexpected messages: %+v", req.Messages)
				}
				return jsonResponse(http.StatusOK, chatBody(content)), nil
			})
			res, err := c.Recommend(context.Background(), "1. 브랜드: 레고, 제품 명: 레고 클래식, 설명: 블록")
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if res.SelectedProductName != "레고 클래식" || res.Reason != "창의력" || res.HumorLine != "블록 장인" {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestRecommendFailures(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, chatBody(`{"reason": "no name"}`)), nil
	})
	if _, err := c.Recommend(context.Background(), "p"); !errors.Is(err, domain.ErrRecommendation) {
		t.Fatalf("err = %v, want ErrRecommendation", err)
	}

	c = newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	if _, err := c.Recommend(context.Background(), "p"); !errors.Is(err, domain.ErrRecommendation) {
		t.Fatalf("transport err = %v", err)
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(Options{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestStaticAnswersNonPerson(t *testing.T) {
	res, err := NewStatic().Analyze(context.Background(), nil, "")
	if err != nil || res.IsPerson {
		t.Fatalf("Static.Analyze = %+v, %v", res, err)
	}
}
