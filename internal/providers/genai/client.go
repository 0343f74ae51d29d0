package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
)

const providerName = "gemini"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Observe    func(provider, operation string, took time.Duration, err error)
}

// Client edits a photo into a stylized rendering with Gemini image models.
// Without an API key it produces a deterministic posterized version of the
// source so the rest of the pipeline stays runnable in local and CI setups.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
	observe    func(provider, operation string, took time.Duration, err error)
}

// StylizeRequest carries the source photo and the style instruction.
type StylizeRequest struct {
	Prompt     string
	Source     []byte
	SourceMIME string
	// Seed makes the synthetic output stable per record.
	Seed string
}

// Image is a generated image.
type Image struct {
	Data      []byte
	Format    string
	Width     int
	Height    int
	Synthetic bool
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

var ErrNoImage = errors.New("gemini returned no image")

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     opts.Logger.With().Str("component", "genai").Logger(),
		observe:    opts.Observe,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Synthetic reports whether the client runs without an API key.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

func (c *Client) Stylize(ctx context.Context, req StylizeRequest) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Source) == 0 {
		return nil, errors.New("source image is required")
	}
	if c.apiKey == "" {
		return c.synthetic(req)
	}

	start := time.Now()
	img, err := c.remoteStylize(ctx, req)
	if c.observe != nil {
		c.observe(providerName, "stylize", time.Since(start), err)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.model).Msg("remote stylization failed")
		return nil, err
	}
	return img, nil
}

func (c *Client) remoteStylize(ctx context.Context, req StylizeRequest) (*Image, error) {
	mime := req.SourceMIME
	if mime == "" {
		mime = http.DetectContentType(req.Source)
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(req.Source)}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}, CandidateCount: 1},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			w, h := decodeImageDimensions(data)
			return &Image{
				Data:   data,
				Format: firstNonEmpty(part.InlineData.MimeType, "image/png"),
				Width:  w,
				Height: h,
			}, nil
		}
	}
	return nil, ErrNoImage
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		cause := fmt.Errorf("gemini status %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusTooManyRequests || apiErr.Error.Status == "RESOURCE_EXHAUSTED" {
			return &domain.QuotaError{Provider: providerName, Err: cause}
		}
		return cause
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// synthetic posterizes the source and lays seed-colored stripes over it.
// Sources that cannot be decoded get a plain striped canvas.
func (c *Client) synthetic(req StylizeRequest) (*Image, error) {
	seed := deterministicSeed(req.Seed, req.Prompt, c.model)
	var canvas *image.RGBA
	if src, _, err := image.Decode(bytes.NewReader(req.Source)); err == nil {
		canvas = posterize(src, colorFromSeed(seed, 0))
	} else {
		canvas = image.NewRGBA(image.Rect(0, 0, 512, 512))
		draw.Draw(canvas, canvas.Bounds(), &image.Uniform{colorFromSeed(seed, 0)}, image.Point{}, draw.Src)
	}
	overlayStripes(canvas, colorFromSeed(seed, 1))

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode synthetic image: %w", err)
	}
	c.logger.Debug().Str("seed", seed).Str("model", c.model).Msg("generated synthetic stylization")
	b := canvas.Bounds()
	return &Image{Data: buf.Bytes(), Format: "image/png", Width: b.Dx(), Height: b.Dy(), Synthetic: true}, nil
}

func posterize(src image.Image, tint color.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := src.At(x, y).RGBA()
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{
				R: blend(level(r), tint.R),
				G: blend(level(g), tint.G),
				B: blend(level(bl), tint.B),
				A: uint8(a >> 8),
			})
		}
	}
	return out
}

// level quantizes a 16-bit channel to four flat tones.
func level(v uint32) uint8 {
	return uint8((v>>14)*85) // 0, 85, 170, 255
}

func blend(v, tint uint8) uint8 {
	return uint8((uint16(v)*3 + uint16(tint)) / 4)
}

func overlayStripes(img *image.RGBA, accent color.RGBA) {
	b := img.Bounds()
	step := maxInt(8, b.Dx()/24)
	accent.A = 48
	for i := 0; i < b.Dx()+b.Dy(); i += step * 2 {
		for y := 0; y < b.Dy(); y++ {
			x := i - y
			if x < 0 || x >= b.Dx() {
				continue
			}
			draw.Draw(img, image.Rect(x, y, minInt(b.Dx(), x+step/2), y+1), &image.Uniform{accent}, image.Point{}, draw.Over)
		}
	}
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
