package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTP calls GET <base>/generate?id=<id> and waits for the stylization result.
type HTTP struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Minute}
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type generateResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *HTTP) Fire(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	endpoint := h.baseURL + "/generate?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return wrap("http", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return wrap("http", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return wrap("http", err)
	}
	if resp.StatusCode >= 300 {
		return wrap("http", fmt.Errorf("generate returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return wrap("http", fmt.Errorf("decode generate response: %w", err))
	}
	if out.Status == "error" {
		return wrap("http", fmt.Errorf("generate reported error: %s", out.Error))
	}
	return nil
}
