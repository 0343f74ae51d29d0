package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"iffy/internal/domain"
)

// RejectionError is a non-2xx answer from the gift API.
type RejectionError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("gift api %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("gift api %d: %s", e.StatusCode, msg)
}

func (e *RejectionError) Is(target error) bool {
	switch target {
	case domain.ErrQuotaExceeded:
		return e.Code == "quota_exceeded"
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// APIClient talks to POST /gift and GET /gift over HTTP.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), token: token, httpClient: httpClient}
}

func (c *APIClient) Submit(ctx context.Context, image []byte, filename string) (string, error) {
	if filename == "" {
		filename = "upload"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gift", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var rec domain.Iffy
	if err := c.do(req, &rec); err != nil {
		return "", err
	}
	if rec.ID == "" {
		return "", errors.New("gift api returned no id")
	}
	return rec.ID, nil
}

func (c *APIClient) Status(ctx context.Context, id string) (domain.IffyStatus, error) {
	rec, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

func (c *APIClient) Get(ctx context.Context, id string) (*domain.Iffy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gift?id="+url.QueryEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var rec domain.Iffy
	if err := c.do(req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *APIClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var payload struct {
			Error      string `json:"error"`
			ErrorCode  string `json:"error_code"`
			Commentary string `json:"commentary"`
		}
		_ = json.Unmarshal(data, &payload)
		msg := payload.Error
		if msg == "" {
			msg = payload.Commentary
		}
		return &RejectionError{StatusCode: resp.StatusCode, Code: payload.ErrorCode, Message: msg}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gift api response: %w", err)
	}
	return nil
}
