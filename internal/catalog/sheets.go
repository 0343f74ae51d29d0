package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/jwt"

	"iffy/internal/domain"
)

const (
	sheetsScope    = "https://www.googleapis.com/auth/spreadsheets.readonly"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	sheetsBaseURL  = "https://sheets.googleapis.com/v4"
)

// SheetsOptions configures a Google Sheets backed source.
type SheetsOptions struct {
	SpreadsheetID       string
	SheetIndex          int
	ServiceAccountEmail string
	PrivateKey          string
	BaseURL             string
	// HTTPClient overrides the service-account client, mainly for tests.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// SheetsSource reads the catalog through the Sheets v4 values API. The sheet
// is addressed by position, so its title is looked up on every load.
type SheetsSource struct {
	id         string
	sheetIndex int
	baseURL    string
	httpClient *http.Client
}

func NewSheetsSource(ctx context.Context, opts SheetsOptions) (*SheetsSource, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	client := opts.HTTPClient
	if client == nil {
		if opts.ServiceAccountEmail == "" || opts.PrivateKey == "" {
			return nil, fmt.Errorf("service account credentials are required")
		}
		conf := &jwt.Config{
			Email:      opts.ServiceAccountEmail,
			PrivateKey: []byte(opts.PrivateKey),
			Scopes:     []string{sheetsScope},
			TokenURL:   googleTokenURL,
		}
		client = conf.Client(ctx)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	withTimeout := *client
	withTimeout.Timeout = opts.Timeout
	client = &withTimeout

	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = sheetsBaseURL
	}
	return &SheetsSource{
		id:         opts.SpreadsheetID,
		sheetIndex: opts.SheetIndex,
		baseURL:    base,
		httpClient: client,
	}, nil
}

type spreadsheetMeta struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
			Index int    `json:"index"`
		} `json:"properties"`
	} `json:"sheets"`
}

type valueRange struct {
	Values [][]string `json:"values"`
}

func (s *SheetsSource) Load(ctx context.Context) ([]domain.CatalogEntry, error) {
	title, err := s.sheetTitle(ctx)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s", s.baseURL, url.PathEscape(s.id), url.PathEscape(sheetRange(title)))
	var vr valueRange
	if err := s.getJSON(ctx, endpoint, &vr); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", title, err)
	}
	return mapRows(vr.Values)
}

// sheetRange quotes a sheet title for A1 notation.
func sheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func (s *SheetsSource) sheetTitle(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s?fields=sheets.properties", s.baseURL, url.PathEscape(s.id))
	var meta spreadsheetMeta
	if err := s.getJSON(ctx, endpoint, &meta); err != nil {
		return "", fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties.Index == s.sheetIndex {
			return sh.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("spreadsheet has no sheet at index %d", s.sheetIndex)
}

func (s *SheetsSource) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sheets api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
