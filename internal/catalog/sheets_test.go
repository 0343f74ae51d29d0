package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSheetsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/spreadsheets/sheet-123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sheets.properties", r.URL.Query().Get("fields"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{
				map[string]any{"properties": map[string]any{"title": "일반", "index": 0}},
				map[string]any{"properties": map[string]any{"title": "LG 선물", "index": 1}},
				map[string]any{"properties": map[string]any{"title": "Kid's gifts", "index": 2}},
			},
		})
	})
	mux.HandleFunc("/spreadsheets/sheet-123/values/", func(w http.ResponseWriter, r *http.Request) {
		rng := strings.TrimPrefix(r.URL.Path, "/spreadsheets/sheet-123/values/")
		switch rng {
		case "'일반'":
			_ = json.NewEncoder(w).Encode(map[string]any{"values": [][]string{
				{"브랜드", "제품 명", "제품 설명", "나이대", "제품 링크"},
				{"CJ", "CJ나눔재단 기부", "나눔", "기타", "https://cj.example"},
			}})
		case "'LG 선물'":
			_ = json.NewEncoder(w).Encode(map[string]any{"values": [][]string{
				{"brand", "name", "description", "age_group", "product_link", "product_img"},
				{"LG", "LG QNED TV", "TV", "기타", "https://lg.example", "https://lg.example/tv.png"},
			}})
		case "'Kid''s gifts'":
			_ = json.NewEncoder(w).Encode(map[string]any{"values": [][]string{
				{"brand", "name", "description", "age_group"},
				{"Lego", "레고 클래식", "블록", "6-10"},
			}})
		default:
			http.Error(w, `{"error":{"code":400}}`, http.StatusBadRequest)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSheetsSourceLoadsBySheetIndex(t *testing.T) {
	srv := newSheetsServer(t)

	for idx, want := range map[int]string{0: "CJ나눔재단 기부", 1: "LG QNED TV", 2: "레고 클래식"} {
		src, err := NewSheetsSource(context.Background(), SheetsOptions{
			SpreadsheetID: "sheet-123",
			SheetIndex:    idx,
			BaseURL:       srv.URL,
			HTTPClient:    srv.Client(),
		})
		require.NoError(t, err)
		entries, err := src.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, want, entries[0].Name)
	}
}

func TestSheetsSourceErrors(t *testing.T) {
	srv := newSheetsServer(t)
	src, err := NewSheetsSource(context.Background(), SheetsOptions{
		SpreadsheetID: "sheet-123",
		SheetIndex:    7,
		BaseURL:       srv.URL,
		HTTPClient:    srv.Client(),
	})
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.ErrorContains(t, err, "index 7")

	_, err = NewSheetsSource(context.Background(), SheetsOptions{SpreadsheetID: "x"})
	assert.Error(t, err, "credentials are required without an injected client")

	_, err = NewSheetsSource(context.Background(), SheetsOptions{})
	assert.Error(t, err)
}

func TestSheetRangeEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'일반'", sheetRange("일반"))
	assert.Equal(t, "'Kid''s gifts'", sheetRange("Kid's gifts"))
}

func TestSheetsSourceLeavesInjectedClientAlone(t *testing.T) {
	srv := newSheetsServer(t)
	injected := srv.Client()
	injected.Timeout = 0

	src, err := NewSheetsSource(context.Background(), SheetsOptions{
		SpreadsheetID: "sheet-123",
		BaseURL:       srv.URL,
		HTTPClient:    injected,
		Timeout:       3 * time.Second,
	})
	require.NoError(t, err)
	assert.Zero(t, injected.Timeout)
	assert.Equal(t, 3*time.Second, src.httpClient.Timeout)
}
