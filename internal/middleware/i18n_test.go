package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name:    "x-locale overrides country",
			setup:   func(r *http.Request) { r.Header.Set("X-Locale", "en") },
			country: "KR",
			want:    "en",
		},
		{
			name:  "accept-language english",
			setup: func(r *http.Request) { r.Header.Set("Accept-Language", "en-US,en;q=0.9") },
			want:  "en",
		},
		{
			name:  "accept-language korean",
			setup: func(r *http.Request) { r.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.5") },
			want:  "ko",
		},
		{
			name:     "unsupported header uses fallback",
			setup:    func(r *http.Request) { r.Header.Set("X-Locale", "zz-invalid-tag-x") },
			fallback: "ko",
			want:     "ko",
		},
		{
			name:    "korean country",
			country: "KR",
			want:    "ko",
		},
		{
			name:    "foreign country falls back to english",
			country: "US",
			want:    "en",
		},
		{
			name:     "configured fallback",
			fallback: "en",
			want:     "en",
		},
		{
			name: "default korean",
			want: "ko",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := detectLocale(req, tc.fallback, tc.country); got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "kr")
				r.Header.Set("CF-IPCountry", "us")
			},
			want: "KR",
		},
		{
			name:  "locale region",
			setup: func(r *http.Request) { r.Header.Set("X-Locale", "en-AU") },
			want:  "AU",
		},
		{
			name:  "accept-language region",
			setup: func(r *http.Request) { r.Header.Set("Accept-Language", "ko-KR,ko;q=0.9") },
			want:  "KR",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					return "", errors.New("unexpected ip " + ip)
				}
				return "kr", nil
			},
			want: "KR",
		},
		{
			name:     "resolver error returns empty",
			resolver: func(string) (string, error) { return "", errors.New("boom") },
			want:     "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := ResolveCountry(req, tc.resolver); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NStoresLocale(t *testing.T) {
	var got, country string
	h := I18N("ko", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "us")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "en" || country != "US" {
		t.Fatalf("locale=%q country=%q", got, country)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "ko" {
		t.Fatalf("LocaleFromContext() default = %q, want ko", got)
	}
}
