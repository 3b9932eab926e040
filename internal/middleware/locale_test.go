package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func localeFor(t *testing.T, mutate func(*http.Request)) (string, string) {
	t.Helper()
	var locale, country string
	handler := Locale("en", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/gallery", nil)
	mutate(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return locale, country
}

func TestDetectLocale(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*http.Request)
		want   string
	}{
		{"default", func(r *http.Request) {}, "en"},
		{"accept language spanish", func(r *http.Request) { r.Header.Set("Accept-Language", "es-MX,es;q=0.9") }, "es"},
		{"accept language portuguese", func(r *http.Request) { r.Header.Set("Accept-Language", "pt-BR") }, "pt"},
		{"explicit header wins", func(r *http.Request) {
			r.Header.Set("Accept-Language", "pt-BR")
			r.Header.Set("X-Locale", "es")
		}, "es"},
		{"unsupported falls back", func(r *http.Request) { r.Header.Set("Accept-Language", "zz") }, "en"},
	}
	for _, tc := range cases {
		if got, _ := localeFor(t, tc.mutate); got != tc.want {
			t.Errorf("%s: locale = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestResolveCountry(t *testing.T) {
	if _, country := localeFor(t, func(r *http.Request) {
		r.Header.Set("CF-IPCountry", "br")
	}); country != "BR" {
		t.Fatalf("country = %q, want BR", country)
	}

	if _, country := localeFor(t, func(r *http.Request) {
		r.Header.Set("Accept-Language", "es-AR")
	}); country != "AR" {
		t.Fatalf("country = %q, want AR", country)
	}
}

func TestCountryLookupFallback(t *testing.T) {
	lookup := func(ip string) (string, error) {
		if ip != "203.0.113.9" {
			t.Fatalf("lookup ip = %q", ip)
		}
		return "us", nil
	}
	var country string
	handler := Locale("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/gallery", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if country != "US" {
		t.Fatalf("country = %q, want US", country)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4411"
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ClientIP = %q", got)
	}
}
