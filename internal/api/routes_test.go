package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/onnwee/fmmtree/backend/internal/cache"
	"github.com/onnwee/fmmtree/backend/internal/config"
	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/middleware"
	"github.com/onnwee/fmmtree/backend/internal/service"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	store := cache.NewMockCache()
	h, stop := NewRouter(Deps{
		Config:   cfg,
		Builder:  service.New(store, service.Config{}),
		Trees:    store,
		Defaults: fmm.DefaultOptions(),
	})
	t.Cleanup(stop)
	return h
}

func testConfig() *config.Config {
	return &config.Config{
		MaxBodyBytes:       1 << 20,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}
}

const treeBody = `{"sources":[{"position":[1,2],"strength":5},{"position":[4,5],"strength":-3},{"position":[7,8],"strength":2}],"max_sources_per_leaf":1}`

func TestRoutesRegistered(t *testing.T) {
	router := newTestRouter(t, testConfig())

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/cache", "", http.StatusOK},
		{http.MethodPost, "/api/trees", treeBody, http.StatusOK},
		{http.MethodPost, "/api/trees/export.csv", treeBody, http.StatusOK},
		{http.MethodGet, "/api/trees/00000000000000ff", "", http.StatusNotFound},
		{http.MethodGet, "/api/trees", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestMiddlewareChainApplied(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/trees", strings.NewReader(treeBody))
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	checks := map[string]string{
		middleware.RequestIDHeader:    "",
		"X-Content-Type-Options":      "nosniff",
		"Access-Control-Allow-Origin": "http://localhost:5173",
		"Content-Encoding":            "br",
		middleware.TreeCachedHeader:   "false",
	}
	for header, want := range checks {
		got := rr.Header().Get(header)
		if got == "" || (want != "" && got != want) {
			t.Errorf("header %s = %q, want %q", header, got, want)
		}
	}

	body, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatalf("brotli decode: %v", err)
	}
	if !strings.Contains(string(body), `"summary":"Balanced FMM Tree: 3 sources, max 1 per leaf, accuracy 1e-06"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestCachedTreeCarriesETag(t *testing.T) {
	router := newTestRouter(t, testConfig())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/trees", strings.NewReader(treeBody)))
	if rr.Code != http.StatusOK {
		t.Fatalf("build: %d", rr.Code)
	}
	const marker = `"fingerprint":"`
	i := strings.Index(rr.Body.String(), marker)
	if i < 0 {
		t.Fatalf("no fingerprint in %s", rr.Body.String())
	}
	fp := rr.Body.String()[i+len(marker) : i+len(marker)+16]

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/trees/"+fp, nil))
	etag := get.Header().Get("ETag")
	if get.Code != http.StatusOK || etag == "" {
		t.Fatalf("expected 200 with ETag, got %d %q", get.Code, etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/trees/"+fp, nil)
	req.Header.Set("If-None-Match", etag)
	again := httptest.NewRecorder()
	router.ServeHTTP(again, req)
	if again.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", again.Code)
	}
}

func TestRateLimitEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableRateLimit = true
	cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst = 100, 100
	cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst = 0.001, 1
	router := newTestRouter(t, cfg)

	codes := make([]int, 2)
	for i := range codes {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [200 429], got %v", codes)
	}
}

func TestBodyLimitApplied(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	router := newTestRouter(t, cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/trees", strings.NewReader(treeBody)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}
