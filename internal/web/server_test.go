package web

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/property-insights/internal/cache"
	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/metrics"
	"github.com/property-insights/internal/pipeline"
	"github.com/property-insights/internal/web/middleware"
)

const listingsCSV = `raw_address,postal_code,sq_ft,bedrooms,listing_price
"1 Main St",62704,1500,3,300000
"2 Elm St",62704,1000,2,150000
"3 Oak Ave",,900,1,90000
`

const demographicsCSV = `zip_code,median_income,school_rating,crime_index
62704,61000,6.5,Medium
90210,150000,9,Low
`

func writeSources(t *testing.T) loader.DataFiles {
	t.Helper()
	dir := t.TempDir()
	files := loader.DataFiles{
		ListingsPath:     filepath.Join(dir, "listings.csv"),
		DemographicsPath: filepath.Join(dir, "demographics.csv"),
	}
	if err := os.WriteFile(files.ListingsPath, []byte(listingsCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(files.DemographicsPath, []byte(demographicsCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return files
}

func newTestServer(t *testing.T, cfg *Config) (*Server, *Dataset, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	dataset := NewDataset(cache.NewMemo(cache.NewMemoryStore(), time.Minute), writeSources(t), pipeline.DefaultOptions(), m)
	return NewServer(cfg, dataset, m), dataset, m
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0
	server, _, _ := newTestServer(t, cfg)
	h := server.Handler()

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/api/properties", http.StatusOK, `"count":3`},
		{"/api/properties/1", http.StatusOK, `"row":1`},
		{"/api/properties/geojson", http.StatusOK, `"FeatureCollection"`},
		{"/api/kpis", http.StatusOK, `"kpis"`},
		{"/api/zips", http.StatusOK, `"facets"`},
		{"/api/report", http.StatusOK, `"resolution"`},
		{"/api/stats/viewport", http.StatusOK, `"by_confidence"`},
		{"/api/search/zips?q=62704", http.StatusOK, `"exact"`},
		{"/api/export?format=json", http.StatusOK, `"zip_code"`},
		{"/metrics", http.StatusOK, "insights_pipeline_runs_total"},
		{"/api/properties/abc", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, h, tt.target, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.status, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body missing %q: %s", tt.body, rec.Body)
			}
		})
	}
}

func TestRequestIDAndHeaders(t *testing.T) {
	server, _, _ := newTestServer(t, DefaultConfig())
	h := server.Handler()

	rec := get(t, h, "/healthz", nil)
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("responses should carry a request ID")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", rec.Header())
	}

	rec = get(t, h, "/healthz", map[string]string{middleware.RequestIDHeader: "abc-123"})
	if rec.Header().Get(middleware.RequestIDHeader) != "abc-123" {
		t.Error("a client request ID should be echoed")
	}
}

func TestPreflight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	server, _, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/properties", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestAuthentication(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	server, _, _ := newTestServer(t, cfg)
	h := server.Handler()

	if rec := get(t, h, "/api/kpis", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d", rec.Code)
	}
	if rec := get(t, h, "/api/kpis", map[string]string{middleware.APIKeyHeader: "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d", rec.Code)
	}
	if rec := get(t, h, "/api/kpis", map[string]string{middleware.APIKeyHeader: "secret"}); rec.Code != http.StatusOK {
		t.Errorf("right key status = %d", rec.Code)
	}
	if rec := get(t, h, "/api/kpis?api_key=secret", nil); rec.Code != http.StatusOK {
		t.Errorf("query key status = %d", rec.Code)
	}
	// probes stay open
	if rec := get(t, h, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	server, _, _ := newTestServer(t, cfg)
	h := server.Handler()

	for i := 0; i < 2; i++ {
		if rec := get(t, h, "/api/report", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if rec := get(t, h, "/api/report", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("over budget status = %d, want 429", rec.Code)
	}
	// another client has its own bucket
	if rec := get(t, h, "/api/report", map[string]string{"X-Forwarded-For": "203.0.113.9"}); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d", rec.Code)
	}
}

func TestUpdateStreamOutlivesWriteTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = 200 * time.Millisecond
	server, _, _ := newTestServer(t, cfg)

	ts := httptest.NewUnstartedServer(server.Handler())
	ts.Config.WriteTimeout = time.Second
	ts.Start()
	defer ts.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ts.URL + "/api/updates/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	start := time.Now()
	events := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if !strings.HasPrefix(scanner.Text(), "event: ") {
			continue
		}
		events++
		if time.Since(start) > 2*time.Second {
			return
		}
	}
	t.Fatalf("stream ended after %v and %d events: %v", time.Since(start).Round(time.Millisecond), events, scanner.Err())
}

func TestDatasetMemoizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0
	_, dataset, m := newTestServer(t, cfg)
	ctx := context.Background()

	first, err := dataset.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	second, err := dataset.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("an unchanged run should reuse the snapshot")
	}
	if got := testutil.ToFloat64(m.RunsTotal); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}

	if err := os.WriteFile(dataset.files.ListingsPath, []byte(listingsCSV+"\"4 Pine Rd\",90210,2000,4,800000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	third, err := dataset.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if third.Result.RunID == first.Result.RunID || len(third.Result.Properties) != 4 {
		t.Errorf("edited sources should give a new run, got %d properties", len(third.Result.Properties))
	}
}

func TestDatasetStableWithoutCache(t *testing.T) {
	dataset := NewDataset(cache.NewMemo(cache.NopStore{}, 0), writeSources(t), pipeline.DefaultOptions(), nil)
	ctx := context.Background()

	first, err := dataset.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := dataset.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != first || second.Result.RunID != first.Result.RunID {
		t.Errorf("recomputing unchanged sources should keep run %s, got %s", first.Result.RunID, second.Result.RunID)
	}
}

func TestDatasetMissingSources(t *testing.T) {
	dataset := NewDataset(cache.NewMemo(cache.NopStore{}, 0), loader.DataFiles{
		ListingsPath:     "/nonexistent/listings.csv",
		DemographicsPath: "/nonexistent/demographics.csv",
	}, pipeline.DefaultOptions(), nil)

	server := NewServer(DefaultConfig(), dataset, nil)
	if rec := get(t, server.Handler(), "/api/properties", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if rec := get(t, server.Handler(), "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without a registry should not be routed, got %d", rec.Code)
	}
}
