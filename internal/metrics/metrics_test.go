package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/property-insights/internal/audit"
	"github.com/property-insights/internal/cleaner"
	"github.com/property-insights/internal/pipeline"
)

func sampleReport() pipeline.Report {
	return pipeline.Report{
		Cleaning: cleaner.Stats{
			Rows:             5,
			CoercionFailures: map[string]int{"price": 2, "sq_ft": 1},
		},
		Resolution: &audit.Summary{
			Total:      5,
			Exact:      3,
			Fuzzy:      1,
			Fallback:   1,
			Unresolved: 1,
			Coverage:   0.8,
		},
		Timings: pipeline.Timings{Load: time.Millisecond, Total: 2 * time.Millisecond},
	}
}

func TestObserveReport(t *testing.T) {
	m := New()
	m.ObserveReport(sampleReport(), false)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"runs", testutil.ToFloat64(m.RunsTotal), 1},
		{"rows", testutil.ToFloat64(m.RowsTotal), 5},
		{"exact", testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("exact")), 3},
		{"fuzzy", testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("fuzzy")), 1},
		{"fallback", testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("fallback")), 1},
		{"unresolved", testutil.ToFloat64(m.UnresolvedTotal), 1},
		{"price failures", testutil.ToFloat64(m.CoercionFailures.WithLabelValues("price")), 2},
		{"coverage", testutil.ToFloat64(m.LastRunCoverage), 0.8},
		{"misses", testutil.ToFloat64(m.CacheMissesTotal), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestObserveReportCached(t *testing.T) {
	m := New()
	m.ObserveReport(sampleReport(), true)

	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal); got != 0 {
		t.Errorf("cached runs should not be counted, got %v", got)
	}
}

func TestObserveReportWithoutResolution(t *testing.T) {
	m := New()
	m.ObserveReport(pipeline.Report{}, false)
	if got := testutil.ToFloat64(m.RunsTotal); got != 1 {
		t.Errorf("runs = %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/kpis", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	want := `insights_http_requests_total{endpoint="/api/kpis",method="GET",status="200"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RunsTotal.Inc()
	if testutil.ToFloat64(b.RunsTotal) != 0 {
		t.Error("instances should not share collectors")
	}
}
