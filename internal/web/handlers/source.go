package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/insights"
	"github.com/property-insights/internal/match"
	"github.com/property-insights/internal/merger"
	"github.com/property-insights/internal/pipeline"
	"github.com/property-insights/internal/spatial"
)

// Snapshot is one pipeline result with the structures built over it
type Snapshot struct {
	Result    *pipeline.Result
	Index     *spatial.Index
	Reference *merger.Reference
	Resolve   merger.Options
}

// NewSnapshot indexes a result for serving
func NewSnapshot(result *pipeline.Result) (*Snapshot, error) {
	ref, err := merger.NewReference(result.Demographics)
	if err != nil {
		return nil, err
	}
	scorer, err := match.ScorerByName(result.Report.Options.Scorer)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Result:    result,
		Index:     spatial.NewIndex(result.Properties),
		Reference: ref,
		Resolve:   merger.Options{Threshold: result.Report.Options.Threshold, Scorer: scorer},
	}, nil
}

// Source hands out the dataset the API serves
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// StaticSource always serves the same snapshot
type StaticSource struct {
	Current *Snapshot
}

func (s StaticSource) Snapshot(context.Context) (*Snapshot, error) {
	return s.Current, nil
}

// snapshot loads the current dataset or answers 503
func snapshot(w http.ResponseWriter, r *http.Request, source Source) (*Snapshot, bool) {
	snap, err := source.Snapshot(r.Context())
	if err != nil {
		debug.Warnf("dataset unavailable: %v", err)
		writeError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return nil, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseFilter reads the dashboard filters. Repeatable parameters also
// accept comma-separated values.
func parseFilter(query url.Values) (insights.Filter, error) {
	var f insights.Filter
	var err error

	f.Zips = listParam(query, "zip")
	f.Crime = listParam(query, "crime")

	for _, s := range listParam(query, "bedrooms") {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("invalid bedrooms %q", s)
		}
		f.Bedrooms = append(f.Bedrooms, n)
	}

	bounds := []struct {
		name string
		dst  **float64
	}{
		{"min_price", &f.MinPrice},
		{"max_price", &f.MaxPrice},
		{"min_income", &f.MinIncome},
		{"min_school", &f.MinSchool},
		{"max_school", &f.MaxSchool},
	}
	for _, b := range bounds {
		if *b.dst, err = parseFloatParam(query, b.name); err != nil {
			return f, err
		}
	}

	if f.Limit, err = parseIntParam(query, "limit", 0); err != nil {
		return f, err
	}
	if f.Limit < 0 {
		return f, fmt.Errorf("invalid limit %d", f.Limit)
	}
	return f, nil
}

func listParam(query url.Values, name string) []string {
	var out []string
	for _, v := range query[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseFloatParam returns nil when the parameter is absent
func parseFloatParam(query url.Values, name string) (*float64, error) {
	s := strings.TrimSpace(query.Get(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &v, nil
}

func parseIntParam(query url.Values, name string, defaultVal int) (int, error) {
	s := strings.TrimSpace(query.Get(name))
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
