package handlers

import (
	"net/http"

	"github.com/property-insights/internal/audit"
	"github.com/property-insights/internal/cleaner"
	"github.com/property-insights/internal/insights"
	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/pipeline"
)

// DefaultHistogramBins is the price histogram resolution when bins is unset
const DefaultHistogramBins = 10

// APIHandler handles the dashboard data endpoints
type APIHandler struct {
	Source Source
}

// PropertiesResponse is a filtered property list
type PropertiesResponse struct {
	RunID      string                    `json:"run_id"`
	Count      int                       `json:"count"`
	Properties []models.EnrichedProperty `json:"properties"`
}

// KPIResponse holds the headline figures and the price distribution
type KPIResponse struct {
	RunID     string                  `json:"run_id"`
	KPIs      insights.KPIs           `json:"kpis"`
	Histogram []insights.HistogramBin `json:"histogram"`
}

// ZipsResponse holds per-ZIP aggregates and the available filter values
type ZipsResponse struct {
	RunID  string              `json:"run_id"`
	Zips   []insights.ZipStats `json:"zips"`
	Facets insights.Facets     `json:"facets"`
}

// ReportResponse describes the run behind the served dataset
type ReportResponse struct {
	RunID      string           `json:"run_id"`
	Options    pipeline.Options `json:"options"`
	Cleaning   cleaner.Stats    `json:"cleaning"`
	Resolution *audit.Summary   `json:"resolution"`
	Timings    pipeline.Timings `json:"timings"`
}

// ListProperties returns the properties passing the filters. sort=price_desc
// orders by price, nulls last, before the limit is applied.
func (h *APIHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	var props []models.EnrichedProperty
	switch sortBy := r.URL.Query().Get("sort"); sortBy {
	case "":
		props = insights.Apply(snap.Result.Properties, filter)
	case "price_desc":
		limit := filter.Limit
		filter.Limit = 0
		props = insights.Apply(snap.Result.Properties, filter)
		insights.SortByPriceDesc(props)
		if limit > 0 && len(props) > limit {
			props = props[:limit]
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid sort "+sortBy)
		return
	}

	writeJSON(w, http.StatusOK, PropertiesResponse{
		RunID:      snap.Result.RunID,
		Count:      len(props),
		Properties: props,
	})
}

// GetKPIs returns the KPIs of the filtered set. An empty set has count 0
// and null figures.
func (h *APIHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := parseFilter(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bins, err := parseIntParam(query, "bins", DefaultHistogramBins)
	if err != nil || bins < 0 {
		writeError(w, http.StatusBadRequest, "invalid bins")
		return
	}
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	props := insights.Apply(snap.Result.Properties, filter)
	writeJSON(w, http.StatusOK, KPIResponse{
		RunID:     snap.Result.RunID,
		KPIs:      insights.Compute(props),
		Histogram: insights.PriceHistogram(props, bins),
	})
}

// ListZips returns per-ZIP aggregates of the filtered set and the facets of
// the whole dataset
func (h *APIHandler) ListZips(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, ZipsResponse{
		RunID:  snap.Result.RunID,
		Zips:   insights.ByZip(insights.Apply(snap.Result.Properties, filter)),
		Facets: insights.FacetsOf(snap.Result.Properties),
	})
}

// GetReport returns the cleaning and resolution report of the served run
func (h *APIHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	report := snap.Result.Report
	writeJSON(w, http.StatusOK, ReportResponse{
		RunID:      snap.Result.RunID,
		Options:    report.Options,
		Cleaning:   report.Cleaning,
		Resolution: report.Resolution,
		Timings:    report.Timings,
	})
}

// Health answers liveness probes without touching the dataset
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
