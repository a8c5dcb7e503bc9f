package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/property-insights/internal/export"
	"github.com/property-insights/internal/insights"
	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/spatial"
)

// MapsHandler handles map-related endpoints
type MapsHandler struct {
	Source Source
}

// ViewportStatsResponse summarizes the properties inside a viewport
type ViewportStatsResponse struct {
	Total        int            `json:"total"`
	ByConfidence map[string]int `json:"by_confidence"`
	ByZip        map[string]int `json:"by_zip"`
	KPIs         insights.KPIs  `json:"kpis"`
}

var errPartialViewport = errors.New("viewport needs min_lat, max_lat, min_lng and max_lng")

// parseViewport returns nil when no bound is given
func parseViewport(query url.Values) (*spatial.BBox, error) {
	names := []string{"min_lat", "max_lat", "min_lng", "max_lng"}
	values := make([]*float64, len(names))
	given := 0
	for i, name := range names {
		v, err := parseFloatParam(query, name)
		if err != nil {
			return nil, err
		}
		if v != nil {
			given++
		}
		values[i] = v
	}

	switch given {
	case 0:
		return nil, nil
	case len(names):
	default:
		return nil, errPartialViewport
	}

	box := &spatial.BBox{MinLat: *values[0], MaxLat: *values[1], MinLng: *values[2], MaxLng: *values[3]}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	return box, nil
}

// inViewport applies the viewport then the filters
func inViewport(snap *Snapshot, query url.Values) ([]models.EnrichedProperty, error) {
	filter, err := parseFilter(query)
	if err != nil {
		return nil, err
	}
	box, err := parseViewport(query)
	if err != nil {
		return nil, err
	}

	props := snap.Result.Properties
	if box != nil {
		if props, err = snap.Index.Within(*box); err != nil {
			return nil, fmt.Errorf("viewport query: %w", err)
		}
	}
	return insights.Apply(props, filter), nil
}

// GetGeoJSON returns the filtered properties inside the viewport as a
// GeoJSON feature collection
func (h *MapsHandler) GetGeoJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	props, err := inViewport(snap, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if err := export.WriteJSON(w, export.ToGeoJSON(props)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode features")
	}
}

// GetViewportStats returns counts and KPIs for the properties inside the viewport
func (h *MapsHandler) GetViewportStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	props, err := inViewport(snap, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats := ViewportStatsResponse{
		Total:        len(props),
		ByConfidence: make(map[string]int),
		ByZip:        make(map[string]int),
		KPIs:         insights.Compute(props),
	}
	for _, p := range props {
		stats.ByConfidence[string(p.Confidence)]++
		stats.ByZip[p.ZipCode]++
	}
	writeJSON(w, http.StatusOK, stats)
}
