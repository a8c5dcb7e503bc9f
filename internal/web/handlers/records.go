package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/spatial"
)

// DefaultNeighbours is how many nearby properties accompany a single one
const DefaultNeighbours = 5

// RecordsHandler serves individual properties
type RecordsHandler struct {
	Source Source
}

// PropertyResponse is one property with its nearest neighbours
type PropertyResponse struct {
	Property   models.EnrichedProperty `json:"property"`
	Neighbours []NeighbourResponse     `json:"neighbours"`
}

// NeighbourResponse is a nearby property and its distance
type NeighbourResponse struct {
	Row        int      `json:"row"`
	Address    string   `json:"address"`
	ZipCode    string   `json:"zip_code"`
	Price      *float64 `json:"price"`
	DistanceKm float64  `json:"distance_km"`
}

// GetProperty returns the property at row {row} and its k nearest
// neighbours (k defaults to DefaultNeighbours)
func (h *RecordsHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(mux.Vars(r)["row"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid row")
		return
	}
	k, err := parseIntParam(r.URL.Query(), "k", DefaultNeighbours)
	if err != nil || k < 0 {
		writeError(w, http.StatusBadRequest, "invalid k")
		return
	}
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	property, found := findRow(snap.Result.Properties, row)
	if !found {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}

	// one extra since the property is its own nearest point. Rows sharing a
	// ZIP share coordinates, so distances of 0 are common.
	neighbours := make([]NeighbourResponse, 0, k)
	for _, n := range snap.Index.Nearest(property.Latitude, property.Longitude, k+1) {
		if n.Row == property.Row || len(neighbours) == k {
			continue
		}
		neighbours = append(neighbours, NeighbourResponse{
			Row:        n.Row,
			Address:    n.Address,
			ZipCode:    n.ZipCode,
			Price:      n.Price,
			DistanceKm: spatial.Haversine(property.Latitude, property.Longitude, n.Latitude, n.Longitude),
		})
	}

	writeJSON(w, http.StatusOK, PropertyResponse{Property: property, Neighbours: neighbours})
}

// findRow looks a property up by its source row. Properties keep input
// order, so the row usually equals the position.
func findRow(props []models.EnrichedProperty, row int) (models.EnrichedProperty, bool) {
	if row >= 0 && row < len(props) && props[row].Row == row {
		return props[row], true
	}
	for _, p := range props {
		if p.Row == row {
			return p, true
		}
	}
	return models.EnrichedProperty{}, false
}
