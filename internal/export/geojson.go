package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/property-insights/internal/models"
)

// FeatureCollection is a GeoJSON feature collection of property points
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one property as a GeoJSON point
type Feature struct {
	Type       string                  `json:"type"`
	Geometry   Geometry                `json:"geometry"`
	Properties models.EnrichedProperty `json:"properties"`
}

// Geometry is a GeoJSON point, coordinates in [lon, lat] order
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// ToGeoJSON converts properties to a feature collection. Features is never nil.
func ToGeoJSON(props []models.EnrichedProperty) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(props))}
	for _, p := range props {
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: [2]float64{p.Longitude, p.Latitude},
			},
			Properties: p,
		})
	}
	return fc
}

// JSONSink writes the enriched dataset as a JSON array
type JSONSink struct {
	Path string
}

func (s *JSONSink) Write(ctx context.Context, props []models.EnrichedProperty) error {
	if props == nil {
		props = []models.EnrichedProperty{}
	}
	return writeJSONFile(s.Path, props)
}

// GeoJSONSink writes the enriched dataset as a GeoJSON feature collection
type GeoJSONSink struct {
	Path string
}

func (s *GeoJSONSink) Write(ctx context.Context, props []models.EnrichedProperty) error {
	return writeJSONFile(s.Path, ToGeoJSON(props))
}

// WriteJSON encodes v indented
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v interface{}) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteJSON(f, v); err != nil {
		return err
	}
	return f.Close()
}
