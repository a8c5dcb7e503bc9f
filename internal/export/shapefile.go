package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	shp "github.com/jonas-p/go-shp"

	"github.com/property-insights/internal/models"
)

// DBF attribute columns, names limited to 10 characters by the format
var shapeFields = []shp.Field{
	shp.NumberField("ROW", 10),
	shp.StringField("ADDRESS", 254),
	shp.StringField("ZIP", 10),
	shp.StringField("CONF", 8),
	shp.FloatField("SCORE", 8, 3),
	shp.FloatField("PRICE", 16, 2),
	shp.NumberField("BEDS", 4),
	shp.FloatField("SQFT", 12, 2),
	shp.FloatField("INCOME", 16, 2),
	shp.FloatField("SCHOOL", 6, 2),
	shp.StringField("CRIME", 32),
	shp.FloatField("PPSF", 12, 2),
	shp.StringField("GEOHASH", 12),
}

// Attribute column indexes into shapeFields
const (
	fieldRow = iota
	fieldAddress
	fieldZip
	fieldConfidence
	fieldScore
	fieldPrice
	fieldBedrooms
	fieldSqFt
	fieldIncome
	fieldSchool
	fieldCrime
	fieldPricePerSqFt
	fieldGeohash
)

// ShapefileSink writes one point per property with its attributes.
// Path names the .shp file; the .shx and .dbf are written beside it.
// Longitude is X and latitude is Y.
type ShapefileSink struct {
	Path string
}

func (s *ShapefileSink) Write(ctx context.Context, props []models.EnrichedProperty) error {
	base := strings.TrimSuffix(s.Path, filepath.Ext(s.Path))
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w, err := shp.Create(base+".shp", shp.POINT)
	if err != nil {
		return fmt.Errorf("failed to create shapefile %s: %w", s.Path, err)
	}
	err = writeShapes(ctx, w, props)
	w.Close()
	if err != nil {
		return err
	}

	// go-shp v0.1.1 names the attribute table "<base>dbf", without the dot
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("failed to place attribute table: %w", err)
	}
	return nil
}

func writeShapes(ctx context.Context, w *shp.Writer, props []models.EnrichedProperty) error {
	if err := w.SetFields(shapeFields); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	for _, p := range props {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := int(w.Write(&shp.Point{X: p.Longitude, Y: p.Latitude}))
		if err := writeAttributes(w, row, p); err != nil {
			return fmt.Errorf("row %d: %w", p.Row, err)
		}
	}
	return nil
}

func writeAttributes(w *shp.Writer, row int, p models.EnrichedProperty) error {
	values := map[int]interface{}{
		fieldRow:        p.Row,
		fieldAddress:    truncate(p.Address, 254),
		fieldZip:        p.ZipCode,
		fieldConfidence: string(p.Confidence),
		fieldScore:      p.MatchScore,
		fieldGeohash:    p.Geohash,
	}
	// nulls are left blank
	setFloat := func(field int, v *float64) {
		if v != nil {
			values[field] = *v
		}
	}
	setFloat(fieldPrice, p.Price)
	setFloat(fieldSqFt, p.SqFt)
	setFloat(fieldIncome, p.MedianIncome)
	setFloat(fieldSchool, p.SchoolRating)
	setFloat(fieldPricePerSqFt, p.PricePerSqFt)
	if p.Bedrooms != nil {
		values[fieldBedrooms] = *p.Bedrooms
	}
	if p.CrimeIndex != nil {
		values[fieldCrime] = truncate(*p.CrimeIndex, 32)
	}

	for field, v := range values {
		if err := w.WriteAttribute(row, field, v); err != nil {
			return err
		}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
