package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/property-insights/internal/models"
)

// Columns is the CSV header of the enriched dataset
var Columns = []string{
	"row", "raw_address", "address", "price", "bedrooms", "sq_ft",
	"candidate_zip", "zip_code", "confidence", "match_score",
	"median_income", "school_rating", "crime_index",
	"price_per_sqft", "latitude", "longitude", "geohash",
}

// CSVSink writes the enriched dataset as CSV, nulls as empty cells
type CSVSink struct {
	Path string
}

func (s *CSVSink) Write(ctx context.Context, props []models.EnrichedProperty) error {
	f, err := createFile(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, props); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes a header and one record per property
func WriteCSV(w io.Writer, props []models.EnrichedProperty) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range props {
		record := []string{
			strconv.Itoa(p.Row),
			p.RawAddress,
			p.Address,
			formatFloat(p.Price),
			formatInt(p.Bedrooms),
			formatFloat(p.SqFt),
			formatString(p.CandidateZip),
			p.ZipCode,
			string(p.Confidence),
			strconv.FormatFloat(p.MatchScore, 'f', -1, 64),
			formatFloat(p.MedianIncome),
			formatFloat(p.SchoolRating),
			formatString(p.CrimeIndex),
			formatFloat(p.PricePerSqFt),
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
			p.Geohash,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", p.Row, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV reads back a file produced by WriteCSV
func ReadCSV(r io.Reader) ([]models.EnrichedProperty, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV")
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, name := range Columns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("CSV is missing column %q", name)
		}
	}

	props := make([]models.EnrichedProperty, 0, len(records)-1)
	for line, rec := range records[1:] {
		p, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}
		props = append(props, p)
	}
	return props, nil
}

func parseRecord(rec []string, col map[string]int) (models.EnrichedProperty, error) {
	var p models.EnrichedProperty
	var err error
	get := func(name string) string { return rec[col[name]] }

	if p.Row, err = strconv.Atoi(get("row")); err != nil {
		return p, err
	}
	p.RawAddress = get("raw_address")
	p.Address = get("address")
	p.ZipCode = get("zip_code")
	p.Confidence = models.Confidence(get("confidence"))
	p.Geohash = get("geohash")

	if p.MatchScore, err = strconv.ParseFloat(get("match_score"), 64); err != nil {
		return p, err
	}
	if p.Latitude, err = strconv.ParseFloat(get("latitude"), 64); err != nil {
		return p, err
	}
	if p.Longitude, err = strconv.ParseFloat(get("longitude"), 64); err != nil {
		return p, err
	}

	floats := []struct {
		name string
		dst  **float64
	}{
		{"price", &p.Price},
		{"sq_ft", &p.SqFt},
		{"median_income", &p.MedianIncome},
		{"school_rating", &p.SchoolRating},
		{"price_per_sqft", &p.PricePerSqFt},
	}
	for _, f := range floats {
		s := get(f.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = &v
	}

	if s := get("bedrooms"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return p, fmt.Errorf("bedrooms: %w", err)
		}
		p.Bedrooms = &v
	}
	if s := get("candidate_zip"); s != "" {
		p.CandidateZip = &s
	}
	if s := get("crime_index"); s != "" {
		p.CrimeIndex = &s
	}
	return p, nil
}
