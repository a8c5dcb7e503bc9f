package loader

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/models"
)

const (
	SourceListings     = "listings"
	SourceDemographics = "demographics"
)

// DataFiles locates the two input tables
type DataFiles struct {
	ListingsPath     string
	DemographicsPath string
}

// column describes one logical column and the header names it may appear under
type column struct {
	name     string
	aliases  []string
	required bool
}

var listingColumns = []column{
	{name: "address", aliases: []string{"raw_address", "address"}, required: true},
	{name: "price", aliases: []string{"listing_price", "price"}, required: true},
	{name: "bedrooms", aliases: []string{"bedrooms", "beds"}, required: true},
	{name: "sq_ft", aliases: []string{"sq_ft", "sqft", "square_feet"}, required: true},
	{name: "zip", aliases: []string{"postal_code", "zip_code", "zip"}},
}

var demographicColumns = []column{
	{name: "zip", aliases: []string{"zip_code", "zip", "postal_code"}, required: true},
	{name: "median_income", aliases: []string{"median_income"}, required: true},
	{name: "school_rating", aliases: []string{"school_rating"}, required: true},
	{name: "crime_index", aliases: []string{"crime_index"}, required: true},
}

// Load reads both tables. Either failure aborts the load.
func Load(files DataFiles) ([]models.RawListing, []models.DemographicRecord, error) {
	listings, err := LoadListings(files.ListingsPath)
	if err != nil {
		return nil, nil, err
	}
	demographics, err := LoadDemographics(files.DemographicsPath)
	if err != nil {
		return nil, nil, err
	}
	return listings, demographics, nil
}

// LoadListings opens and reads the listings CSV at path
func LoadListings(path string) ([]models.RawListing, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, unavailable(SourceListings, path, err)
	}
	defer file.Close()

	return ReadListings(file, path)
}

// LoadDemographics opens and reads the demographics CSV at path
func LoadDemographics(path string) ([]models.DemographicRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, unavailable(SourceDemographics, path, err)
	}
	defer file.Close()

	return ReadDemographics(file, path)
}

// ReadListings parses listings CSV from r. Cells are kept as raw text.
func ReadListings(r io.Reader, path string) ([]models.RawListing, error) {
	localDebug := debug.Enabled()
	reader := newReader(r)

	columnMap, err := readHeader(reader, SourceListings, path, listingColumns)
	if err != nil {
		return nil, err
	}
	_, hasZip := columnMap["zip"]
	debug.DebugOutput(localDebug, "Listings columns: %v (zip column present: %v)", columnMap, hasZip)

	var listings []models.RawListing
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, unavailable(SourceListings, path, err)
		}

		listings = append(listings, models.RawListing{
			Row:         len(listings),
			RawAddress:  getColumnValue(record, columnMap, "address"),
			RawPrice:    getColumnValue(record, columnMap, "price"),
			RawBedrooms: getColumnValue(record, columnMap, "bedrooms"),
			RawSqFt:     getColumnValue(record, columnMap, "sq_ft"),
			RawZip:      getColumnValue(record, columnMap, "zip"),
			ZipPresent:  hasZip,
		})
	}

	debug.DebugOutput(localDebug, "Read %d listings from %s", len(listings), path)
	return listings, nil
}

// ReadDemographics parses the reference CSV from r. ZIP codes are kept as
// raw text; numeric columns that cannot be parsed are null.
func ReadDemographics(r io.Reader, path string) ([]models.DemographicRecord, error) {
	localDebug := debug.Enabled()
	reader := newReader(r)

	columnMap, err := readHeader(reader, SourceDemographics, path, demographicColumns)
	if err != nil {
		return nil, err
	}

	var records []models.DemographicRecord
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, unavailable(SourceDemographics, path, err)
		}

		records = append(records, models.DemographicRecord{
			ZipCode:      getColumnValue(record, columnMap, "zip"),
			MedianIncome: parseNullableFloat(getColumnValue(record, columnMap, "median_income")),
			SchoolRating: parseNullableFloat(getColumnValue(record, columnMap, "school_rating")),
			CrimeIndex:   nullIfEmpty(getColumnValue(record, columnMap, "crime_index")),
		})
	}

	debug.DebugOutput(localDebug, "Read %d demographic rows from %s", len(records), path)
	return records, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// readHeader maps logical column names to record indexes
func readHeader(reader *csv.Reader, source, path string, columns []column) (map[string]int, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, mismatch(source, path, "no header row")
	}
	if err != nil {
		return nil, unavailable(source, path, err)
	}

	byName := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if _, dup := byName[name]; !dup {
			byName[name] = i
		}
	}

	columnMap := make(map[string]int)
	var missing []string
	for _, c := range columns {
		found := false
		for _, alias := range c.aliases {
			if idx, ok := byName[alias]; ok {
				columnMap[c.name] = idx
				found = true
				break
			}
		}
		if !found && c.required {
			missing = append(missing, c.aliases[0])
		}
	}
	if len(missing) > 0 {
		return nil, mismatch(source, path, "missing required columns: %s", strings.Join(missing, ", "))
	}
	return columnMap, nil
}

func getColumnValue(record []string, columnMap map[string]int, columnName string) string {
	if idx, exists := columnMap[columnName]; exists && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseNullableFloat reads reference numerics, tolerating "$" and thousands separators
func parseNullableFloat(s string) *float64 {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
