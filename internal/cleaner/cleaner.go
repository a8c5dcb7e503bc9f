package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/normalize"
	"github.com/property-insights/internal/postal"
)

var reSqFtUnit = regexp.MustCompile(`(?i)\s*(sq\.?\s*ft\.?|sqft|ft2|square\s+feet)$`)

// Stats counts soft failures seen while cleaning
type Stats struct {
	Rows             int            `json:"rows"`
	CoercionFailures map[string]int `json:"coercion_failures"` // by field
	MissingZip       int            `json:"missing_zip"`       // rows flagged for fallback
	ZipFromField     int            `json:"zip_from_field"`
	ZipFromAddress   int            `json:"zip_from_address"`
	ZipFromLibpostal int            `json:"zip_from_libpostal"`
}

// Cleaner normalizes raw listings. It holds no per-run state.
type Cleaner struct{}

// New creates a Cleaner
func New() *Cleaner {
	return &Cleaner{}
}

// Clean converts every raw listing to a clean one. Rows are never dropped.
func (c *Cleaner) Clean(raw []models.RawListing) ([]models.CleanListing, Stats) {
	localDebug := debug.Enabled()
	debug.DebugHeader(localDebug, "clean")
	defer debug.DebugFooter(localDebug, "clean")

	stats := Stats{Rows: len(raw), CoercionFailures: map[string]int{}}
	cleaned := make([]models.CleanListing, 0, len(raw))

	for _, r := range raw {
		listing := c.CleanOne(r, &stats)
		cleaned = append(cleaned, listing)
	}

	debug.DebugOutput(localDebug, "Cleaned %d listings, %d without a usable ZIP, coercion failures %v",
		len(cleaned), stats.MissingZip, stats.CoercionFailures)
	return cleaned, stats
}

// CleanOne converts a single listing, recording soft failures in stats when non-nil
func (c *Cleaner) CleanOne(r models.RawListing, stats *Stats) models.CleanListing {
	if stats == nil {
		stats = &Stats{}
	}
	if stats.CoercionFailures == nil {
		stats.CoercionFailures = map[string]int{}
	}

	key, _, _ := normalize.CanonicalAddress(r.RawAddress)

	listing := models.CleanListing{
		Row:        r.Row,
		RawAddress: r.RawAddress,
		Address:    normalize.DisplayAddress(r.RawAddress),
		AddressKey: key,
	}

	switch zip, source := extractZip(r); source {
	case "field":
		listing.CandidateZip = &zip
		stats.ZipFromField++
	case "libpostal":
		listing.CandidateZip = &zip
		stats.ZipFromLibpostal++
	case "address":
		listing.CandidateZip = &zip
		stats.ZipFromAddress++
	default:
		listing.NeedsFallback = true
		listing.ZipHint = normalize.Digits(r.RawZip)
		stats.MissingZip++
	}

	listing.Price = coerce(parsePrice(r.RawPrice), r.RawPrice, "price", stats)
	listing.SqFt = coerce(parseSqFt(r.RawSqFt), r.RawSqFt, "sq_ft", stats)
	listing.Bedrooms = parseBedrooms(r.RawBedrooms)
	if listing.Bedrooms == nil && strings.TrimSpace(r.RawBedrooms) != "" {
		stats.CoercionFailures["bedrooms"]++
	}

	return listing
}

// extractZip tries the ZIP field, then libpostal, then the address text. A
// zero-padded field yields to a full ZIP found in the address.
func extractZip(r models.RawListing) (string, string) {
	field := normalize.ZipFromField(r.RawZip)
	if field != "" && !normalize.IsZeroStripped(r.RawZip) {
		return field, "field"
	}
	if zip := postal.Postcode(r.RawAddress); zip != "" && !normalize.IsZeroStripped(zip) {
		if zip = normalize.ZipFromField(zip); zip != "" {
			return zip, "libpostal"
		}
	}
	if zip := normalize.ZipFromText(r.RawAddress); zip != "" {
		return zip, "address"
	}
	if field != "" {
		return field, "field"
	}
	return "", ""
}

// coerce counts a failure when a non-blank value could not be parsed
func coerce(v *float64, raw, field string, stats *Stats) *float64 {
	if v == nil && strings.TrimSpace(raw) != "" {
		stats.CoercionFailures[field]++
	}
	return v
}

// parsePrice handles "$450,000", "450000.00" and " 450 000 "
func parsePrice(raw string) *float64 {
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	return parseNonNegative(s)
}

// parseSqFt handles "1,500", "1500 sqft" and "1500 sq. ft."
func parseSqFt(raw string) *float64 {
	s := reSqFtUnit.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.ReplaceAll(s, ",", "")
	return parseNonNegative(strings.TrimSpace(s))
}

// parseBedrooms accepts integral counts ("3", "3.0") and "studio" as 0
func parseBedrooms(raw string) *int {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "studio" {
		return models.Int(0)
	}
	f := parseNonNegative(s)
	if f == nil || *f != math.Trunc(*f) || *f > math.MaxInt32 {
		return nil
	}
	return models.Int(int(*f))
}

func parseNonNegative(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}
