package models

// Confidence records how a listing's ZIP code was resolved
type Confidence string

const (
	ConfidenceExact    Confidence = "exact"
	ConfidenceFuzzy    Confidence = "fuzzy"
	ConfidenceFallback Confidence = "fallback"
)

// UnresolvedZip is the resolved ZIP for listings that carried no usable ZIP at all
const UnresolvedZip = "UNRESOLVED"

// RawListing represents one listings row exactly as it was read
type RawListing struct {
	Row         int    // 0-based data row, header excluded
	RawAddress  string
	RawPrice    string
	RawBedrooms string
	RawSqFt     string
	RawZip      string
	ZipPresent  bool // false when the source has no ZIP column at all
}

// DemographicRecord is one row of the ZIP-level reference table
type DemographicRecord struct {
	ZipCode      string   `json:"zip_code"`
	MedianIncome *float64 `json:"median_income"`
	SchoolRating *float64 `json:"school_rating"`
	CrimeIndex   *string  `json:"crime_index"`
}

// CleanListing is a RawListing after normalization and type coercion
type CleanListing struct {
	Row        int
	RawAddress string
	Address    string // display form
	AddressKey string // matching form

	// CandidateZip is a 5-digit token not yet validated against the reference table.
	CandidateZip  *string
	ZipHint       string // digits of the ZIP field when no candidate was recoverable
	NeedsFallback bool

	Price    *float64
	Bedrooms *int
	SqFt     *float64
}

// EnrichedProperty is the terminal output row, one per input listing
type EnrichedProperty struct {
	Row          int        `json:"row"`
	RawAddress   string     `json:"raw_address"`
	Address      string     `json:"address"`
	Price        *float64   `json:"price"`
	Bedrooms     *int       `json:"bedrooms"`
	SqFt         *float64   `json:"sq_ft"`
	CandidateZip *string    `json:"candidate_zip"`
	ZipCode      string     `json:"zip_code"`
	Confidence   Confidence `json:"confidence"`
	MatchScore   float64    `json:"match_score"`

	MedianIncome *float64 `json:"median_income"`
	SchoolRating *float64 `json:"school_rating"`
	CrimeIndex   *string  `json:"crime_index"`

	PricePerSqFt *float64 `json:"price_per_sqft"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Geohash      string   `json:"geohash"`
}

// Float returns a pointer to v, handy for building nullable fields
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }
