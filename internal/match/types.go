package match

import (
	"github.com/property-insights/internal/models"
)

// DefaultThreshold is the minimum fuzzy score (0..100) for a fuzzy resolution
const DefaultThreshold = 90.0

// Scorer rates the similarity of two strings on a 0..100 scale.
// Only the threshold comparison and tie-break depend on it.
type Scorer func(a, b string) float64

// Input is one resolution query
type Input struct {
	Candidate  *string // 5-digit candidate, nil when none was recovered
	ZipHint    string  // digits of a malformed ZIP field
	AddressKey string  // canonical address
}

// Decision is the outcome of resolving one Input
type Decision struct {
	Zip        string            `json:"zip_code"`
	Confidence models.Confidence `json:"confidence"`
	Score      float64           `json:"score"`           // 100 for exact, best fuzzy score otherwise
	Query      string            `json:"query,omitempty"` // text that was scored, empty for exact
	Canonical  bool              `json:"canonical"`       // Zip is a key of the reference table
}
