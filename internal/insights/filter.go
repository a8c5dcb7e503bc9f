// Package insights computes the dashboard's filters and KPIs over enriched
// properties. A null value is excluded from any computation or range filter
// that touches its field, never treated as zero.
package insights

import (
	"slices"
	"sort"

	"github.com/property-insights/internal/models"
)

// Filter narrows a property set. Zero values mean no constraint.
type Filter struct {
	Zips      []string
	MinPrice  *float64
	MaxPrice  *float64
	MinIncome *float64
	MinSchool *float64
	MaxSchool *float64
	Crime     []string
	Bedrooms  []int
	Limit     int
}

// Match reports whether p passes every constraint set on f
func (f Filter) Match(p models.EnrichedProperty) bool {
	if len(f.Zips) > 0 && !slices.Contains(f.Zips, p.ZipCode) {
		return false
	}
	if !inRange(p.Price, f.MinPrice, f.MaxPrice) {
		return false
	}
	if !inRange(p.MedianIncome, f.MinIncome, nil) {
		return false
	}
	if !inRange(p.SchoolRating, f.MinSchool, f.MaxSchool) {
		return false
	}
	if len(f.Crime) > 0 && (p.CrimeIndex == nil || !slices.Contains(f.Crime, *p.CrimeIndex)) {
		return false
	}
	if len(f.Bedrooms) > 0 && (p.Bedrooms == nil || !slices.Contains(f.Bedrooms, *p.Bedrooms)) {
		return false
	}
	return true
}

// Apply returns the properties matching f in input order, cut to f.Limit
func Apply(properties []models.EnrichedProperty, f Filter) []models.EnrichedProperty {
	out := make([]models.EnrichedProperty, 0, len(properties))
	for _, p := range properties {
		if !f.Match(p) {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// SortByPriceDesc orders properties by price, highest first, nulls last.
// Ties keep their input order.
func SortByPriceDesc(properties []models.EnrichedProperty) {
	sort.SliceStable(properties, func(i, j int) bool {
		a, b := properties[i].Price, properties[j].Price
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

// inRange is true when no bound is set, or v is non-null and within the bounds
func inRange(v, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	if v == nil {
		return false
	}
	if lo != nil && *v < *lo {
		return false
	}
	if hi != nil && *v > *hi {
		return false
	}
	return true
}
