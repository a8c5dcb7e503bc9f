package insights

import (
	"math"
	"sort"

	"github.com/property-insights/internal/models"
)

// KPIs are the headline figures. A nil field means no row had the value.
type KPIs struct {
	Count           int      `json:"count"`
	AvgPricePerSqFt *float64 `json:"avg_price_per_sqft"`
	MedianPrice     *float64 `json:"median_price"`
	AvgSchoolRating *float64 `json:"avg_school_rating"`
	AvgMedianIncome *float64 `json:"avg_median_income"`
}

// ZipStats aggregates the properties resolved to one ZIP
type ZipStats struct {
	ZipCode         string         `json:"zip_code"`
	Count           int            `json:"count"`
	Confidence      map[string]int `json:"confidence"`
	AvgPricePerSqFt *float64       `json:"avg_price_per_sqft"`
	MedianPrice     *float64       `json:"median_price"`
	MedianIncome    *float64       `json:"median_income"`
	SchoolRating    *float64       `json:"school_rating"`
	CrimeIndex      *string        `json:"crime_index"`
}

// Facets lists the values available to each filter, like the dashboard sidebar
type Facets struct {
	Zips      []string `json:"zips"`
	Crime     []string `json:"crime"`
	Bedrooms  []int    `json:"bedrooms"`
	PriceMin  *float64 `json:"price_min"`
	PriceMax  *float64 `json:"price_max"`
	IncomeMin *float64 `json:"income_min"`
	IncomeMax *float64 `json:"income_max"`
	SchoolMin *float64 `json:"school_min"`
	SchoolMax *float64 `json:"school_max"`
}

// HistogramBin is one price bucket, [Lower, Upper) except the last which is closed
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Compute derives the KPIs for a property set
func Compute(properties []models.EnrichedProperty) KPIs {
	var ppsf, prices, schools, incomes []float64
	for _, p := range properties {
		ppsf = appendValue(ppsf, p.PricePerSqFt)
		prices = appendValue(prices, p.Price)
		schools = appendValue(schools, p.SchoolRating)
		incomes = appendValue(incomes, p.MedianIncome)
	}
	return KPIs{
		Count:           len(properties),
		AvgPricePerSqFt: mean(ppsf),
		MedianPrice:     median(prices),
		AvgSchoolRating: mean(schools),
		AvgMedianIncome: mean(incomes),
	}
}

// ByZip aggregates per resolved ZIP, ordered by average price per square
// foot descending with nulls last, then by ZIP
func ByZip(properties []models.EnrichedProperty) []ZipStats {
	groups := make(map[string][]models.EnrichedProperty)
	for _, p := range properties {
		groups[p.ZipCode] = append(groups[p.ZipCode], p)
	}

	stats := make([]ZipStats, 0, len(groups))
	for zip, group := range groups {
		var ppsf, prices []float64
		s := ZipStats{ZipCode: zip, Count: len(group), Confidence: map[string]int{}}
		for _, p := range group {
			ppsf = appendValue(ppsf, p.PricePerSqFt)
			prices = appendValue(prices, p.Price)
			s.Confidence[string(p.Confidence)]++
			// demographics are per ZIP, so any row carrying them will do
			if s.MedianIncome == nil {
				s.MedianIncome = p.MedianIncome
			}
			if s.SchoolRating == nil {
				s.SchoolRating = p.SchoolRating
			}
			if s.CrimeIndex == nil {
				s.CrimeIndex = p.CrimeIndex
			}
		}
		s.AvgPricePerSqFt = mean(ppsf)
		s.MedianPrice = median(prices)
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i].AvgPricePerSqFt, stats[j].AvgPricePerSqFt
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return stats[i].ZipCode < stats[j].ZipCode
	})
	return stats
}

// FacetsOf lists the distinct filter values present in properties
func FacetsOf(properties []models.EnrichedProperty) Facets {
	zips := map[string]struct{}{}
	crime := map[string]struct{}{}
	beds := map[int]struct{}{}
	var prices, incomes, schools []float64

	for _, p := range properties {
		zips[p.ZipCode] = struct{}{}
		if p.CrimeIndex != nil {
			crime[*p.CrimeIndex] = struct{}{}
		}
		if p.Bedrooms != nil {
			beds[*p.Bedrooms] = struct{}{}
		}
		prices = appendValue(prices, p.Price)
		incomes = appendValue(incomes, p.MedianIncome)
		schools = appendValue(schools, p.SchoolRating)
	}

	f := Facets{
		Zips:     sortedKeys(zips),
		Crime:    sortedKeys(crime),
		Bedrooms: sortedKeys(beds),
	}
	f.PriceMin, f.PriceMax = bounds(prices)
	f.IncomeMin, f.IncomeMax = bounds(incomes)
	f.SchoolMin, f.SchoolMax = bounds(schools)
	return f
}

// PriceHistogram buckets known prices into n equal-width bins
func PriceHistogram(properties []models.EnrichedProperty, n int) []HistogramBin {
	var prices []float64
	for _, p := range properties {
		prices = appendValue(prices, p.Price)
	}
	if len(prices) == 0 || n <= 0 {
		return []HistogramBin{}
	}

	lo, hi := prices[0], prices[0]
	for _, v := range prices {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo == hi {
		return []HistogramBin{{Lower: lo, Upper: hi, Count: len(prices)}}
	}

	width := (hi - lo) / float64(n)
	bins := make([]HistogramBin, n)
	for i := range bins {
		bins[i] = HistogramBin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	bins[n-1].Upper = hi

	for _, v := range prices {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

func appendValue(values []float64, v *float64) []float64 {
	if v == nil || math.IsNaN(*v) {
		return values
	}
	return append(values, *v)
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

func bounds(values []float64) (*float64, *float64) {
	if len(values) == 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return &lo, &hi
}

func sortedKeys[K string | int](m map[K]struct{}) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
