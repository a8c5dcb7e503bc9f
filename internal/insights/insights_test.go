package insights

import (
	"testing"

	"github.com/property-insights/internal/models"
)

func sample() []models.EnrichedProperty {
	return []models.EnrichedProperty{
		{Row: 0, ZipCode: "90210", Price: models.Float(300000), Bedrooms: models.Int(3), PricePerSqFt: models.Float(200),
			MedianIncome: models.Float(150000), SchoolRating: models.Float(9), CrimeIndex: models.String("Low"), Confidence: models.ConfidenceExact},
		{Row: 1, ZipCode: "90210", Price: models.Float(500000), Bedrooms: models.Int(4), PricePerSqFt: models.Float(400),
			MedianIncome: models.Float(150000), SchoolRating: models.Float(9), CrimeIndex: models.String("Low"), Confidence: models.ConfidenceFuzzy},
		{Row: 2, ZipCode: "02139", Price: models.Float(100000), Bedrooms: models.Int(1), PricePerSqFt: nil,
			MedianIncome: models.Float(50000), SchoolRating: nil, CrimeIndex: models.String("High"), Confidence: models.ConfidenceExact},
		{Row: 3, ZipCode: models.UnresolvedZip, Price: nil, Bedrooms: nil, Confidence: models.ConfidenceFallback},
	}
}

func TestComputeIgnoresNulls(t *testing.T) {
	k := Compute(sample())

	if k.Count != 4 {
		t.Errorf("Count = %d", k.Count)
	}
	checkFloat(t, "AvgPricePerSqFt", k.AvgPricePerSqFt, 300)
	checkFloat(t, "MedianPrice", k.MedianPrice, 300000)
	checkFloat(t, "AvgSchoolRating", k.AvgSchoolRating, 9)
	checkFloat(t, "AvgMedianIncome", k.AvgMedianIncome, 350000.0/3)
}

func TestComputeEmpty(t *testing.T) {
	k := Compute(nil)
	if k.Count != 0 || k.AvgPricePerSqFt != nil || k.MedianPrice != nil || k.AvgSchoolRating != nil || k.AvgMedianIncome != nil {
		t.Errorf("empty KPIs = %+v, want all null", k)
	}
}

func TestMedianEven(t *testing.T) {
	m := median([]float64{4, 1, 3, 2})
	checkFloat(t, "median", m, 2.5)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		wantRows []int
	}{
		{"no constraints", Filter{}, []int{0, 1, 2, 3}},
		{"zip", Filter{Zips: []string{"90210"}}, []int{0, 1}},
		{"price range drops null prices", Filter{MinPrice: models.Float(200000)}, []int{0, 1}},
		{"max price", Filter{MaxPrice: models.Float(300000)}, []int{0, 2}},
		{"min income", Filter{MinIncome: models.Float(100000)}, []int{0, 1}},
		{"school range drops null ratings", Filter{MinSchool: models.Float(0), MaxSchool: models.Float(10)}, []int{0, 1}},
		{"crime", Filter{Crime: []string{"High"}}, []int{2}},
		{"bedrooms", Filter{Bedrooms: []int{1, 4}}, []int{1, 2}},
		{"limit", Filter{Limit: 2}, []int{0, 1}},
		{"nothing matches", Filter{Zips: []string{"00000"}}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), tt.filter)
			if len(got) != len(tt.wantRows) {
				t.Fatalf("got %d rows, want %v", len(got), tt.wantRows)
			}
			for i, p := range got {
				if p.Row != tt.wantRows[i] {
					t.Errorf("row %d = %d, want %d", i, p.Row, tt.wantRows[i])
				}
			}
		})
	}
}

func TestSortByPriceDesc(t *testing.T) {
	props := sample()
	SortByPriceDesc(props)

	want := []int{1, 0, 2, 3}
	for i, p := range props {
		if p.Row != want[i] {
			t.Errorf("position %d: row %d, want %d", i, p.Row, want[i])
		}
	}
}

func TestByZip(t *testing.T) {
	stats := ByZip(sample())

	if len(stats) != 3 {
		t.Fatalf("got %d groups", len(stats))
	}
	if stats[0].ZipCode != "90210" || stats[0].Count != 2 {
		t.Errorf("first group = %+v", stats[0])
	}
	checkFloat(t, "90210 avg ppsf", stats[0].AvgPricePerSqFt, 300)
	if stats[0].Confidence["exact"] != 1 || stats[0].Confidence["fuzzy"] != 1 {
		t.Errorf("confidence = %v", stats[0].Confidence)
	}

	// groups without a price per square foot go last, by ZIP
	if stats[1].ZipCode != "02139" || stats[2].ZipCode != models.UnresolvedZip {
		t.Errorf("order = %s, %s", stats[1].ZipCode, stats[2].ZipCode)
	}
	if stats[2].MedianIncome != nil {
		t.Error("unresolved group should have null demographics")
	}
}

func TestFacetsOf(t *testing.T) {
	f := FacetsOf(sample())

	if len(f.Zips) != 3 || f.Zips[0] != "02139" {
		t.Errorf("Zips = %v", f.Zips)
	}
	if len(f.Crime) != 2 || f.Crime[0] != "High" {
		t.Errorf("Crime = %v", f.Crime)
	}
	if len(f.Bedrooms) != 3 || f.Bedrooms[0] != 1 || f.Bedrooms[2] != 4 {
		t.Errorf("Bedrooms = %v", f.Bedrooms)
	}
	checkFloat(t, "PriceMin", f.PriceMin, 100000)
	checkFloat(t, "PriceMax", f.PriceMax, 500000)
	checkFloat(t, "SchoolMin", f.SchoolMin, 9)
}

func TestPriceHistogram(t *testing.T) {
	bins := PriceHistogram(sample(), 4)
	if len(bins) != 4 {
		t.Fatalf("got %d bins", len(bins))
	}

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("histogram holds %d prices, want 3", total)
	}
	if bins[0].Lower != 100000 || bins[3].Upper != 500000 {
		t.Errorf("range = %v..%v", bins[0].Lower, bins[3].Upper)
	}
	if bins[3].Count != 1 {
		t.Error("maximum should land in the last bin")
	}

	if got := PriceHistogram(nil, 10); len(got) != 0 {
		t.Errorf("empty input gave %v", got)
	}
}

func checkFloat(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %v", name, want)
		return
	}
	if diff := *got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("%s = %v, want %v", name, *got, want)
	}
}
