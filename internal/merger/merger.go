package merger

import (
	"fmt"

	"github.com/property-insights/internal/audit"
	"github.com/property-insights/internal/cleaner"
	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/geocode"
	"github.com/property-insights/internal/match"
	"github.com/property-insights/internal/models"
)

// Options controls resolution and geocoding
type Options struct {
	Threshold float64          // fuzzy acceptance, 0..100
	Scorer    match.Scorer     // nil selects match.Ratio
	Geocoder  geocode.Geocoder // nil selects the synthetic geocoder with default options
}

// Merge resolves, joins and geocodes every cleaned listing. It returns one
// property per input listing, in input order, and never fails per record.
func Merge(cleaned []models.CleanListing, ref *Reference, opts Options) ([]models.EnrichedProperty, *audit.Tracker, error) {
	localDebug := debug.Enabled()
	debug.DebugHeader(localDebug, "merge")
	defer debug.DebugFooter(localDebug, "merge")
	defer debug.DebugTiming(localDebug, fmt.Sprintf("merge %d listings", len(cleaned)))()

	if ref == nil || ref.Len() == 0 {
		return nil, nil, ErrEmptyReference
	}

	geocoder := opts.Geocoder
	if geocoder == nil {
		geocoder = geocode.NewSynthetic(geocode.DefaultOptions())
	}
	engine := match.NewEngine(ref.Zips(), match.EngineConfig{Scorer: opts.Scorer, Threshold: opts.Threshold})
	tracker := audit.NewTracker()

	properties := make([]models.EnrichedProperty, 0, len(cleaned))
	for _, c := range cleaned {
		decision := engine.Resolve(localDebug, inputOf(c))
		tracker.RecordDecision(c.Row, c.CandidateZip, decision)

		p := models.EnrichedProperty{
			Row:          c.Row,
			RawAddress:   c.RawAddress,
			Address:      c.Address,
			Price:        c.Price,
			Bedrooms:     c.Bedrooms,
			SqFt:         c.SqFt,
			CandidateZip: c.CandidateZip,
			ZipCode:      decision.Zip,
			Confidence:   decision.Confidence,
			MatchScore:   decision.Score,
			PricePerSqFt: PricePerSqFt(c.Price, c.SqFt),
		}

		if rec, ok := ref.Lookup(decision.Zip); ok {
			p.MedianIncome = rec.MedianIncome
			p.SchoolRating = rec.SchoolRating
			p.CrimeIndex = rec.CrimeIndex
		}

		point, err := geocoder.Geocode(decision.Zip)
		if err != nil {
			debug.Warnf("geocode row %d zip %s: %v", c.Row, decision.Zip, err)
		} else {
			p.Latitude, p.Longitude, p.Geohash = point.Latitude, point.Longitude, point.Geohash
		}

		properties = append(properties, p)
	}

	debug.DebugOutput(localDebug, "Merged %d listings against %d canonical ZIPs", len(properties), ref.Len())
	return properties, tracker, nil
}

// ResolveText resolves a free-form ZIP or address the way Merge resolves a
// listing whose only field is that text
func ResolveText(text string, ref *Reference, opts Options) (models.CleanListing, match.Decision, error) {
	if ref == nil || ref.Len() == 0 {
		return models.CleanListing{}, match.Decision{}, ErrEmptyReference
	}
	c := cleaner.New().CleanOne(models.RawListing{RawAddress: text}, nil)
	engine := match.NewEngine(ref.Zips(), match.EngineConfig{Scorer: opts.Scorer, Threshold: opts.Threshold})
	return c, engine.Resolve(debug.Enabled(), inputOf(c)), nil
}

func inputOf(c models.CleanListing) match.Input {
	return match.Input{
		Candidate:  c.CandidateZip,
		ZipHint:    c.ZipHint,
		AddressKey: c.AddressKey,
	}
}

// PricePerSqFt is price / sqft when both are known and sqft > 0
func PricePerSqFt(price, sqft *float64) *float64 {
	if price == nil || sqft == nil || *sqft <= 0 {
		return nil
	}
	v := *price / *sqft
	return &v
}
