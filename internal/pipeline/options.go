package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/property-insights/internal/geocode"
	"github.com/property-insights/internal/match"
)

// ErrInvalidOptions is returned by Options.Validate
var ErrInvalidOptions = errors.New("invalid pipeline options")

// Options parameterizes one run. A run is a pure function of its inputs and
// these options.
type Options struct {
	Threshold float64         `json:"threshold" yaml:"threshold"`
	Scorer    string          `json:"scorer" yaml:"scorer"`
	Geocode   geocode.Options `json:"geocode" yaml:"geocode"`
}

// DefaultOptions is threshold 90, the ratio scorer and the continental US box
func DefaultOptions() Options {
	return Options{
		Threshold: match.DefaultThreshold,
		Scorer:    match.ScorerRatio,
		Geocode:   geocode.DefaultOptions(),
	}
}

// Validate checks the threshold range, scorer name and geocode parameters
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 100 {
		return fmt.Errorf("%w: threshold %v outside [0, 100]", ErrInvalidOptions, o.Threshold)
	}
	if _, err := match.ScorerByName(o.Scorer); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if err := o.Geocode.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// Fingerprint is a stable string identifying the options, for cache keys
func (o Options) Fingerprint() string {
	scorer := strings.ToLower(strings.TrimSpace(o.Scorer))
	if scorer == "" {
		scorer = match.ScorerRatio
	}
	g := o.Geocode
	return fmt.Sprintf("threshold=%g;scorer=%s;salt=%d;base=%g,%g;spread=%g,%g",
		o.Threshold, scorer, g.Salt, g.BaseLat, g.BaseLon, g.LatSpread, g.LonSpread)
}
