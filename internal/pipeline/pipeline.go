// Package pipeline sequences Loader, Cleaner and Merger into one run.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/property-insights/internal/audit"
	"github.com/property-insights/internal/cleaner"
	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/geocode"
	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/match"
	"github.com/property-insights/internal/merger"
	"github.com/property-insights/internal/models"
)

// Report describes how a run went
type Report struct {
	Options    Options        `json:"options"`
	Cleaning   cleaner.Stats  `json:"cleaning"`
	Resolution *audit.Summary `json:"resolution"`
	Audit      *audit.Tracker `json:"-"`
	Timings    Timings        `json:"timings"`
}

// Timings records per-stage wall time
type Timings struct {
	Load  time.Duration `json:"load"`
	Clean time.Duration `json:"clean"`
	Merge time.Duration `json:"merge"`
	Total time.Duration `json:"total"`
}

// Result is the output of one run
type Result struct {
	RunID        string                     `json:"run_id"`
	SourceKey    string                     `json:"source_key,omitempty"` // set by callers that hash the inputs
	Properties   []models.EnrichedProperty  `json:"properties"`
	Demographics []models.DemographicRecord `json:"demographics"`
	Report       Report                     `json:"report"`
}

// Execute loads both tables from disk and runs the pipeline
func Execute(files loader.DataFiles, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	listings, demographics, err := loader.Load(files)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	loaded := time.Since(start)

	result, err := Run(listings, demographics, opts)
	if err != nil {
		return nil, err
	}
	result.Report.Timings.Load = loaded
	result.Report.Timings.Total += loaded
	return result, nil
}

// Run cleans and merges in-memory tables. Same inputs and options give the
// same properties.
func Run(listings []models.RawListing, demographics []models.DemographicRecord, opts Options) (*Result, error) {
	localDebug := debug.Enabled()
	debug.DebugHeader(localDebug, "pipeline")
	defer debug.DebugFooter(localDebug, "pipeline")

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	scorer, err := match.ScorerByName(opts.Scorer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	runStart := time.Now()

	ref, err := merger.NewReference(demographics)
	if err != nil {
		return nil, fmt.Errorf("failed to index demographics: %w", err)
	}

	cleanStart := time.Now()
	cleaned, stats := cleaner.New().Clean(listings)
	cleanTime := time.Since(cleanStart)

	mergeStart := time.Now()
	properties, tracker, err := merger.Merge(cleaned, ref, merger.Options{
		Threshold: opts.Threshold,
		Scorer:    scorer,
		Geocoder:  geocode.NewSynthetic(opts.Geocode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge: %w", err)
	}
	mergeTime := time.Since(mergeStart)

	summary := tracker.Summary()
	debug.DebugOutput(localDebug, "Resolved %d listings: %d exact, %d fuzzy, %d fallback (%d unresolved)",
		summary.Total, summary.Exact, summary.Fuzzy, summary.Fallback, summary.Unresolved)

	return &Result{
		RunID:        uuid.NewString(),
		Properties:   properties,
		Demographics: ref.Records(),
		Report: Report{
			Options:    opts,
			Cleaning:   stats,
			Resolution: summary,
			Audit:      tracker,
			Timings: Timings{
				Clean: cleanTime,
				Merge: mergeTime,
				Total: time.Since(runStart),
			},
		},
	}, nil
}
