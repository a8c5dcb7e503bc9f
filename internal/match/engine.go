package match

import (
	"sort"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/models"
)

// Engine resolves candidate ZIPs against a fixed set of canonical ZIPs.
// It is read-only after construction and safe for concurrent use.
type Engine struct {
	zips      []string // sorted
	index     map[string]struct{}
	scorer    Scorer
	threshold float64
}

// EngineConfig holds configuration for the resolution engine
type EngineConfig struct {
	Scorer    Scorer  // nil selects Ratio
	Threshold float64 // 0..100
}

// NewEngine creates an engine over the given canonical ZIPs
func NewEngine(zips []string, config EngineConfig) *Engine {
	scorer := config.Scorer
	if scorer == nil {
		scorer = Ratio
	}

	sorted := append([]string(nil), zips...)
	sort.Strings(sorted)

	index := make(map[string]struct{}, len(sorted))
	for _, z := range sorted {
		index[z] = struct{}{}
	}

	return &Engine{
		zips:      sorted,
		index:     index,
		scorer:    scorer,
		threshold: config.Threshold,
	}
}

// IsCanonical reports whether zip is a key of the reference table
func (e *Engine) IsCanonical(zip string) bool {
	_, ok := e.index[zip]
	return ok
}

// Threshold returns the fuzzy acceptance threshold
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Resolve maps one input to a ZIP: exact, then fuzzy at or above the
// threshold, then the candidate verbatim or models.UnresolvedZip
func (e *Engine) Resolve(localDebug bool, in Input) Decision {
	if in.Candidate != nil && e.IsCanonical(*in.Candidate) {
		debug.DebugOutput(localDebug, "Exact match: %s", *in.Candidate)
		return Decision{Zip: *in.Candidate, Confidence: models.ConfidenceExact, Score: 100, Canonical: true}
	}

	q := query(in)
	var top Candidate
	if q != "" && len(e.zips) > 0 {
		top = best(e.scorer, e.zips, q)
		debug.DebugOutput(localDebug, "Best fuzzy match for %q: %s (%.2f, threshold %.2f)", q, top.Zip, top.Score, e.threshold)
		if top.Score >= e.threshold {
			return Decision{Zip: top.Zip, Confidence: models.ConfidenceFuzzy, Score: top.Score, Query: q, Canonical: true}
		}
	}

	fallback := models.UnresolvedZip
	if in.Candidate != nil && *in.Candidate != "" {
		fallback = *in.Candidate
	}
	debug.DebugOutput(localDebug, "Falling back to %s", fallback)
	return Decision{Zip: fallback, Confidence: models.ConfidenceFallback, Score: top.Score, Query: q}
}

// Suggest returns the n best canonical ZIPs for free text, for explaining
// a decision
func (e *Engine) Suggest(text string, n int) []Candidate {
	if text == "" {
		return nil
	}
	return rank(e.scorer, e.zips, text, n)
}
