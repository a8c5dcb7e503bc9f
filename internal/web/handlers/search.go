package handlers

import (
	"net/http"
	"strings"

	"github.com/property-insights/internal/match"
	"github.com/property-insights/internal/merger"
)

// DefaultSuggestions is how many ranked ZIPs a search returns when limit is unset
const DefaultSuggestions = 5

// SearchHandler resolves free text against the reference ZIPs
type SearchHandler struct {
	Source Source
}

// SearchResponse explains how a query resolves
type SearchResponse struct {
	Query       string         `json:"query"`
	Candidate   *string        `json:"candidate_zip"`
	Decision    match.Decision `json:"decision"`
	Suggestions []Suggestion   `json:"suggestions"`
}

// Suggestion is a ranked canonical ZIP with its demographics
type Suggestion struct {
	ZipCode      string   `json:"zip_code"`
	Score        float64  `json:"score"`
	MedianIncome *float64 `json:"median_income"`
	SchoolRating *float64 `json:"school_rating"`
	CrimeIndex   *string  `json:"crime_index"`
}

// SearchZips resolves ?q= as a listing whose only field is that text and
// ranks the closest canonical ZIPs
func (h *SearchHandler) SearchZips(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	limit, err := parseIntParam(r.URL.Query(), "limit", DefaultSuggestions)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}

	cleaned, decision, err := merger.ResolveText(q, snap.Reference, snap.Resolve)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	engine := match.NewEngine(snap.Reference.Zips(), match.EngineConfig{
		Scorer:    snap.Resolve.Scorer,
		Threshold: snap.Resolve.Threshold,
	})
	text := decision.Query
	if text == "" && cleaned.CandidateZip != nil {
		text = *cleaned.CandidateZip
	}
	suggestions := make([]Suggestion, 0, limit)
	for _, c := range engine.Suggest(text, limit) {
		s := Suggestion{ZipCode: c.Zip, Score: c.Score}
		if rec, ok := snap.Reference.Lookup(c.Zip); ok {
			s.MedianIncome, s.SchoolRating, s.CrimeIndex = rec.MedianIncome, rec.SchoolRating, rec.CrimeIndex
		}
		suggestions = append(suggestions, s)
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:       q,
		Candidate:   cleaned.CandidateZip,
		Decision:    decision,
		Suggestions: suggestions,
	})
}
