package audit

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/match"
	"github.com/property-insights/internal/models"
)

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Entry is one recorded resolution decision
type Entry struct {
	Row        int               `json:"row"`
	Query      string            `json:"query,omitempty"`
	Candidate  *string           `json:"candidate_zip"`
	Zip        string            `json:"zip_code"`
	Confidence models.Confidence `json:"confidence"`
	Score      float64           `json:"score"`
	Canonical  bool              `json:"canonical"`
}

// Summary aggregates a run's decisions
type Summary struct {
	Total      int `json:"total"`
	Exact      int `json:"exact"`
	Fuzzy      int `json:"fuzzy"`
	Fallback   int `json:"fallback"`
	Unresolved int `json:"unresolved"` // fallback rows with no ZIP at all

	// Coverage is the share of rows carrying a resolved ZIP; 1 for an empty run
	Coverage float64 `json:"coverage"`
	// MatchRate is the share of rows resolved to a canonical ZIP
	MatchRate     float64 `json:"match_rate"`
	AvgFuzzyScore float64 `json:"avg_fuzzy_score"`
}

// Tracker records resolution decisions for one run. Not safe for concurrent use.
type Tracker struct {
	entries []Entry
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordDecision appends one decision
func (t *Tracker) RecordDecision(row int, candidate *string, d match.Decision) {
	t.entries = append(t.entries, Entry{
		Row:        row,
		Query:      d.Query,
		Candidate:  candidate,
		Zip:        d.Zip,
		Confidence: d.Confidence,
		Score:      d.Score,
		Canonical:  d.Canonical,
	})
}

// Entries returns the recorded decisions in record order
func (t *Tracker) Entries() []Entry {
	return t.entries
}

// Summary computes counts and rates over all recorded decisions
func (t *Tracker) Summary() *Summary {
	s := &Summary{Total: len(t.entries)}

	var covered, canonical int
	var fuzzyScore float64
	for _, e := range t.entries {
		switch e.Confidence {
		case models.ConfidenceExact:
			s.Exact++
		case models.ConfidenceFuzzy:
			s.Fuzzy++
			fuzzyScore += e.Score
		case models.ConfidenceFallback:
			s.Fallback++
		}
		if e.Zip == models.UnresolvedZip {
			s.Unresolved++
		}
		if e.Zip != "" {
			covered++
		}
		if e.Canonical {
			canonical++
		}
	}

	if s.Total == 0 {
		s.Coverage = 1
		return s
	}
	s.Coverage = float64(covered) / float64(s.Total)
	s.MatchRate = float64(canonical) / float64(s.Total)
	if s.Fuzzy > 0 {
		s.AvgFuzzyScore = fuzzyScore / float64(s.Fuzzy)
	}
	return s
}

// Persist writes the recorded decisions to table under runID in a single
// transaction, creating the table when missing
func (t *Tracker) Persist(ctx context.Context, localDebug bool, db *sql.DB, table, runID string) error {
	debug.DebugHeader(localDebug, "audit persist")
	defer debug.DebugFooter(localDebug, "audit persist")

	if !reTableName.MatchString(table) {
		return fmt.Errorf("invalid audit table name %q", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id        text NOT NULL,
			row_index     integer NOT NULL,
			query         text,
			candidate_zip text,
			zip_code      text NOT NULL,
			confidence    text NOT NULL,
			score         double precision NOT NULL,
			canonical     boolean NOT NULL,
			decided_at    timestamp NOT NULL,
			PRIMARY KEY (run_id, row_index)
		)`, table))
	if err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, row_index, query, candidate_zip, zip_code, confidence, score, canonical, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, table))
	if err != nil {
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer stmt.Close()

	decidedAt := time.Now().UTC()
	for _, e := range t.entries {
		var candidate sql.NullString
		if e.Candidate != nil {
			candidate = sql.NullString{String: *e.Candidate, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, runID, e.Row, e.Query, candidate, e.Zip,
			string(e.Confidence), e.Score, e.Canonical, decidedAt)
		if err != nil {
			return fmt.Errorf("failed to insert audit row %d: %w", e.Row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit: %w", err)
	}

	debug.DebugOutput(localDebug, "Persisted %d audit entries for run %s", len(t.entries), runID)
	return nil
}

// RunStatistics reads back per-confidence counts for a persisted run
func RunStatistics(ctx context.Context, db *sql.DB, table, runID string) (map[models.Confidence]int, error) {
	if !reTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid audit table name %q", table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT confidence, COUNT(*)
		FROM %s
		WHERE run_id = $1
		GROUP BY confidence
		ORDER BY confidence`, table), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run statistics: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.Confidence]int)
	for rows.Next() {
		var confidence string
		var count int
		if err := rows.Scan(&confidence, &count); err != nil {
			return nil, fmt.Errorf("failed to scan run statistics: %w", err)
		}
		stats[models.Confidence(confidence)] = count
	}
	return stats, rows.Err()
}
