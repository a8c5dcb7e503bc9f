package export

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/models"
)

// DefaultTable receives enriched rows when no table is configured
const DefaultTable = "enriched_properties"

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSink writes enriched rows to a Postgres or SQLite table. The column
// types and $N placeholders are accepted by both drivers.
type SQLSink struct {
	DB    *sql.DB
	Table string
	RunID string
}

// Write replaces the rows of s.RunID in a single transaction
func (s *SQLSink) Write(ctx context.Context, props []models.EnrichedProperty) error {
	localDebug := debug.Enabled()
	debug.DebugHeader(localDebug, "sql export")
	defer debug.DebugFooter(localDebug, "sql export")
	defer debug.DebugTiming(localDebug, "sql export")()

	if !reTableName.MatchString(s.Table) {
		return fmt.Errorf("invalid export table name %q", s.Table)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTable(ctx, tx, s.Table); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE run_id = $1`, s.Table), s.RunID); err != nil {
		return fmt.Errorf("failed to clear previous rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			run_id, row_index, raw_address, address, price, bedrooms, sq_ft,
			candidate_zip, zip_code, confidence, match_score,
			median_income, school_rating, crime_index,
			price_per_sqft, latitude, longitude, geohash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`, s.Table))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range props {
		_, err := stmt.ExecContext(ctx,
			s.RunID, p.Row, p.RawAddress, p.Address,
			nullFloat(p.Price), nullInt(p.Bedrooms), nullFloat(p.SqFt),
			nullString(p.CandidateZip), p.ZipCode, string(p.Confidence), p.MatchScore,
			nullFloat(p.MedianIncome), nullFloat(p.SchoolRating), nullString(p.CrimeIndex),
			nullFloat(p.PricePerSqFt), p.Latitude, p.Longitude, p.Geohash,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", p.Row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}

	debug.DebugOutput(localDebug, "Exported %d rows to %s for run %s", len(props), s.Table, s.RunID)
	return nil
}

func createTable(ctx context.Context, tx *sql.Tx, table string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id         text NOT NULL,
			row_index      integer NOT NULL,
			raw_address    text NOT NULL,
			address        text NOT NULL,
			price          double precision,
			bedrooms       integer,
			sq_ft          double precision,
			candidate_zip  text,
			zip_code       text NOT NULL,
			confidence     text NOT NULL,
			match_score    double precision NOT NULL,
			median_income  double precision,
			school_rating  double precision,
			crime_index    text,
			price_per_sqft double precision,
			latitude       double precision NOT NULL,
			longitude      double precision NOT NULL,
			geohash        text NOT NULL,
			PRIMARY KEY (run_id, row_index)
		)`, table))
	if err != nil {
		return fmt.Errorf("failed to create export table: %w", err)
	}
	return nil
}

// ReadSQL loads the rows written for runID, ordered by row index
func ReadSQL(ctx context.Context, db *sql.DB, table, runID string) ([]models.EnrichedProperty, error) {
	if !reTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid export table name %q", table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT row_index, raw_address, address, price, bedrooms, sq_ft,
		       candidate_zip, zip_code, confidence, match_score,
		       median_income, school_rating, crime_index,
		       price_per_sqft, latitude, longitude, geohash
		FROM %s
		WHERE run_id = $1
		ORDER BY row_index`, table), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var props []models.EnrichedProperty
	for rows.Next() {
		var p models.EnrichedProperty
		var price, sqft, income, school, ppsf sql.NullFloat64
		var bedrooms sql.NullInt64
		var candidate, crime sql.NullString
		var confidence string

		err := rows.Scan(&p.Row, &p.RawAddress, &p.Address, &price, &bedrooms, &sqft,
			&candidate, &p.ZipCode, &confidence, &p.MatchScore,
			&income, &school, &crime,
			&ppsf, &p.Latitude, &p.Longitude, &p.Geohash)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		p.Confidence = models.Confidence(confidence)
		p.Price = fromNullFloat(price)
		p.SqFt = fromNullFloat(sqft)
		p.MedianIncome = fromNullFloat(income)
		p.SchoolRating = fromNullFloat(school)
		p.PricePerSqFt = fromNullFloat(ppsf)
		if bedrooms.Valid {
			p.Bedrooms = models.Int(int(bedrooms.Int64))
		}
		if candidate.Valid {
			p.CandidateZip = models.String(candidate.String)
		}
		if crime.Valid {
			p.CrimeIndex = models.String(crime.String)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}
