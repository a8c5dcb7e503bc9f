package loader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/models"
)

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// LoadDemographicsSQL reads the reference table from a database table with
// columns zip_code, median_income, school_rating and crime_index
func LoadDemographicsSQL(ctx context.Context, db *sql.DB, table string) ([]models.DemographicRecord, error) {
	localDebug := debug.Enabled()

	if !reTableName.MatchString(table) {
		return nil, mismatch(SourceDemographics, table, "invalid table name")
	}

	query := fmt.Sprintf(`
		SELECT zip_code, median_income, school_rating, crime_index
		FROM %s
		ORDER BY zip_code
	`, table)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable(SourceDemographics, table, err)
	}
	defer rows.Close()

	var records []models.DemographicRecord
	for rows.Next() {
		var zip, crime sql.NullString
		var income, school sql.RawBytes
		if err := rows.Scan(&zip, &income, &school, &crime); err != nil {
			return nil, unavailable(SourceDemographics, table, err)
		}

		rec := models.DemographicRecord{
			ZipCode:      strings.TrimSpace(zip.String),
			MedianIncome: parseNullableFloat(string(income)),
			SchoolRating: parseNullableFloat(string(school)),
		}
		if crime.Valid {
			rec.CrimeIndex = nullIfEmpty(strings.TrimSpace(crime.String))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(SourceDemographics, table, err)
	}

	debug.DebugOutput(localDebug, "Read %d demographic rows from table %s", len(records), table)
	return records, nil
}
