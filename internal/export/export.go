package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/property-insights/internal/models"
)

// Output formats
const (
	FormatCSV       = "csv"
	FormatJSON      = "json"
	FormatGeoJSON   = "geojson"
	FormatPostgres  = "postgres"
	FormatSQLite    = "sqlite"
	FormatShapefile = "shapefile"
)

// ErrUnknownFormat is returned for an unsupported output format
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported output formats
func Formats() []string {
	return []string{FormatCSV, FormatJSON, FormatGeoJSON, FormatPostgres, FormatSQLite, FormatShapefile}
}

// Sink receives the enriched rows of one run
type Sink interface {
	Write(ctx context.Context, props []models.EnrichedProperty) error
}

// Target says where a sink writes. Path is used by the file formats;
// DB, Table and RunID by the SQL formats.
type Target struct {
	Path  string
	DB    *sql.DB
	Table string
	RunID string
}

// New builds the sink for format
func New(format string, target Target) (Sink, error) {
	switch format {
	case FormatCSV, FormatJSON, FormatGeoJSON, FormatShapefile:
		if target.Path == "" {
			return nil, fmt.Errorf("%s export needs an output path", format)
		}
	case FormatPostgres, FormatSQLite:
		if target.DB == nil {
			return nil, fmt.Errorf("%s export needs a database connection", format)
		}
	}

	switch format {
	case FormatCSV:
		return &CSVSink{Path: target.Path}, nil
	case FormatJSON:
		return &JSONSink{Path: target.Path}, nil
	case FormatGeoJSON:
		return &GeoJSONSink{Path: target.Path}, nil
	case FormatShapefile:
		return &ShapefileSink{Path: target.Path}, nil
	case FormatPostgres, FormatSQLite:
		table := target.Table
		if table == "" {
			table = DefaultTable
		}
		return &SQLSink{DB: target.DB, Table: table, RunID: target.RunID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// createFile opens path for writing, creating parent directories
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
