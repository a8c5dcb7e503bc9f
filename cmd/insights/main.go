package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/property-insights/internal/config"
	"github.com/property-insights/internal/db"
	"github.com/property-insights/internal/export"
	"github.com/property-insights/internal/geocode"
	"github.com/property-insights/internal/insights"
	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/match"
	"github.com/property-insights/internal/merger"
	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/pipeline"
)

var (
	// Configuration shared by every subcommand
	cfg *config.Config
)

func main() {
	var err error

	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "insights",
		Short: "Property insights pipeline",
		Long:  `Cleans property listings, resolves their ZIP codes against a demographics table and enriches them with demographics and coordinates`,
	}

	// Add subcommands
	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createGeocodeCmd())
	rootCmd.AddCommand(createKPIsCmd())
	rootCmd.AddCommand(createPingCmd())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// addSourceFlags binds the input locations and match settings to cfg
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Sources.ListingsPath, "listings", cfg.Sources.ListingsPath, "Listings CSV")
	cmd.Flags().StringVar(&cfg.Sources.DemographicsPath, "demographics", cfg.Sources.DemographicsPath, "Demographics CSV")
	cmd.Flags().StringVar(&cfg.Sources.DemographicsTable, "demographics-table", cfg.Sources.DemographicsTable, "Read demographics from this database table instead of a file")
	cmd.Flags().Float64Var(&cfg.Match.Threshold, "threshold", cfg.Match.Threshold, "Fuzzy acceptance threshold (0-100)")
	cmd.Flags().StringVar(&cfg.Match.Scorer, "scorer", cfg.Match.Scorer, "Fuzzy scorer: "+strings.Join(match.ScorerNames(), ", "))
	cmd.Flags().Uint64Var(&cfg.Geocode.Salt, "salt", cfg.Geocode.Salt, "Geocoder salt")
}

// loadDemographics reads the reference table from the file or, when a table
// is configured, from the database
func loadDemographics(ctx context.Context) ([]models.DemographicRecord, error) {
	if cfg.Sources.DemographicsTable == "" {
		return loader.LoadDemographics(cfg.Sources.DemographicsPath)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return loader.LoadDemographicsSQL(ctx, conn.DB, cfg.Sources.DemographicsTable)
}

// execute runs the pipeline over the configured sources
func execute(ctx context.Context) (*pipeline.Result, error) {
	opts := cfg.PipelineOptions()
	if cfg.Sources.DemographicsTable == "" {
		return pipeline.Execute(cfg.DataFiles(), opts)
	}

	listings, err := loader.LoadListings(cfg.Sources.ListingsPath)
	if err != nil {
		return nil, err
	}
	demographics, err := loadDemographics(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(listings, demographics, opts)
}

func createRunCmd() *cobra.Command {
	var outPath string
	var format string
	var table string
	var auditTable string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline and write the enriched properties",
		Long: `Load both tables, clean the listings, resolve and enrich them, then write the result.
File formats (csv, json, geojson, shapefile) write to --out. The postgres format writes
to the configured DATABASE_URL; sqlite writes to the database file at --out.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			result, err := execute(ctx)
			if err != nil {
				log.Fatalf("Pipeline failed: %v", err)
			}
			printSummary(result)

			target := export.Target{Path: outPath, Table: table, RunID: result.RunID}
			var conn *db.Connection
			switch format {
			case export.FormatPostgres:
				conn, err = db.NewConnection(ctx, cfg.Database)
			case export.FormatSQLite:
				conn, err = db.NewConnection(ctx, config.DatabaseConfig{Driver: "sqlite3", URL: outPath})
			default:
				if auditTable != "" && cfg.Database.URL != "" {
					conn, err = db.NewConnection(ctx, cfg.Database)
				}
			}
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			if conn != nil {
				defer conn.Close()
				target.DB = conn.DB
			}

			sink, err := export.New(format, target)
			if err != nil {
				log.Fatalf("Failed to create %s sink: %v", format, err)
			}
			if err := sink.Write(ctx, result.Properties); err != nil {
				log.Fatalf("Failed to write %s output: %v", format, err)
			}
			fmt.Printf("Wrote %d properties as %s\n", len(result.Properties), format)

			if auditTable != "" {
				if conn == nil {
					log.Fatalf("--audit-table needs a database (set DATABASE_URL or use a SQL format)")
				}
				if err := result.Report.Audit.Persist(ctx, cfg.Debug, conn.DB, auditTable, result.RunID); err != nil {
					log.Fatalf("Failed to persist audit trail: %v", err)
				}
				fmt.Printf("Audit trail saved to %s\n", auditTable)
			}
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "enriched_properties.csv", "Output path")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatCSV, "Output format: "+strings.Join(export.Formats(), ", "))
	cmd.Flags().StringVar(&table, "table", export.DefaultTable, "Table for SQL formats")
	cmd.Flags().StringVar(&auditTable, "audit-table", "", "Also save resolution decisions to this table")

	return cmd
}

func printSummary(result *pipeline.Result) {
	report := result.Report
	res := report.Resolution

	fmt.Printf("\n=== Run %s ===\n", result.RunID)
	fmt.Printf("Listings:       %d (%d missing a ZIP)\n", report.Cleaning.Rows, report.Cleaning.MissingZip)
	fmt.Printf("Demographics:   %d ZIP codes\n", len(result.Demographics))
	fmt.Printf("Exact matches:  %d\n", res.Exact)
	fmt.Printf("Fuzzy matches:  %d (avg score %.1f)\n", res.Fuzzy, res.AvgFuzzyScore)
	fmt.Printf("Fallbacks:      %d (%d unresolved)\n", res.Fallback, res.Unresolved)
	fmt.Printf("Coverage:       %.1f%%\n", res.Coverage*100)
	fmt.Printf("Match rate:     %.1f%%\n", res.MatchRate*100)
	for field, n := range report.Cleaning.CoercionFailures {
		fmt.Printf("Unparseable %s: %d\n", field, n)
	}
	fmt.Printf("Took %v (clean %v, merge %v)\n\n", report.Timings.Total, report.Timings.Clean, report.Timings.Merge)
}

func createResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [zip-or-address]",
		Short: "Resolve one ZIP code or address against the demographics table",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			demographics, err := loadDemographics(cmd.Context())
			if err != nil {
				log.Fatalf("Failed to load demographics: %v", err)
			}
			ref, err := merger.NewReference(demographics)
			if err != nil {
				log.Fatalf("Failed to index demographics: %v", err)
			}
			scorer, err := match.ScorerByName(cfg.Match.Scorer)
			if err != nil {
				log.Fatalf("Invalid scorer: %v", err)
			}

			cleaned, decision, err := merger.ResolveText(args[0], ref, merger.Options{
				Threshold: cfg.Match.Threshold,
				Scorer:    scorer,
			})
			if err != nil {
				log.Fatalf("Failed to resolve: %v", err)
			}

			candidate := "(none)"
			if cleaned.CandidateZip != nil {
				candidate = *cleaned.CandidateZip
			}
			fmt.Printf("Candidate:  %s\n", candidate)
			fmt.Printf("ZIP code:   %s\n", decision.Zip)
			fmt.Printf("Confidence: %s (score %.1f)\n", decision.Confidence, decision.Score)
			if rec, ok := ref.Lookup(decision.Zip); ok {
				fmt.Printf("Demographics: %s\n", describe(rec))
			}
		},
	}

	addSourceFlags(cmd)
	return cmd
}

// describe renders a demographic record on one line, with "-" for nulls
func describe(rec models.DemographicRecord) string {
	num := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%g", *v)
	}
	crime := "-"
	if rec.CrimeIndex != nil {
		crime = *rec.CrimeIndex
	}
	return fmt.Sprintf("income %s, school %s, crime %s", num(rec.MedianIncome), num(rec.SchoolRating), crime)
}

func createGeocodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geocode [zip]",
		Short: "Print the deterministic coordinates for a ZIP code",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			opts := cfg.PipelineOptions().Geocode
			if err := opts.Validate(); err != nil {
				log.Fatalf("Invalid geocode options: %v", err)
			}
			point, err := geocode.NewSynthetic(opts).Geocode(strings.TrimSpace(args[0]))
			if err != nil {
				log.Fatalf("Failed to geocode: %v", err)
			}
			fmt.Printf("%.6f, %.6f (geohash %s)\n", point.Latitude, point.Longitude, point.Geohash)
		},
	}

	cmd.Flags().Uint64Var(&cfg.Geocode.Salt, "salt", cfg.Geocode.Salt, "Geocoder salt")
	return cmd
}

func createKPIsCmd() *cobra.Command {
	var filter insights.Filter
	var minPrice, maxPrice, minIncome, minSchool, maxSchool float64

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Print dashboard KPIs for the filtered properties",
		Run: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			bind := func(name string, v float64) *float64 {
				if flags.Changed(name) {
					return &v
				}
				return nil
			}
			filter.MinPrice = bind("min-price", minPrice)
			filter.MaxPrice = bind("max-price", maxPrice)
			filter.MinIncome = bind("min-income", minIncome)
			filter.MinSchool = bind("min-school", minSchool)
			filter.MaxSchool = bind("max-school", maxSchool)

			result, err := execute(cmd.Context())
			if err != nil {
				log.Fatalf("Pipeline failed: %v", err)
			}

			props := insights.Apply(result.Properties, filter)
			out := struct {
				RunID string              `json:"run_id"`
				KPIs  insights.KPIs       `json:"kpis"`
				Zips  []insights.ZipStats `json:"zips"`
			}{
				RunID: result.RunID,
				KPIs:  insights.Compute(props),
				Zips:  insights.ByZip(props),
			}
			if err := export.WriteJSON(os.Stdout, out); err != nil {
				log.Fatalf("Failed to print KPIs: %v", err)
			}
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringSliceVar(&filter.Zips, "zip", nil, "Only these ZIP codes")
	cmd.Flags().StringSliceVar(&filter.Crime, "crime", nil, "Only these crime levels")
	cmd.Flags().IntSliceVar(&filter.Bedrooms, "bedrooms", nil, "Only these bedroom counts")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Minimum listing price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum listing price")
	cmd.Flags().Float64Var(&minIncome, "min-income", 0, "Minimum median income")
	cmd.Flags().Float64Var(&minSchool, "min-school", 0, "Minimum school rating")
	cmd.Flags().Float64Var(&maxSchool, "max-school", 0, "Maximum school rating")

	return cmd
}

// createPingCmd creates a command to test database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			conn, err := db.NewConnection(ctx, cfg.Database)
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			defer conn.Close()

			fmt.Printf("Database connection successful! (%s)\n", conn.Driver)

			if table := cfg.Sources.DemographicsTable; table != "" {
				records, err := loader.LoadDemographicsSQL(ctx, conn.DB, table)
				if err != nil {
					log.Printf("Error reading %s: %v", table, err)
				} else {
					fmt.Printf("Demographic rows in %s: %d\n", table, len(records))
				}
			}
		},
	}
}
