package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INSIGHTS_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Match.Threshold != 90 {
		t.Errorf("default threshold = %v, want 90", cfg.Match.Threshold)
	}
	if cfg.Match.Scorer != "ratio" {
		t.Errorf("default scorer = %q, want ratio", cfg.Match.Scorer)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("default cache backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "insights.yaml")
	yamlDoc := `
sources:
  listings_path: in/listings.csv
match:
  threshold: 85
  scorer: damerau
geocode:
  salt: 7
cache:
  backend: none
  ttl: 1m
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INSIGHTS_CONFIG", path)
	t.Setenv("MATCH_THRESHOLD", "88.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sources.ListingsPath != "in/listings.csv" {
		t.Errorf("listings path = %q", cfg.Sources.ListingsPath)
	}
	if cfg.Match.Threshold != 88.5 {
		t.Errorf("env should override YAML threshold, got %v", cfg.Match.Threshold)
	}
	if cfg.Match.Scorer != "damerau" {
		t.Errorf("scorer = %q, want damerau", cfg.Match.Scorer)
	}
	if cfg.Geocode.Salt != 7 {
		t.Errorf("salt = %d, want 7", cfg.Geocode.Salt)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("ttl = %v, want 1m", cfg.Cache.TTL)
	}
	// untouched sections keep defaults
	if cfg.Geocode.LatSpread != 12.0 {
		t.Errorf("lat spread = %v, want default 12", cfg.Geocode.LatSpread)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("INSIGHTS_CONFIG", "")
	t.Setenv("WEB_PORT", "")
	os.Unsetenv("WEB_PORT")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WEB_PORT=9191\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Web.Port != 9191 {
		t.Errorf("port from .env = %d, want 9191", cfg.Web.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INSIGHTS_CONFIG", "does-not-exist.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "12")
	t.Setenv("X_BAD", "twelve")
	t.Setenv("X_BOOL", "off")

	if got := GetEnvInt("X_INT", 1); got != 12 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("X_BAD", 1); got != 1 {
		t.Errorf("GetEnvInt with bad value = %d, want default", got)
	}
	if got := GetEnvBool("X_BOOL", true); got {
		t.Errorf("GetEnvBool(off) = true")
	}
	if got := GetEnv("X_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("GetEnv default = %q", got)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.Match.Threshold = 85
	cfg.Geocode.Salt = 3

	opts := cfg.PipelineOptions()
	if opts.Threshold != 85 || opts.Scorer != "ratio" || opts.Geocode.Salt != 3 || opts.Geocode.LonSpread != 29 {
		t.Errorf("PipelineOptions() = %+v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("default config should give valid options, got %v", err)
	}

	files := cfg.DataFiles()
	if files.ListingsPath != "data/listings.csv" || files.DemographicsPath != "data/demographics.csv" {
		t.Errorf("DataFiles() = %+v", files)
	}
}
