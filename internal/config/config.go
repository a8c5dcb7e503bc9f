package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/property-insights/internal/geocode"
	"github.com/property-insights/internal/loader"
	"github.com/property-insights/internal/pipeline"
)

// Config holds every recognised setting for the CLI and web server
type Config struct {
	Sources  SourcesConfig  `yaml:"sources"`
	Match    MatchConfig    `yaml:"match"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Web      WebConfig      `yaml:"web"`
	Debug    bool           `yaml:"debug"`
}

// SourcesConfig locates the two input tables
type SourcesConfig struct {
	ListingsPath      string `yaml:"listings_path"`
	DemographicsPath  string `yaml:"demographics_path"`
	DemographicsTable string `yaml:"demographics_table"` // read from Database instead of a file when set
}

// MatchConfig controls ZIP resolution
type MatchConfig struct {
	Threshold float64 `yaml:"threshold"`
	Scorer    string  `yaml:"scorer"`
}

// GeocodeConfig controls synthetic coordinates
type GeocodeConfig struct {
	Salt      uint64  `yaml:"salt"`
	BaseLat   float64 `yaml:"base_lat"`
	BaseLon   float64 `yaml:"base_lon"`
	LatSpread float64 `yaml:"lat_spread"`
	LonSpread float64 `yaml:"lon_spread"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver         string `yaml:"driver"` // postgres or sqlite3
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
}

// CacheConfig selects the memo store used by the web server
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory, redis or none
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// WebConfig contains HTTP server settings
type WebConfig struct {
	Host      string  `yaml:"host"`
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client, 0 disables
	APIKey    string  `yaml:"api_key"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			ListingsPath:     "data/listings.csv",
			DemographicsPath: "data/demographics.csv",
		},
		Match: MatchConfig{
			Threshold: 90,
			Scorer:    "ratio",
		},
		Geocode: GeocodeConfig{
			BaseLat:   37.0,
			BaseLon:   -95.0,
			LatSpread: 12.0,
			LonSpread: 29.0,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			MaxConnections: 10,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			TTL:       10 * time.Minute,
			RedisAddr: "localhost:6379",
		},
		Web: WebConfig{
			Host:      "localhost",
			Port:      8080,
			RateLimit: 20,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// INSIGHTS_CONFIG, then environment overrides. A .env file is honoured.
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("INSIGHTS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file at '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Sources.ListingsPath = GetEnv("LISTINGS_PATH", c.Sources.ListingsPath)
	c.Sources.DemographicsPath = GetEnv("DEMOGRAPHICS_PATH", c.Sources.DemographicsPath)
	c.Sources.DemographicsTable = GetEnv("DEMOGRAPHICS_TABLE", c.Sources.DemographicsTable)

	c.Match.Threshold = GetEnvFloat("MATCH_THRESHOLD", c.Match.Threshold)
	c.Match.Scorer = GetEnv("MATCH_SCORER", c.Match.Scorer)

	c.Geocode.Salt = GetEnvUint64("GEOCODE_SALT", c.Geocode.Salt)
	c.Geocode.BaseLat = GetEnvFloat("GEOCODE_BASE_LAT", c.Geocode.BaseLat)
	c.Geocode.BaseLon = GetEnvFloat("GEOCODE_BASE_LON", c.Geocode.BaseLon)
	c.Geocode.LatSpread = GetEnvFloat("GEOCODE_LAT_SPREAD", c.Geocode.LatSpread)
	c.Geocode.LonSpread = GetEnvFloat("GEOCODE_LON_SPREAD", c.Geocode.LonSpread)

	c.Database.Driver = GetEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = GetEnv("DATABASE_URL", c.Database.URL)
	c.Database.MaxConnections = GetEnvInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections)

	c.Cache.Backend = GetEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.TTL = GetEnvDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisAddr = GetEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = GetEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = GetEnvInt("REDIS_DB", c.Cache.RedisDB)

	c.Web.Host = GetEnv("WEB_HOST", c.Web.Host)
	c.Web.Port = GetEnvInt("WEB_PORT", c.Web.Port)
	c.Web.RateLimit = GetEnvFloat("WEB_RATE_LIMIT", c.Web.RateLimit)
	c.Web.APIKey = GetEnv("WEB_API_KEY", c.Web.APIKey)

	c.Debug = GetEnvBool("DEBUG", c.Debug)
}

// PipelineOptions converts the match and geocode sections into run options
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Threshold: c.Match.Threshold,
		Scorer:    c.Match.Scorer,
		Geocode: geocode.Options{
			Salt:      c.Geocode.Salt,
			BaseLat:   c.Geocode.BaseLat,
			BaseLon:   c.Geocode.BaseLon,
			LatSpread: c.Geocode.LatSpread,
			LonSpread: c.Geocode.LonSpread,
		},
	}
}

// DataFiles returns the configured input paths
func (c *Config) DataFiles() loader.DataFiles {
	return loader.DataFiles{
		ListingsPath:     c.Sources.ListingsPath,
		DemographicsPath: c.Sources.DemographicsPath,
	}
}
