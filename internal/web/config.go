package web

import (
	"time"

	"github.com/property-insights/internal/config"
)

// Config represents the web server configuration
type Config struct {
	Host         string
	Port         int
	RateLimit    float64 // requests per second per client, 0 disables
	RateBurst    int
	APIKey       string // empty disables authentication
	PollInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         8080,
		RateLimit:    20,
		RateBurst:    40,
		PollInterval: 30 * time.Second,
		ReadTimeout:  15 * time.Second,
		// exports of large runs take a while to stream
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ConfigFrom takes the web settings of the application configuration
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Host = cfg.Web.Host
	c.Port = cfg.Web.Port
	c.RateLimit = cfg.Web.RateLimit
	c.RateBurst = int(2 * cfg.Web.RateLimit)
	c.APIKey = cfg.Web.APIKey
	return c
}
