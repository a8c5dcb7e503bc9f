package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/property-insights/internal/config"
)

// Connection holds the database connection
type Connection struct {
	DB     *sql.DB
	Driver string
}

// NewConnection opens and pings the configured database
func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("no database URL configured for %s", driver)
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	if driver == "sqlite3" {
		// one writer at a time
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)

	return &Connection{DB: db, Driver: driver}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
