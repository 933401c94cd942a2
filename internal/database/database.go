package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
)

const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Open returns the process-wide handle used by the schema introspector and the SQL tool.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driver, dsn, err := ResolveDriver(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	return db, nil
}

// ResolveDriver maps a connection URL onto a registered database/sql driver.
// Postgres URLs are passed to pgx unchanged; duckdb:// URLs and bare .duckdb/.db
// paths open a DuckDB file ("duckdb://" alone is an in-memory database).
func ResolveDriver(rawURL string) (driver string, dsn string, err error) {
	value := strings.TrimSpace(rawURL)
	if value == "" {
		return "", "", fmt.Errorf("database url is required")
	}
	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, value, nil
	case strings.HasPrefix(lower, "postgresql+psycopg2://"):
		return DriverPostgres, "postgresql://" + value[len("postgresql+psycopg2://"):], nil
	case strings.HasPrefix(lower, "duckdb://"):
		return DriverDuckDB, value[len("duckdb://"):], nil
	case strings.HasSuffix(lower, ".duckdb"), strings.HasSuffix(lower, ".db"):
		return DriverDuckDB, value, nil
	}
	scheme, _, _ := strings.Cut(value, "://")
	return "", "", fmt.Errorf("unsupported database url scheme %q", scheme)
}

// Dialect names the SQL flavour the agent should write for a driver.
func Dialect(driver string) string {
	if driver == DriverDuckDB {
		return "DuckDB (PostgreSQL-like)"
	}
	return "PostgreSQL"
}

// SchemaName maps the configured schema onto the driver. DuckDB keeps user
// tables in "main", so the Postgres default "public" is translated.
func SchemaName(driver, configured string) string {
	if driver == DriverDuckDB && (configured == "" || configured == "public") {
		return "main"
	}
	if configured == "" {
		return "public"
	}
	return configured
}
