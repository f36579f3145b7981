package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Options describes a connection pool for any of the supported drivers.
type Options struct {
	Driver      string
	Path        string
	DSN         string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// Open connects to sqlite, postgres (pgx) or mysql and verifies the pool.
func Open(o Options) (*sql.DB, error) {
	switch o.Driver {
	case "", "sqlite":
		return OpenSQLite(o.Path, o.MaxOpen, o.MaxIdle, o.MaxLifetime)
	case "postgres":
		return openPool("pgx", o.DSN, o)
	case "mysql":
		return openPool("mysql", o.DSN, o)
	default:
		return nil, fmt.Errorf("unsupported driver %q", o.Driver)
	}
}

func OpenSQLite(path string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	return openPool("sqlite", dsn, Options{MaxOpen: maxOpen, MaxIdle: maxIdle, MaxLifetime: maxLifetime})
}

func openPool(driverName, dsn string, o Options) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(o.MaxOpen)
	db.SetMaxIdleConns(o.MaxIdle)
	db.SetConnMaxLifetime(o.MaxLifetime)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MigrationPath returns the schema file for a driver. The sqlite schema sits
// at the root of dir; other dialects live in a subdirectory named after the driver.
func MigrationPath(dir, driver string) string {
	switch driver {
	case "postgres", "mysql":
		return filepath.Join(dir, driver, "001_init.sql")
	default:
		return filepath.Join(dir, "001_init.sql")
	}
}
