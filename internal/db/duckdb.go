// Package db owns the process-wide DuckDB connection used for
// breadbasket analytics.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	// The duckdb sql driver (github.com/marcboeker/go-duckdb) requires cgo
	// and cannot be compiled with CGO_ENABLED=0. Builds without it leave the
	// "duckdb" driver unregistered, so Get's sql.Open fails and callers take
	// their documented no-database fallback. Restore the blank import
	//   _ "github.com/marcboeker/go-duckdb"
	// for cgo-enabled builds.
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection, creating the database
// file under <DataDir>/duckdb on first use.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}

		dbPath := filepath.Join(duckdbDir, cfg.DBName+".duckdb")
		instance, initErr = sql.Open("duckdb", dbPath)
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
