// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tripperhq/tripper/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// bumpTripVersion atomically increments the trip's version inside tx if it
// still matches expected. This is the single point every guarded mutation
// goes through; losing the compare-and-swap means another writer committed
// first and the caller's derived state is stale.
func bumpTripVersion(ctx context.Context, tx *sql.Tx, tripID string, expected int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE trips SET version = version + 1 WHERE id = ? AND version = ?",
		tripID, expected,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bump trip version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM trips WHERE id = ?", tripID).Scan(&one)
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("trip %s: %w", tripID, storage.ErrNotFound)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to check trip existence: %w", err)
		}
		return 0, fmt.Errorf("trip %s: %w", tripID, storage.ErrVersionConflict)
	}
	return expected + 1, nil
}

// scanDecimal parses a TEXT money column.
func scanDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stored amount %q: %w", raw, err)
	}
	return d, nil
}
