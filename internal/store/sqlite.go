package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/policywatch/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetValue returns the value stored under key and whether it exists.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting kv %q: %w", key, err)
	}
	return value, true, nil
}

// SetValue writes value under key, replacing any previous value.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting kv %q: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Deleting an absent key is not an error.
func (s *SQLiteStore) DeleteValue(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting kv %q: %w", key, err)
	}
	return nil
}

// ReplaceAlerts replaces the entire cached alert list in one transaction.
func (s *SQLiteStore) ReplaceAlerts(ctx context.Context, alerts []model.Alert) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM alerts"); err != nil {
		return fmt.Errorf("clearing alert cache: %w", err)
	}

	const query = `
		INSERT INTO alerts (
			id, source_key, statuses, categories,
			enabled, muted, created_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing alert insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range alerts {
		statuses, categories, err := marshalAlertFilters(a)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			a.ID, a.SourceKey, statuses, categories,
			boolToInt(a.Enabled), boolToInt(a.Muted),
			a.CreatedAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("caching alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// GetAlerts returns all cached alerts ordered by creation time descending.
func (s *SQLiteStore) GetAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM alerts ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// GetAlertByID returns a single cached alert, or nil when absent.
func (s *SQLiteStore) GetAlertByID(ctx context.Context, id string) (*model.Alert, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM alerts WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying alert %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	a, err := scanAlert(rows)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAlert inserts or replaces one cached alert row.
func (s *SQLiteStore) UpsertAlert(ctx context.Context, alert model.Alert) error {
	statuses, categories, err := marshalAlertFilters(alert)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (
			id, source_key, statuses, categories,
			enabled, muted, created_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.SourceKey, statuses, categories,
		boolToInt(alert.Enabled), boolToInt(alert.Muted),
		alert.CreatedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting alert %s: %w", alert.ID, err)
	}
	return nil
}

// DeleteAlert removes one cached alert row.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting alert %s: %w", id, err)
	}
	return nil
}

// marshalAlertFilters serializes the alert's filter lists for storage.
func marshalAlertFilters(a model.Alert) (statuses, categories string, err error) {
	sb, err := json.Marshal(a.Statuses)
	if err != nil {
		return "", "", fmt.Errorf("marshaling statuses for alert %s: %w", a.ID, err)
	}
	cb, err := json.Marshal(a.Categories)
	if err != nil {
		return "", "", fmt.Errorf("marshaling categories for alert %s: %w", a.ID, err)
	}
	return string(sb), string(cb), nil
}

// scanAlert scans an alert row from a sqlx.Rows result set.
func scanAlert(rows *sqlx.Rows) (model.Alert, error) {
	var (
		a          model.Alert
		statuses   string
		categories string
		enabled    int
		muted      int
		createdAt  time.Time
		fetchedAt  time.Time
	)

	err := rows.Scan(
		&a.ID, &a.SourceKey, &statuses, &categories,
		&enabled, &muted, &createdAt, &fetchedAt,
	)
	if err != nil {
		return model.Alert{}, fmt.Errorf("scanning alert row: %w", err)
	}

	a.Enabled = enabled != 0
	a.Muted = muted != 0
	a.CreatedAt = createdAt

	if statuses != "" {
		if err := json.Unmarshal([]byte(statuses), &a.Statuses); err != nil {
			return model.Alert{}, fmt.Errorf("unmarshaling statuses: %w", err)
		}
	}
	if categories != "" {
		if err := json.Unmarshal([]byte(categories), &a.Categories); err != nil {
			return model.Alert{}, fmt.Errorf("unmarshaling categories: %w", err)
		}
	}

	return a, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
