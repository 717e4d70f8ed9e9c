package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/greyfold/teletask-bridge/internal/infrastructure/config"
)

const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute

	// defaultHistoryLimit caps queries that pass no explicit limit.
	defaultHistoryLimit = 50

	// maxHistoryLimit is the hard ceiling for a single query.
	maxHistoryLimit = 200
)

// schema is applied on every open. IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS event_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	function   TEXT    NOT NULL,
	address    INTEGER NOT NULL,
	state      INTEGER NOT NULL,
	source     TEXT    NOT NULL DEFAULT 'bus',
	created_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
) STRICT;
CREATE INDEX IF NOT EXISTS idx_event_history_device ON event_history(function, address, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_event_history_time ON event_history(created_at DESC);
`

// Store is a SQLite-backed event history.
//
// Thread Safety:
//   - All methods are safe for concurrent use; SQLite serializes writes
//     through the single-connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one recorded bus event.
type Entry struct {
	ID        int64     `json:"id"`
	Function  string    `json:"function"`
	Address   int       `json:"address"`
	State     int       `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Open creates (or opens) the history database and ensures the schema exists.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file with busy-timeout and optional WAL pragmas
//  3. Restricts the connection pool to a single writer
//  4. Verifies the connection with a ping
//  5. Applies the schema
//
// Parameters:
//   - cfg: History configuration from config.yaml
//
// Returns:
//   - *Store: Open store ready for use
//   - error: If the file cannot be opened or the schema cannot be applied
func Open(cfg config.HistoryConfig) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying history database connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("applying history schema: %w", err)
	}

	// Owner read/write only. Ignore error on first run before the file exists.
	_ = os.Chmod(cfg.Path, filePermissions)

	return &Store{db: db, path: cfg.Path}, nil
}

// RecordEvent appends one bus event to the history.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - function: Function tag of the device ("relay", "dimmer", ...)
//   - address: Device number on the central unit
//   - state: Raw state value as reported on the wire
//   - source: Origin of the record ("bus", "command", "sync")
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *Store) RecordEvent(ctx context.Context, function string, address, state int, source string) error {
	if function == "" {
		return fmt.Errorf("history: function is required")
	}
	if source == "" {
		source = "bus"
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO event_history (function, address, state, source) VALUES (?, ?, ?, ?)",
		function,
		address,
		state,
		source,
	)
	if err != nil {
		return fmt.Errorf("inserting event history: %w", err)
	}

	return nil
}

// GetHistory returns recent events for a device, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - function: Function tag of the device
//   - address: Device number on the central unit
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *Store) GetHistory(ctx context.Context, function string, address, limit int) ([]Entry, error) {
	if function == "" {
		return nil, fmt.Errorf("history: function is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, function, address, state, source, created_at
		 FROM event_history
		 WHERE function = ? AND address = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		function,
		address,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying event history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Function, &entry.Address, &entry.State, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event history: %w", err)
		}

		timestamp, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event history: %w", err)
	}

	return entries, nil
}

// Prune deletes events older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Retention window (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("history: olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM event_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting event history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// RunRetention prunes entries older than retention, once immediately
// and then every interval until the context is cancelled. It blocks,
// so run it on its own goroutine. Each prune outcome is reported
// through onResult; pass nil to discard outcomes.
func (s *Store) RunRetention(ctx context.Context, retention, interval time.Duration, onResult func(removed int64, err error)) {
	prune := func() {
		removed, err := s.Prune(ctx, retention)
		if onResult != nil {
			onResult(removed, err)
		}
	}
	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// HealthCheck verifies the database is accessible.
func (s *Store) HealthCheck(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("history health check failed: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return nil
}

// parseTimestamp parses a created_at value stored by SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("history: created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("history: parsing created_at: %w", err)
}
