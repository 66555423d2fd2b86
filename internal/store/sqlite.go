package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/ink/internal/domain"
	"github.com/ashureev/ink/internal/shared"
	_ "modernc.org/sqlite"
)

const snapshotName = "memory"

// SQLiteStore keeps the snapshot as a JSON document in a single SQLite row.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed snapshot store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer is all the snapshot needs.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the snapshot row. A missing row yields (nil, nil). A row whose body
// does not parse is renamed to memory.corrupt-<unixnano> and ErrCorruptSnapshot is returned.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE name = ?`, snapshotName).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan snapshot: %v", ErrLoadFailed, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		quarantine := fmt.Sprintf("%s.corrupt-%d", snapshotName, time.Now().UnixNano())
		if _, renameErr := s.db.ExecContext(ctx,
			`UPDATE snapshots SET name = ? WHERE name = ?`, quarantine, snapshotName); renameErr != nil {
			return nil, fmt.Errorf("%w: quarantine snapshot: %v", ErrLoadFailed, renameErr)
		}
		slog.Warn("Snapshot row quarantined", "name", quarantine, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snap, nil
}

// Save upserts the snapshot row, retrying with backoff on SQLite lock conflicts.
func (s *SQLiteStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrSaveFailed, err)
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err = s.saveOnce(ctx, body)
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Snapshot save hit SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return fmt.Errorf("%w: %v", ErrSaveFailed, err)
}

func (s *SQLiteStore) saveOnce(ctx context.Context, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO snapshots (name, body, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		body = excluded.body,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, snapshotName, string(body), time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
