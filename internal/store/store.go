// Package store provides snapshot persistence for the conversation log.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ashureev/ink/internal/domain"
)

var (
	// ErrCorruptSnapshot is returned by Load when the persisted snapshot cannot be parsed.
	// The offending snapshot has already been moved aside when this is returned.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrLoadFailed wraps I/O failures while reading a snapshot.
	ErrLoadFailed = errors.New("load failed")
	// ErrSaveFailed wraps I/O failures while writing a snapshot.
	ErrSaveFailed = errors.New("save failed")
)

// SnapshotStore persists a single conversation snapshot.
type SnapshotStore interface {
	// Load returns the stored snapshot, or nil with no error when none exists.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Close releases backend resources.
	Close() error
}

// Pinger is implemented by backends that hold a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the snapshot backend named by backend inside dir.
func Open(backend, dir string) (SnapshotStore, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(filepath.Join(dir, "memory.json")), nil
	case BackendSQLite:
		return NewSQLite(filepath.Join(dir, "memory.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
