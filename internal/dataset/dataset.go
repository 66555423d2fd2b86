// Package dataset records chat exchanges made in training mode as NDJSON
// training examples, one file per session.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultSession names the file used when a request carries no session ID.
const DefaultSession = "default"

// ErrClosed is returned by Log after Close.
var ErrClosed = errors.New("dataset logger closed")

// Config controls dataset recording.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Example is one recorded training example.
type Example struct {
	SessionID   string    `json:"session_id"`
	Instruction string    `json:"instruction"`
	Input       string    `json:"input"`
	Output      string    `json:"output"`
	Timestamp   time.Time `json:"timestamp"`
}

// Logger writes examples asynchronously so chat requests never wait on disk.
type Logger struct {
	dir    string
	queue  chan Example
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewLogger starts a Logger. A disabled config yields a Logger whose Log is a no-op.
func NewLogger(cfg Config, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{dir: cfg.Dir, logger: logger}
	if !cfg.Enabled {
		l.closed = true
		return l, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dataset dir cannot be empty")
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("dataset queue size must be > 0")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}

	l.queue = make(chan Example, cfg.QueueSize)
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Enabled reports whether examples are being recorded.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.closed
}

// Log enqueues ex. When the queue is full the example is dropped with a warning.
func (l *Logger) Log(ex Example) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	if ex.SessionID == "" {
		ex.SessionID = DefaultSession
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}

	select {
	case l.queue <- ex:
	default:
		l.logger.Warn("Dataset queue full, dropping example", "session_id", ex.SessionID)
	}
	return nil
}

// Close stops accepting examples and waits for queued ones to be written.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

// Path returns the file examples for sessionID are appended to.
func (l *Logger) Path(sessionID string) string {
	return filepath.Join(l.dir, sanitize(sessionID)+".ndjson")
}

func (l *Logger) run() {
	defer l.wg.Done()
	for ex := range l.queue {
		if err := l.write(ex); err != nil {
			l.logger.Error("Failed to write dataset example", "session_id", ex.SessionID, "error", err)
		}
	}
}

func (l *Logger) write(ex Example) error {
	line, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal example: %w", err)
	}

	f, err := os.OpenFile(l.Path(ex.SessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open dataset file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append example: %w", err)
	}
	return f.Close()
}

func sanitize(sessionID string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, sessionID)
	if clean == "" {
		return DefaultSession
	}
	return clean
}
