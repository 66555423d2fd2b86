// Package thinking streams new thought entries to WebSocket clients.
package thinking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/ink/internal/domain"
)

const writeTimeout = 5 * time.Second

// client is one stream connection. Thoughts broadcast before Replay are held
// in pending so none are lost between the backlog snapshot and registration.
type client struct {
	sessionID string

	mu      sync.Mutex
	ready   bool
	pending []domain.ThoughtEntry
}

// Hub tracks connected stream clients.
type Hub struct {
	mu     sync.RWMutex
	active map[*websocket.Conn]*client
	gauge  func(int)
}

// NewHub creates an empty hub. onChange, if non-nil, receives the client count
// after every registration change.
func NewHub(onChange func(int)) *Hub {
	return &Hub{
		active: make(map[*websocket.Conn]*client),
		gauge:  onChange,
	}
}

// Register adds a connection. Broadcasts are queued for it until Replay.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.active[conn] = &client{sessionID: sessionID}
	n := len(h.active)
	h.mu.Unlock()

	slog.Info("Thinking stream registered", "session_id", sessionID, "clients", n)
	h.report(n)
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.active[conn]
	delete(h.active, conn)
	n := len(h.active)
	h.mu.Unlock()

	if ok {
		slog.Info("Thinking stream unregistered", "session_id", c.sessionID, "clients", n)
		h.report(n)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Replay sends backlog to conn, then any thoughts queued since Register that
// are not already part of backlog, and switches conn to live delivery.
func (h *Hub) Replay(conn *websocket.Conn, backlog []domain.ThoughtEntry) error {
	h.mu.RLock()
	c, ok := h.active[conn]
	h.mu.RUnlock()
	if !ok {
		return errors.New("thinking stream not registered")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range backlog {
		if err := writeEntry(conn, entry); err != nil {
			return err
		}
	}
	for _, entry := range c.pending {
		if containsEntry(backlog, entry) {
			continue
		}
		if err := writeEntry(conn, entry); err != nil {
			return err
		}
	}
	c.pending = nil
	c.ready = true
	return nil
}

// Broadcast sends entry to every client. Clients that fail to accept the write
// within the timeout are closed and dropped.
func (h *Hub) Broadcast(entry domain.ThoughtEntry) {
	// Snapshot connections to avoid holding the lock during writes.
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*client, len(h.active))
	for conn, c := range h.active {
		conns[conn] = c
	}
	h.mu.RUnlock()

	for conn, c := range conns {
		c.mu.Lock()
		if !c.ready {
			c.pending = append(c.pending, entry)
			c.mu.Unlock()
			continue
		}
		err := writeEntry(conn, entry)
		c.mu.Unlock()

		if err != nil {
			slog.Debug("Dropping thinking stream client", "error", err, "session_id", c.sessionID)
			_ = conn.Close(websocket.StatusGoingAway, "write failed")
			h.Unregister(conn)
		}
	}
}

// CloseAll closes every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.active
	h.active = make(map[*websocket.Conn]*client)
	h.mu.Unlock()

	for conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.report(0)
}

func (h *Hub) report(n int) {
	if h.gauge != nil {
		h.gauge(n)
	}
}

func containsEntry(entries []domain.ThoughtEntry, e domain.ThoughtEntry) bool {
	for _, x := range entries {
		if x.Thought == e.Thought && x.Timestamp.Equal(e.Timestamp) {
			return true
		}
	}
	return false
}

func writeEntry(conn *websocket.Conn, entry domain.ThoughtEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal thought: %w", err)
	}
	return write(conn, data)
}

func write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
