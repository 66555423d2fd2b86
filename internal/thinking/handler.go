package thinking

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ashureev/ink/internal/identity"
	"github.com/ashureev/ink/internal/memory"
)

// backlog is the number of recent thoughts replayed to a new client.
const backlog = 10

// Handler upgrades requests to WebSocket thinking streams.
type Handler struct {
	hub    *Hub
	memory *memory.Memory
	isDev  bool
}

// NewHandler creates a handler and subscribes hub to new thoughts in mem.
// The returned func stops the subscription.
func NewHandler(hub *Hub, mem *memory.Memory, isDev bool) (*Handler, func()) {
	unsubscribe := mem.Subscribe(hub.Broadcast)
	return &Handler{hub: hub, memory: mem, isDev: isDev}, unsubscribe
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.OriginPatterns = []string{"*"}
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	// Register before taking the backlog so thoughts appended in between are
	// queued rather than missed.
	h.hub.Register(sessionID, ws)
	defer h.hub.Unregister(ws)

	if err := h.hub.Replay(ws, h.memory.RecentThoughts(backlog)); err != nil {
		slog.Debug("Failed to replay thoughts", "error", err, "session_id", sessionID)
		return
	}

	// The stream is server-to-client only; CloseRead handles control frames and
	// cancels ctx when the client goes away.
	ctx := ws.CloseRead(r.Context())
	<-ctx.Done()
}
