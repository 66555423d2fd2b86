package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/ink/internal/command"
	"github.com/ashureev/ink/internal/domain"
	"github.com/ashureev/ink/internal/identity"
	"github.com/ashureev/ink/internal/images"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply to POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
	Thinking string `json:"thinking"`
}

// ThinkingResponse is the reply to GET /api/thinking.
type ThinkingResponse struct {
	Thinking string `json:"thinking"`
}

// RegisterRoutes registers the chat API and image routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Get("/thinking", h.HandleThinking)
	})
	r.Get("/images/{filename}", h.HandleImage)
}

// HandleChat handles POST /api/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := command.Parse(req.Message)
	reqID := chiMiddleware.GetReqID(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	slog.Info("Chat request",
		"request_id", reqID,
		"session_id", sessionID,
		"command", cmd.Kind.String(),
		"message_length", len(req.Message),
	)

	reply, err := h.engine.Execute(r.Context(), cmd)
	if err != nil {
		slog.Error("Chat command failed",
			"request_id", reqID,
			"command", cmd.Kind.String(),
			"error", err,
		)
		h.recordCommand(cmd.Kind, "error")
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	switch reply.Kind {
	case domain.ReplyGenerationFailed:
		slog.Warn("Text generation failed", "request_id", reqID, "command", cmd.Kind.String(), "error", reply.Err)
	case domain.ReplyNotConfigured:
		slog.Debug("Text generation not configured", "request_id", reqID)
	}
	h.recordCommand(cmd.Kind, string(reply.Kind))

	JSON(w, http.StatusOK, ChatResponse{
		Response: reply.Response,
		Thinking: reply.Thinking,
	})
}

// HandleThinking handles GET /api/thinking requests.
func (h *Handler) HandleThinking(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, ThinkingResponse{Thinking: h.engine.Thinking(0)})
}

// HandleImage serves a previously emitted image.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || images.ValidateFilename(name) != nil {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(filepath.Join(h.imagesDir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) recordCommand(kind command.Kind, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordCommand(kind.String(), outcome)
	}
}
