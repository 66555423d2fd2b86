// Package api provides HTTP handlers for the INK chat API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/ink/internal/engine"
	"github.com/ashureev/ink/internal/metrics"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Handler serves the chat API for one engine.
type Handler struct {
	engine      *engine.Engine
	metrics     *metrics.Metrics
	imagesDir   string
	maxBodySize int64
}

// NewHandler creates a Handler. m may be nil.
func NewHandler(e *engine.Engine, m *metrics.Metrics, imagesDir string, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{
		engine:      e,
		metrics:     m,
		imagesDir:   imagesDir,
		maxBodySize: maxBodySize,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
