package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/ink/internal/domain"
	"github.com/ashureev/ink/internal/engine"
	"github.com/ashureev/ink/internal/generator"
	"github.com/ashureev/ink/internal/images"
	"github.com/ashureev/ink/internal/memory"
	"github.com/ashureev/ink/internal/metrics"
	"github.com/ashureev/ink/internal/store"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	return g.text, g.err
}

type brokenStore struct{}

func (brokenStore) Load(context.Context) (*domain.Snapshot, error) { return nil, nil }
func (brokenStore) Save(context.Context, *domain.Snapshot) error {
	return errors.New("disk full")
}
func (brokenStore) Close() error { return nil }

type testServer struct {
	router    chi.Router
	mem       *memory.Memory
	imagesDir string
}

func newTestServer(t *testing.T, gen generator.TextGenerator, st store.SnapshotStore) testServer {
	t.Helper()
	dir := t.TempDir()
	if st == nil {
		st = store.NewFileStore(filepath.Join(dir, "memory.json"))
	}
	mem := memory.New(st)
	imagesDir := filepath.Join(dir, "images")
	e := engine.New(mem, generator.NewResponder(gen, mem), images.NewEmitter(imagesDir))
	e.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	r := chi.NewRouter()
	NewHandler(e, metrics.New(), imagesDir, 1024).RegisterRoutes(r)
	return testServer{router: r, mem: mem, imagesDir: imagesDir}
}

func (s testServer) chat(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleChatSuccess(t *testing.T) {
	s := newTestServer(t, stubGenerator{text: "Hi there!"}, nil)

	w := s.chat(t, `{"message":"Hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, "Hi there!", resp.Response)
	assert.Contains(t, resp.Thinking, "Response generated successfully")

	turns := s.mem.RecentContext(10)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, "Hi there!", turns[1].Content)
}

func TestHandleChatNotConfigured(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.chat(t, `{"message":"Hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, generator.NotConfiguredResponse, resp.Response)
	assert.Equal(t, generator.NotConfiguredThinking, resp.Thinking)
	assert.Empty(t, s.mem.RecentContext(10))
}

func TestHandleChatGenerationFailure(t *testing.T) {
	s := newTestServer(t, stubGenerator{err: errors.New("quota exceeded")}, nil)

	w := s.chat(t, `{"message":"Hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, "I encountered an error: quota exceeded", resp.Response)
	assert.Equal(t, "Error: quota exceeded", resp.Thinking)
}

func TestHandleChatClear(t *testing.T) {
	s := newTestServer(t, stubGenerator{text: "ok"}, nil)
	require.Equal(t, http.StatusOK, s.chat(t, `{"message":"Hello"}`).Code)

	w := s.chat(t, `{"message":"/clear"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, engine.ClearedResponse, resp.Response)
	assert.Equal(t, engine.ClearedThinking, resp.Thinking)
	assert.Empty(t, s.mem.RecentContext(10))
	assert.Empty(t, s.mem.RecentThoughts(10))
}

func TestHandleChatSVGAndImage(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.chat(t, `{"message":"/svg a red circle"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeChat(t, w)
	assert.Equal(t, "SVG created! View it at: /images/svg_1700000000.svg", resp.Response)
	assert.Equal(t, engine.SVGThinking, resp.Thinking)

	req := httptest.NewRequest(http.MethodGet, "/images/svg_1700000000.svg", nil)
	img := httptest.NewRecorder()
	s.router.ServeHTTP(img, req)

	require.Equal(t, http.StatusOK, img.Code)
	assert.Contains(t, img.Body.String(), "<circle")
}

func TestHandleChatInvalidBody(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.chat(t, `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "invalid request body", body["error"])
}

func TestHandleChatBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.chat(t, `{"message":"`+strings.Repeat("a", 2048)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleChatStorageFailure(t *testing.T) {
	s := newTestServer(t, nil, brokenStore{})

	w := s.chat(t, `{"message":"/train be brief"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleThinking(t *testing.T) {
	s := newTestServer(t, nil, nil)
	for i := 0; i < 12; i++ {
		require.NoError(t, s.mem.AppendThought(context.Background(), "t"+string(rune('a'+i))))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/thinking", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ThinkingResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	lines := strings.Split(resp.Thinking, "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "tc", lines[0])
	assert.Equal(t, "tl", lines[9])
}

func TestHandleImageRejectsUnknownAndTraversal(t *testing.T) {
	s := newTestServer(t, nil, nil)
	require.NoError(t, os.MkdirAll(s.imagesDir, 0o755))

	for _, path := range []string{"/images/missing.svg", "/images/..%2Fmemory.json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
