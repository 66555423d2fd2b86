package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/ink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *domain.Snapshot {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Snapshot{
		CurrentSession: []domain.Turn{
			{Role: domain.RoleUser, Content: "hi", Timestamp: ts},
			{Role: domain.RoleAssistant, Content: "hello", Timestamp: ts.Add(time.Second)},
		},
		ThinkingLog: []domain.ThoughtEntry{
			{Thought: "Response generated successfully", Timestamp: ts.Add(2 * time.Second)},
		},
		LastUpdated: ts.Add(3 * time.Second),
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "memory.json"))
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conversations", "memory.json")
	s := NewFileStore(path)
	want := sampleSnapshot()

	require.NoError(t, s.Save(context.Background(), want))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.CurrentSession, 2)
	for i := range want.CurrentSession {
		assert.Equal(t, want.CurrentSession[i].Role, got.CurrentSession[i].Role)
		assert.Equal(t, want.CurrentSession[i].Content, got.CurrentSession[i].Content)
		assert.True(t, want.CurrentSession[i].Timestamp.Equal(got.CurrentSession[i].Timestamp))
	}
	require.Len(t, got.ThinkingLog, 1)
	assert.Equal(t, "Response generated successfully", got.ThinkingLog[0].Thought)
}

func TestFileStoreWritesSnapshotFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, NewFileStore(path).Save(context.Background(), sampleSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{`"current_session"`, `"thinking_log"`, `"last_updated"`} {
		assert.Contains(t, string(data), field)
	}
}

func TestFileStoreQuarantinesCorruptSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	snap, err := NewFileStore(path).Load(context.Background())
	require.ErrorIs(t, err, ErrCorruptSnapshot)
	assert.Nil(t, snap)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt file should be moved aside")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "memory.json.corrupt-"))
}

func TestFileStoreKeepsEveryQuarantinedSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")
	fs := NewFileStore(path)

	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := fs.Load(context.Background())
		require.ErrorIs(t, err, ErrCorruptSnapshot)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open("redis", t.TempDir())
	assert.Error(t, err)
}

func TestOpenFileBackend(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(BackendFile, dir)
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "memory.json"), fs.Path())
}
