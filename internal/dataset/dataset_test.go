package dataset

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readExamples(t *testing.T, path string) []Example {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var out []Example
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ex Example
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ex))
		out = append(out, ex)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewLogger(Config{Enabled: true, Dir: dir, QueueSize: 16}, slog.Default())
	require.NoError(t, err)

	require.NoError(t, l.Log(Example{SessionID: "sess-1", Instruction: "be brief", Input: "hi", Output: "hello"}))
	require.NoError(t, l.Log(Example{SessionID: "sess-1", Instruction: "be brief", Input: "bye", Output: "later"}))
	require.NoError(t, l.Log(Example{Input: "anon", Output: "x"}))
	require.NoError(t, l.Close())

	got := readExamples(t, filepath.Join(dir, "sess-1.ndjson"))
	require.Len(t, got, 2)
	assert.Equal(t, "hi", got[0].Input)
	assert.Equal(t, "later", got[1].Output)
	assert.False(t, got[0].Timestamp.IsZero())

	anon := readExamples(t, filepath.Join(dir, DefaultSession+".ndjson"))
	require.Len(t, anon, 1)
	assert.Equal(t, DefaultSession, anon[0].SessionID)
}

func TestLoggerDisabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewLogger(Config{Enabled: false, Dir: dir}, nil)
	require.NoError(t, err)

	assert.False(t, l.Enabled())
	assert.ErrorIs(t, l.Log(Example{Input: "hi"}), ErrClosed)
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoggerLogAfterClose(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(Config{Enabled: true, Dir: t.TempDir(), QueueSize: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Log(Example{Input: "hi"}), ErrClosed)
}

func TestNewLoggerValidates(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(Config{Enabled: true, QueueSize: 1}, nil)
	assert.Error(t, err)

	_, err = NewLogger(Config{Enabled: true, Dir: t.TempDir()}, nil)
	assert.Error(t, err)
}

func TestPathSanitizesSessionID(t *testing.T) {
	t.Parallel()

	l := &Logger{dir: "/data"}
	assert.Equal(t, filepath.Join("/data", "___etc_passwd.ndjson"), l.Path("../etc/passwd"))
	assert.Equal(t, filepath.Join("/data", DefaultSession+".ndjson"), l.Path(""))
}
