package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "info", "json")).Info("document signed", "document_id", 55)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "document signed", rec["msg"])
	assert.Equal(t, float64(55), rec["document_id"])

	buf.Reset()
	slog.New(newHandler(&buf, "info", "text")).Info("document signed", "document_id", 55)
	assert.Contains(t, buf.String(), "document_id=55")

	buf.Reset()
	slog.New(newHandler(&buf, "warn", "text")).Info("dropped")
	assert.Empty(t, buf.String())
}

func TestNewWritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "itstorage.log")
	logger, cleanup, err := New("debug", "json", path)
	require.NoError(t, err)

	logger.Debug("materialization queued", "document_id", 7)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"materialization queued"`)
}

func TestNewBadLogFile(t *testing.T) {
	_, _, err := New("info", "json", filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}
