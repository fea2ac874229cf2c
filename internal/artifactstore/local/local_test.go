package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StarAlexander/inventory-storage-diploma/internal/artifactstore"
)

func TestLocalArtifactStoreSaveAndOpen(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalArtifactStore(tmpdir)
	require.NoError(t, err)

	ctx := context.Background()
	pdfData := []byte("%PDF-1.3 fake")

	path, err := store.Save(ctx, "documents/1.pdf", bytes.NewReader(pdfData))
	require.NoError(t, err)
	assert.Equal(t, "documents/1.pdf", path)

	reader, err := store.Open(ctx, path)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, pdfData, data)
}

func TestLocalArtifactStoreOverwrite(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalArtifactStore(tmpdir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "documents/1.pdf", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	_, err = store.Save(ctx, "documents/1.pdf", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	reader, err := store.Open(ctx, "documents/1.pdf")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(tmpdir, "documents"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLocalArtifactStoreDelete(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalArtifactStore(tmpdir)
	require.NoError(t, err)

	ctx := context.Background()

	key, err := store.Save(ctx, "documents/2.pdf", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	err = store.Delete(ctx, key)
	require.NoError(t, err)

	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, artifactstore.ErrNotFound)

	err = store.Delete(ctx, key)
	assert.ErrorIs(t, err, artifactstore.ErrNotFound)
}

func TestLocalArtifactStorePathTraversal(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalArtifactStore(tmpdir)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Open(ctx, "../../etc/passwd")
	assert.Error(t, err)

	_, err = store.Save(ctx, "../escape.pdf", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
}
