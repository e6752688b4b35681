package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreWriteReadRoundtrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Write(ctx, "uploads/test.png", []byte("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/test.png", key)

	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)
	assert.True(t, store.Exists(key))
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../escape.txt", "uploads/../../escape.txt", "", "."} {
		_, err := store.Write(ctx, key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestFileStoreSaveImageExtensions(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.SaveImage(ctx, []byte("png"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "uploads/generated_"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	key, err = store.SaveImage(ctx, []byte("jpg"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestFileStoreSaveUpload(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.SaveUpload(ctx, "photo.JPEG", []byte("bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpeg"))

	_, err = store.SaveUpload(ctx, "notes.txt", []byte("bytes"))
	assert.Error(t, err)
}

func TestFileStoreSignatureRoundtrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.SaveSignature(ctx, "opaque-signature")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".txt"))

	sig, err := store.ReadSignature(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "opaque-signature", sig)
}

func TestFileStoreRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Write(ctx, "uploads/gone.png", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, key))
	assert.False(t, store.Exists(key))

	// Removing again is fine.
	assert.NoError(t, store.Remove(ctx, key))

	_, err = os.Stat(filepath.Join(dir, "uploads", "gone.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestMimeForPath(t *testing.T) {
	assert.Equal(t, "image/png", MimeForPath("uploads/a.png"))
	assert.Equal(t, "image/webp", MimeForPath("assets/art_forms/gond/x.WEBP"))
	assert.Equal(t, "image/jpeg", MimeForPath("uploads/unknown.bin"))
}
