package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"board-relay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	ls, err := NewLocalStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	return ls
}

func TestLocalStorePutGet(t *testing.T) {
	ls := newTestStore(t)
	ctx := context.Background()
	key := models.MediaKey("g", "1", "100.jpg")

	require.NoError(t, ls.Put(ctx, key, []byte("jpeg")))

	data, err := ls.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	ok, err := ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ls.Get(ctx, "g/1/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreListIgnoresPartialFiles(t *testing.T) {
	ls := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, ls.Put(ctx, "g/1/a.jpg", []byte("a")))
	require.NoError(t, ls.Put(ctx, "g/2/b.png", []byte("b")))
	require.NoError(t, ls.Put(ctx, "v/3/c.gif", []byte("c")))
	require.NoError(t, os.WriteFile(filepath.Join(ls.Root, "g", "1", ".part-123"), []byte("x"), 0644))

	keys, err := ls.List(ctx, "g/")
	require.NoError(t, err)
	assert.Equal(t, []string{"g/1/a.jpg", "g/2/b.png"}, keys)

	keys, err = ls.List(ctx, models.ThreadPrefix("g", "1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"g/1/a.jpg"}, keys)

	keys, err = ls.List(ctx, "missing/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStoreDelete(t *testing.T) {
	ls := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, ls.Put(ctx, "g/1/a.jpg", []byte("a")))
	require.NoError(t, ls.Put(ctx, "g/1/b.jpg", []byte("b")))
	require.NoError(t, ls.Put(ctx, "g/2/c.jpg", []byte("c")))

	require.NoError(t, ls.Delete(ctx, "g/1/a.jpg"))
	require.NoError(t, ls.Delete(ctx, "g/1/a.jpg"), "missing key is fine")

	require.NoError(t, ls.DeletePrefix(ctx, "g/1/"))
	keys, err := ls.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"g/2/c.jpg"}, keys)

	assert.Error(t, ls.DeletePrefix(ctx, ""))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ls := newTestStore(t)

	err := ls.Put(context.Background(), "../outside.jpg", []byte("x"))

	assert.Error(t, err)
}
