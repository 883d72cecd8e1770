package history_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgpush/pkgpush/history"
)

func setupTestStore(t *testing.T) *history.Store {
	t.Helper()

	ctx := context.Background()
	store, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	store, err := history.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStore_Record(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry, err := store.Record(ctx, history.Entry{
		Package:  "acme/widgets",
		FileName: "widgets.zip",
		Size:     1024,
		SHA256:   "deadbeef",
		Status:   201,
		Success:  true,
		URL:      "https://packagist.com/packages/acme/widgets",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "acme/widgets", got.Package)
	assert.Equal(t, "widgets.zip", got.FileName)
	assert.Equal(t, int64(1024), got.Size)
	assert.Equal(t, "deadbeef", got.SHA256)
	assert.Equal(t, 201, got.Status)
	assert.True(t, got.Success)
	assert.Equal(t, "https://packagist.com/packages/acme/widgets", got.URL)
	assert.Equal(t, entry.CreatedAt, got.CreatedAt)
}

func TestStore_Record_Failure(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Record(ctx, history.Entry{
		Package:  "acme/widgets",
		FileName: "widgets.zip",
		Size:     512,
		SHA256:   "cafe",
		Status:   404,
		Success:  false,
	})
	require.NoError(t, err)

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, 404, entries[0].Status)
	assert.Empty(t, entries[0].URL)
}

func TestStore_List_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, pkg := range []string{"acme/first", "acme/second", "acme/third"} {
		_, err := store.Record(ctx, history.Entry{Package: pkg, FileName: "a.zip"})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "acme/third", entries[0].Package)
	assert.Equal(t, "acme/second", entries[1].Package)
	assert.Equal(t, "acme/first", entries[2].Package)
}

func TestStore_List_Limit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for range 5 {
		_, err := store.Record(ctx, history.Entry{Package: "acme/widgets", FileName: "a.zip"})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_List_Empty(t *testing.T) {
	store := setupTestStore(t)

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(ctx, path)
	require.NoError(t, err)

	_, err = store.Record(ctx, history.Entry{Package: "acme/widgets", FileName: "a.zip"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := history.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entries, err := reopened.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "acme/widgets", entries[0].Package)
}

func TestDefaultPath(t *testing.T) {
	path, err := history.DefaultPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(".pkgpush", "history.db"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
