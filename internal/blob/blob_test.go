package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ctrack/internal/db"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "exler_comments_data"

	_, err := s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, key, []byte(`{"readPosts":{}}`)))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `{"readPosts":{}}`, string(got))

	require.NoError(t, s.Put(ctx, key, []byte(`{"readPosts":{"a":"b"}}`)))
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `{"readPosts":{"a":"b"}}`, string(got))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine
	require.NoError(t, s.Delete(ctx, key))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", value))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestSQLite(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	exerciseStore(t, NewSQLite(database))
}

func TestFile(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	exerciseStore(t, f)
}

func TestFile_KeySanitized(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, f.Put(context.Background(), "../escape/key", []byte("v")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ".._escape_key.json", entries[0].Name())
}

func TestFile_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Put(context.Background(), "k", []byte("v")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRedis(t *testing.T) {
	url := os.Getenv("CTRACK_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CTRACK_TEST_REDIS_URL not set")
	}

	r, err := DialRedis(context.Background(), url)
	require.NoError(t, err)
	defer r.Close()

	exerciseStore(t, r)
}

func TestDialRedis_BadURL(t *testing.T) {
	_, err := DialRedis(context.Background(), "not-a-url")
	require.Error(t, err)
}
