package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKV_RoundTrip(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()

	_, found, err := GetValue(ctx, database, "exler_comments_data")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, PutValue(ctx, database, "exler_comments_data", []byte(`{"readPosts":{}}`)))

	value, found, err := GetValue(ctx, database, "exler_comments_data")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"readPosts":{}}`, string(value))
}

func TestKV_PutOverwrites(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	require.NoError(t, PutValue(ctx, database, "k", []byte("first")))
	require.NoError(t, PutValue(ctx, database, "k", []byte("second")))

	value, found, err := GetValue(ctx, database, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "second", string(value))

	var rows int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM kv").Scan(&rows))
	require.Equal(t, 1, rows)
}

func TestKV_Delete(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	require.NoError(t, PutValue(ctx, database, "k", []byte("v")))
	require.NoError(t, DeleteValue(ctx, database, "k"))
	require.NoError(t, DeleteValue(ctx, database, "missing"))

	_, found, err := GetValue(ctx, database, "k")
	require.NoError(t, err)
	require.False(t, found)
}
