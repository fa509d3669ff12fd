package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_FreshStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, ":memory:", time.Second)
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"games", "game_players", "scores", "chips"} {
		ok, err := tableExists(table)(ctx, conn)
		require.NoError(t, err)
		assert.True(t, ok, table)
	}
	ok, err := columnExists("games", "finished")(ctx, conn)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, Migrate(ctx, conn))
	require.NoError(t, Migrate(ctx, conn))
}

func TestMigrate_AddsFinishedColumnToLegacySchema(t *testing.T) {
	ctx := context.Background()
	conn, err := Connect(":memory:", time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_count INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx,
		`INSERT INTO games (player_count, start_date, created_at) VALUES (4, '2024/01/02', 1)`)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, conn))

	var finished int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT finished FROM games WHERE id = 1`).Scan(&finished))
	assert.Equal(t, 0, finished)

	ok, err := indexExists("idx_scores_round")(ctx, conn)
	require.NoError(t, err)
	assert.True(t, ok)
}
