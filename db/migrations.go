package db

import (
	"context"
	"database/sql"
	"fmt"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Migration is one schema step. Applied reports whether the step is already
// reflected in the schema; Up runs only when it is not.
type Migration struct {
	Name    string
	Applied func(ctx context.Context, q querier) (bool, error)
	Up      string
}

// Migrations is the ordered schema history. Append only.
var Migrations = []Migration{
	{
		Name:    "create_games",
		Applied: tableExists("games"),
		Up: `CREATE TABLE games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_count INTEGER NOT NULL CHECK (player_count IN (3, 4)),
			start_date TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	},
	{
		Name:    "create_game_players",
		Applied: tableExists("game_players"),
		Up: `CREATE TABLE game_players (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id INTEGER NOT NULL,
			player_name TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games (id) ON DELETE CASCADE
		)`,
	},
	{
		Name:    "create_scores",
		Applied: tableExists("scores"),
		Up: `CREATE TABLE scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id INTEGER NOT NULL,
			round_index INTEGER NOT NULL CHECK (round_index >= 1),
			player_name TEXT NOT NULL,
			point INTEGER NOT NULL,
			rank INTEGER NOT NULL CHECK (rank >= 1),
			timestamp INTEGER NOT NULL,
			formatted_time TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games (id) ON DELETE CASCADE
		)`,
	},
	{
		Name:    "create_chips",
		Applied: tableExists("chips"),
		Up: `CREATE TABLE chips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id INTEGER NOT NULL,
			round_index INTEGER NOT NULL CHECK (round_index >= 0),
			player_name TEXT NOT NULL,
			chip_point INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			formatted_time TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games (id) ON DELETE CASCADE
		)`,
	},
	{
		Name:    "index_scores_game",
		Applied: indexExists("idx_scores_game"),
		Up:      `CREATE INDEX idx_scores_game ON scores(game_id)`,
	},
	{
		Name:    "index_scores_round",
		Applied: indexExists("idx_scores_round"),
		Up:      `CREATE INDEX idx_scores_round ON scores(game_id, round_index)`,
	},
	{
		Name:    "index_chips_game",
		Applied: indexExists("idx_chips_game"),
		Up:      `CREATE INDEX idx_chips_game ON chips(game_id)`,
	},
	{
		Name:    "index_game_players_game",
		Applied: indexExists("idx_game_players_game"),
		Up:      `CREATE INDEX idx_game_players_game ON game_players(game_id)`,
	},
	{
		Name:    "add_games_finished",
		Applied: columnExists("games", "finished"),
		Up:      `ALTER TABLE games ADD COLUMN finished INTEGER NOT NULL DEFAULT 0`,
	},
}

// Migrate applies every pending step of Migrations in order inside a single
// transaction. Calling it on an up-to-date schema changes nothing.
func Migrate(ctx context.Context, conn *sql.DB) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("migrate: failed to commit: %w", cErr)
		}
	}()

	for _, m := range Migrations {
		applied, checkErr := m.Applied(ctx, tx)
		if checkErr != nil {
			return fmt.Errorf("migrate %s: introspection failed: %w", m.Name, checkErr)
		}
		if applied {
			continue
		}
		if _, execErr := tx.ExecContext(ctx, m.Up); execErr != nil {
			return fmt.Errorf("migrate %s: %w", m.Name, execErr)
		}
	}
	return nil
}

func tableExists(name string) func(context.Context, querier) (bool, error) {
	return schemaObjectExists("table", name)
}

func indexExists(name string) func(context.Context, querier) (bool, error) {
	return schemaObjectExists("index", name)
}

func schemaObjectExists(kind, name string) func(context.Context, querier) (bool, error) {
	return func(ctx context.Context, q querier) (bool, error) {
		var n int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name,
		).Scan(&n)
		return n > 0, err
	}
}

func columnExists(table, column string) func(context.Context, querier) (bool, error) {
	return func(ctx context.Context, q querier) (bool, error) {
		var n int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
		).Scan(&n)
		return n > 0, err
	}
}
