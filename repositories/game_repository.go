package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/mahjong-scorebook/models"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrInvalidRoster = errors.New("roster must list 3 or 4 unique players matching the player count")
)

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	GetCurrent(ctx context.Context, exec SQLExecutor) (*models.Game, error)
	ListUnfinished(ctx context.Context, exec SQLExecutor) ([]models.Game, error)
	ListFinished(ctx context.Context, exec SQLExecutor) ([]models.Game, error)
	Roster(ctx context.Context, exec SQLExecutor, gameID int) ([]string, error)
	RoundCount(ctx context.Context, exec SQLExecutor, gameID int) (int, error)
	Finish(ctx context.Context, exec SQLExecutor, id int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	ClearAll(ctx context.Context, exec SQLExecutor) error
}

type sqliteGameRepository struct {
	db    *sql.DB
	clock Clock
}

func NewSQLiteGameRepository(db *sql.DB, clock Clock) GameRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &sqliteGameRepository{db: db, clock: clock}
}

func (r *sqliteGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the game row and its roster in one transaction and fills
// game.ID and game.CreatedAt. An empty StartDate defaults to today.
func (r *sqliteGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	if err := validateRoster(game.PlayerCount, game.Players); err != nil {
		return err
	}

	now := r.clock()
	if game.StartDate == "" {
		game.StartDate = models.FormatStartDate(now)
	}

	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO games (player_count, start_date, created_at, finished) VALUES (?, ?, ?, ?)`,
			game.PlayerCount, game.StartDate, now.UnixMilli(), game.Finished,
		)
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read game id: %w", err)
		}

		for i, name := range game.Players {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO game_players (game_id, player_name, sort_order) VALUES (?, ?, ?)`,
				id, name, i,
			); err != nil {
				return fmt.Errorf("failed to insert player %q: %w", name, err)
			}
		}

		game.ID = int(id)
		game.CreatedAt = time.UnixMilli(now.UnixMilli())
		game.RoundCount = 0
		return nil
	})
}

func validateRoster(playerCount int, names []string) error {
	if playerCount < models.MinPlayers || playerCount > models.MaxPlayers || len(names) != playerCount {
		return ErrInvalidRoster
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return ErrInvalidRoster
		}
		seen[n] = struct{}{}
	}
	return nil
}

const selectGame = `
	SELECT g.id, g.player_count, g.start_date, g.created_at, g.finished,
	       (SELECT COUNT(DISTINCT s.round_index) FROM scores s WHERE s.game_id = g.id)
	FROM games g`

func scanGame(row rowScanner) (*models.Game, error) {
	var g models.Game
	var createdAt int64
	if err := row.Scan(&g.ID, &g.PlayerCount, &g.StartDate, &createdAt, &g.Finished, &g.RoundCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	g.CreatedAt = time.UnixMilli(createdAt)
	return &g, nil
}

func (r *sqliteGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	executor := r.getExecutor(exec)
	g, err := scanGame(executor.QueryRowContext(ctx, selectGame+` WHERE g.id = ?`, id))
	if err != nil {
		return nil, err
	}
	if g.Players, err = r.Roster(ctx, executor, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

// GetCurrent returns the most recently created unfinished game.
func (r *sqliteGameRepository) GetCurrent(ctx context.Context, exec SQLExecutor) (*models.Game, error) {
	executor := r.getExecutor(exec)
	g, err := scanGame(executor.QueryRowContext(ctx, selectGame+` WHERE g.finished = 0 ORDER BY g.id DESC LIMIT 1`))
	if err != nil {
		return nil, err
	}
	if g.Players, err = r.Roster(ctx, executor, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *sqliteGameRepository) ListUnfinished(ctx context.Context, exec SQLExecutor) ([]models.Game, error) {
	return r.listByFinished(ctx, r.getExecutor(exec), false)
}

func (r *sqliteGameRepository) ListFinished(ctx context.Context, exec SQLExecutor) ([]models.Game, error) {
	return r.listByFinished(ctx, r.getExecutor(exec), true)
}

func (r *sqliteGameRepository) listByFinished(ctx context.Context, executor SQLExecutor, finished bool) ([]models.Game, error) {
	rows, err := executor.QueryContext(ctx,
		selectGame+` WHERE g.finished = ? ORDER BY g.created_at DESC, g.id DESC`, finished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		g, errScan := scanGame(rows)
		if errScan != nil {
			return nil, errScan
		}
		games = append(games, *g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return games, nil
	}

	rosters, err := r.rostersByFinished(ctx, executor, finished)
	if err != nil {
		return nil, err
	}
	for i := range games {
		games[i].Players = rosters[games[i].ID]
	}
	return games, nil
}

func (r *sqliteGameRepository) rostersByFinished(ctx context.Context, executor SQLExecutor, finished bool) (map[int][]string, error) {
	rows, err := executor.QueryContext(ctx, `
		SELECT gp.game_id, gp.player_name
		FROM game_players gp
		JOIN games g ON g.id = gp.game_id
		WHERE g.finished = ?
		ORDER BY gp.game_id, gp.sort_order`, finished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rosters := make(map[int][]string)
	for rows.Next() {
		var gameID int
		var name string
		if err := rows.Scan(&gameID, &name); err != nil {
			return nil, err
		}
		rosters[gameID] = append(rosters[gameID], name)
	}
	return rosters, rows.Err()
}

// Roster returns the game's player names in seating order.
func (r *sqliteGameRepository) Roster(ctx context.Context, exec SQLExecutor, gameID int) ([]string, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		`SELECT player_name FROM game_players WHERE game_id = ? ORDER BY sort_order`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0, models.MaxPlayers)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *sqliteGameRepository) RoundCount(ctx context.Context, exec SQLExecutor, gameID int) (int, error) {
	var n int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT round_index) FROM scores WHERE game_id = ?`, gameID,
	).Scan(&n)
	return n, err
}

func (r *sqliteGameRepository) Finish(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE games SET finished = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

// Delete removes the game together with its roster, scores and chips.
func (r *sqliteGameRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		for _, q := range []string{
			`DELETE FROM chips WHERE game_id = ?`,
			`DELETE FROM scores WHERE game_id = ?`,
			`DELETE FROM game_players WHERE game_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("failed to delete game %d rows: %w", id, err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete game %d: %w", id, err)
		}
		return checkAffectedRows(result, ErrGameNotFound)
	})
}

func (r *sqliteGameRepository) ClearAll(ctx context.Context, exec SQLExecutor) error {
	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		for _, table := range []string{"chips", "scores", "game_players", "games"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
