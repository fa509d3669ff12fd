package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/mahjong-scorebook/models"
)

var ErrRoundNotFound = errors.New("round not found")

type ScoreRepository interface {
	Record(ctx context.Context, exec SQLExecutor, gameID, roundIndex int, entries []models.ScoreEntry) ([]models.Score, error)
	InsertRows(ctx context.Context, exec SQLExecutor, rows []models.Score) error
	NextRoundIndex(ctx context.Context, exec SQLExecutor, gameID int) (int, error)
	DeleteRound(ctx context.Context, exec SQLExecutor, gameID, roundIndex int) error
	ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.Score, error)
}

type sqliteScoreRepository struct {
	db    *sql.DB
	clock Clock
}

func NewSQLiteScoreRepository(db *sql.DB, clock Clock) ScoreRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &sqliteScoreRepository{db: db, clock: clock}
}

func (r *sqliteScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const insertScore = `
	INSERT INTO scores (game_id, round_index, player_name, point, rank, timestamp, formatted_time)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// Record stores one round: every entry shares a single timestamp and
// display time, and either all rows commit or none do.
func (r *sqliteScoreRepository) Record(ctx context.Context, exec SQLExecutor, gameID, roundIndex int, entries []models.ScoreEntry) ([]models.Score, error) {
	now := r.clock()
	ts := time.UnixMilli(now.UnixMilli())
	formatted := models.FormatDisplayTime(now)

	rows := make([]models.Score, len(entries))
	for i, e := range entries {
		rows[i] = models.Score{
			GameID:        gameID,
			RoundIndex:    roundIndex,
			PlayerName:    e.Player,
			Point:         e.Point,
			Rank:          e.Rank,
			Timestamp:     ts,
			FormattedTime: formatted,
		}
	}
	if err := r.InsertRows(ctx, exec, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertRows stores rows verbatim (timestamps included) in one
// transaction, filling their IDs.
func (r *sqliteScoreRepository) InsertRows(ctx context.Context, exec SQLExecutor, rows []models.Score) error {
	if len(rows) == 0 {
		return nil
	}
	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		for i := range rows {
			s := &rows[i]
			res, err := tx.ExecContext(ctx, insertScore,
				s.GameID, s.RoundIndex, s.PlayerName, s.Point, s.Rank, s.Timestamp.UnixMilli(), s.FormattedTime,
			)
			if err != nil {
				return fmt.Errorf("failed to insert score for %q in round %d: %w", s.PlayerName, s.RoundIndex, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read score id: %w", err)
			}
			s.ID = int(id)
		}
		return nil
	})
}

func (r *sqliteScoreRepository) NextRoundIndex(ctx context.Context, exec SQLExecutor, gameID int) (int, error) {
	var next int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(round_index), 0) + 1 FROM scores WHERE game_id = ?`, gameID,
	).Scan(&next)
	return next, err
}

// DeleteRound removes a round and renumbers the survivors densely from 1 in
// order of their earliest timestamp. Chips tagged with a round whose number
// changes follow it. Runs in one transaction.
func (r *sqliteScoreRepository) DeleteRound(ctx context.Context, exec SQLExecutor, gameID, roundIndex int) error {
	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM scores WHERE game_id = ? AND round_index = ?`, gameID, roundIndex)
		if err != nil {
			return fmt.Errorf("failed to delete round %d: %w", roundIndex, err)
		}
		if err := checkAffectedRows(result, ErrRoundNotFound); err != nil {
			return err
		}
		return renumberRounds(ctx, tx, gameID)
	})
}

func renumberRounds(ctx context.Context, tx SQLExecutor, gameID int) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT round_index, MIN(timestamp) AS first_ts
		FROM scores
		WHERE game_id = ?
		GROUP BY round_index
		ORDER BY first_ts, round_index`, gameID)
	if err != nil {
		return fmt.Errorf("failed to load rounds: %w", err)
	}
	type move struct{ from, to int }
	var moves []move
	position := 0
	for rows.Next() {
		var idx int
		var firstTS int64
		if err := rows.Scan(&idx, &firstTS); err != nil {
			rows.Close()
			return err
		}
		position++
		if idx != position {
			moves = append(moves, move{from: idx, to: position})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	if len(moves) == 0 {
		return nil
	}

	// Move changed rounds above every index in use first, then shift them
	// down, so no update ever matches rows another update already moved.
	var offset int
	if err := tx.QueryRowContext(ctx, `
		SELECT MAX(m) + 1 FROM (
			SELECT COALESCE(MAX(round_index), 0) AS m FROM scores WHERE game_id = ?
			UNION ALL
			SELECT COALESCE(MAX(round_index), 0) FROM chips WHERE game_id = ?
		)`, gameID, gameID).Scan(&offset); err != nil {
		return fmt.Errorf("failed to compute renumber offset: %w", err)
	}

	for _, table := range []string{"scores", "chips"} {
		for _, m := range moves {
			if _, err := tx.ExecContext(ctx,
				`UPDATE `+table+` SET round_index = ? WHERE game_id = ? AND round_index = ?`,
				m.to+offset, gameID, m.from,
			); err != nil {
				return fmt.Errorf("failed to renumber %s round %d: %w", table, m.from, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET round_index = round_index - ? WHERE game_id = ? AND round_index > ?`,
			offset, gameID, offset,
		); err != nil {
			return fmt.Errorf("failed to finalize %s renumbering: %w", table, err)
		}
	}
	return nil
}

// ListByGame returns the game's score rows ordered by round, then player name.
func (r *sqliteScoreRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.Score, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, `
		SELECT id, game_id, round_index, player_name, point, rank, timestamp, formatted_time
		FROM scores
		WHERE game_id = ?
		ORDER BY round_index, player_name, id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]models.Score, 0)
	for rows.Next() {
		var s models.Score
		var ts int64
		if err := rows.Scan(&s.ID, &s.GameID, &s.RoundIndex, &s.PlayerName, &s.Point, &s.Rank, &ts, &s.FormattedTime); err != nil {
			return nil, err
		}
		s.Timestamp = time.UnixMilli(ts)
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
