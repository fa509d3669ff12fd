package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/mahjong-scorebook/models"
)

var ErrChipNotFound = errors.New("chip entry not found")

type ChipRepository interface {
	Record(ctx context.Context, exec SQLExecutor, gameID, roundTag int, entries []models.ChipEntry) ([]models.Chip, error)
	InsertRows(ctx context.Context, exec SQLExecutor, rows []models.Chip) error
	DeleteByIDs(ctx context.Context, exec SQLExecutor, gameID int, ids []int) error
	ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.Chip, error)
}

type sqliteChipRepository struct {
	db    *sql.DB
	clock Clock
}

func NewSQLiteChipRepository(db *sql.DB, clock Clock) ChipRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &sqliteChipRepository{db: db, clock: clock}
}

func (r *sqliteChipRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Record stores one chip event; all rows share a timestamp.
func (r *sqliteChipRepository) Record(ctx context.Context, exec SQLExecutor, gameID, roundTag int, entries []models.ChipEntry) ([]models.Chip, error) {
	now := r.clock()
	ts := time.UnixMilli(now.UnixMilli())
	formatted := models.FormatDisplayTime(now)

	rows := make([]models.Chip, len(entries))
	for i, e := range entries {
		rows[i] = models.Chip{
			GameID:        gameID,
			RoundIndex:    roundTag,
			PlayerName:    e.Player,
			ChipPoint:     e.ChipPoint,
			Timestamp:     ts,
			FormattedTime: formatted,
		}
	}
	if err := r.InsertRows(ctx, exec, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sqliteChipRepository) InsertRows(ctx context.Context, exec SQLExecutor, rows []models.Chip) error {
	if len(rows) == 0 {
		return nil
	}
	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		for i := range rows {
			c := &rows[i]
			res, err := tx.ExecContext(ctx, `
				INSERT INTO chips (game_id, round_index, player_name, chip_point, timestamp, formatted_time)
				VALUES (?, ?, ?, ?, ?, ?)`,
				c.GameID, c.RoundIndex, c.PlayerName, c.ChipPoint, c.Timestamp.UnixMilli(), c.FormattedTime,
			)
			if err != nil {
				return fmt.Errorf("failed to insert chip for %q: %w", c.PlayerName, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read chip id: %w", err)
			}
			c.ID = int(id)
		}
		return nil
	})
}

// DeleteByIDs removes the listed chip rows of a game. Chip tags do not
// define round order, so nothing is renumbered. Returns ErrChipNotFound
// when none of the ids matched.
func (r *sqliteChipRepository) DeleteByIDs(ctx context.Context, exec SQLExecutor, gameID int, ids []int) error {
	if len(ids) == 0 {
		return ErrChipNotFound
	}
	return inTx(ctx, r.db, exec, func(tx SQLExecutor) error {
		var deleted int64
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM chips WHERE id = ? AND game_id = ?`, id, gameID)
			if err != nil {
				return fmt.Errorf("failed to delete chip %d: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to check affected rows: %w", err)
			}
			deleted += n
		}
		if deleted == 0 {
			return ErrChipNotFound
		}
		return nil
	})
}

// ListByGame returns chip rows oldest first.
func (r *sqliteChipRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.Chip, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, `
		SELECT id, game_id, round_index, player_name, chip_point, timestamp, formatted_time
		FROM chips
		WHERE game_id = ?
		ORDER BY timestamp, id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chips := make([]models.Chip, 0)
	for rows.Next() {
		var c models.Chip
		var ts int64
		if err := rows.Scan(&c.ID, &c.GameID, &c.RoundIndex, &c.PlayerName, &c.ChipPoint, &ts, &c.FormattedTime); err != nil {
			return nil, err
		}
		c.Timestamp = time.UnixMilli(ts)
		chips = append(chips, c)
	}
	return chips, rows.Err()
}
