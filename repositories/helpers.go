package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx, so repository
// methods can run standalone or as part of a caller's transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Clock supplies timestamps for new rows.
type Clock func() time.Time

// SystemClock is the wall clock truncated to the millisecond precision the
// store keeps.
func SystemClock() time.Time {
	return time.UnixMilli(time.Now().UnixMilli())
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// RunInTx runs fn inside a new transaction on db, committing when fn
// returns nil and rolling back otherwise.
func RunInTx(ctx context.Context, db *sql.DB, fn func(exec SQLExecutor) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

// inTx joins exec when it already is a transaction and opens a new one on
// db otherwise.
func inTx(ctx context.Context, db *sql.DB, exec SQLExecutor, fn func(exec SQLExecutor) error) error {
	if tx, ok := exec.(*sql.Tx); ok {
		return fn(tx)
	}
	return RunInTx(ctx, db, fn)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
