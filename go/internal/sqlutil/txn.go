package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Run executes fn inside a *sql.Tx.
// If fn returns an error the tx rolls back, else it commits.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	newQueries func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(newQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
