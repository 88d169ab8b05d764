// Transaction helpers.
//
// What is a transaction?
// Sending a message is several writes: the message row, its tag rows and its
// mention index rows. If the tag insert fails after the message row went in,
// the conversation shows a message whose tags are missing and whose mentions
// never reach anyone's inbox. A transaction groups the writes so the database
// applies all of them (COMMIT) or none of them (ROLLBACK).
//
// Why WithTx instead of calling BeginTx directly?
// Hand-written transactions leak easily: one early return without Rollback
// keeps the connection busy and, on SQLite, holds the write lock. WithTx owns
// the begin/commit/rollback cycle and the callback only returns an error.
//
// Why TxQuerier?
// *sql.DB and *sql.Tx share ExecContext, QueryContext and QueryRowContext.
// Repository write methods accept a TxQuerier, so the same method runs on
// the plain connection in a one-off call and on the *sql.Tx inside WithTx.

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxQuerier is satisfied by both *sql.DB and *sql.Tx, so repository methods
// can run standalone or inside WithTx.
type TxQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction: commit when fn returns nil, rollback when
// it returns an error or panics (the panic is re-raised).
//
//	err := database.WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
//	    if err := messageRepo.Create(ctx, tx, msg); err != nil {
//	        return err
//	    }
//	    return tagRepo.Save(ctx, tx, msg.ID, msg.Tags)
//	})
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}

		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return
}
