package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrTransactionAborted reports that the underlying storage failed
// mid-transaction and the transaction was rolled back.
var ErrTransactionAborted = errors.New("transaction aborted")

// Querier is the subset of database/sql used by the store packages.
// Both *sql.DB and *sql.Tx satisfy this interface.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with the transactional handle, and
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// All cross-collection operations (identity allocation + insert, item
// metadata + attachment writes) must run inside a single WithTx body so
// that either every member commits or none do.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx Querier) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTransactionAborted, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: commit: %v", ErrTransactionAborted, cerr)
		}
	}()

	err = fn(ctx, tx)
	return err
}
