package database

import "context"

// Tx is the transactional handle a statement executes against. A Tx is
// shared by every statement of one unit of work and is not safe for
// concurrent use: callers running statements concurrently must use distinct
// handles.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Rows is a forward-only cursor over a row-producing statement.
type Rows interface {
	Next() bool
	// Columns returns the column labels in projection order.
	Columns() ([]string, error)
	// Values returns the current row's values in column order.
	Values() ([]any, error)
	Err() error
	Close() error
}

type Result interface {
	RowsAffected() (int64, error)
}

// Provider lends transactional handles. Acquire is called once per executed
// statement and Commit once per closed statement. The provider owns the
// handle's lifecycle and any mutual exclusion around it.
type Provider interface {
	Acquire(ctx context.Context) (Tx, error)
	Commit(ctx context.Context, tx Tx) error
}

// Handle is a Tx that can end its own transaction.
type Handle interface {
	Tx
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BeginFunc starts a new transaction.
type BeginFunc func(ctx context.Context) (Handle, error)
