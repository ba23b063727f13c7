package database

import (
	"context"
	"database/sql"

	"github.com/Konsultn-Engineering/querykit/cache"
)

// SqlTx implements Handle for *sql.Tx. When a statement cache is set,
// statements are prepared once on the *sql.DB and rebound to the
// transaction. A cache miss borrows a second pool connection for the
// prepare, so the pool must allow more than one open connection.
type SqlTx struct {
	tx    *sql.Tx
	db    *sql.DB
	stmts *cache.StatementCache
}

// NewSqlTx wraps an open transaction. db and stmts may be nil to skip
// statement caching.
func NewSqlTx(tx *sql.Tx, db *sql.DB, stmts *cache.StatementCache) *SqlTx {
	return &SqlTx{tx: tx, db: db, stmts: stmts}
}

// SqlBegin returns a BeginFunc that opens transactions on db.
func SqlBegin(db *sql.DB, stmts *cache.StatementCache) BeginFunc {
	return func(ctx context.Context) (Handle, error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		return NewSqlTx(tx, db, stmts), nil
	}
}

func (s *SqlTx) stmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if s.stmts == nil || s.db == nil {
		return s.tx.PrepareContext(ctx, query)
	}
	stmt, err := s.stmts.GetOrPrepare(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	return s.tx.StmtContext(ctx, stmt), nil
}

// Exec executes a statement that does not return rows.
func (s *SqlTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	stmt, err := s.stmt(ctx, query)
	if err != nil {
		return nil, err
	}
	// transaction-bound statements are released on commit
	return stmt.ExecContext(ctx, args...)
}

// Query executes a statement that returns rows.
func (s *SqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	stmt, err := s.stmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return &SqlRows{rows: rows}, nil
}

// Commit commits the transaction.
func (s *SqlTx) Commit(context.Context) error { return s.tx.Commit() }

// Rollback rolls the transaction back.
func (s *SqlTx) Rollback(context.Context) error { return s.tx.Rollback() }

// SqlRows implements Rows for *sql.Rows.
type SqlRows struct {
	rows    *sql.Rows
	columns []string
}

// NewSqlRows wraps rows.
func NewSqlRows(rows *sql.Rows) *SqlRows {
	return &SqlRows{rows: rows}
}

// Next prepares the next result row for reading.
func (s *SqlRows) Next() bool { return s.rows.Next() }

// Err returns the error, if any, that was encountered during iteration.
func (s *SqlRows) Err() error { return s.rows.Err() }

// Close closes the rows iterator.
func (s *SqlRows) Close() error { return s.rows.Close() }

// Columns returns the column names.
func (s *SqlRows) Columns() ([]string, error) {
	if s.columns == nil {
		cols, err := s.rows.Columns()
		if err != nil {
			return nil, err
		}
		s.columns = cols
	}
	return s.columns, nil
}

// Values scans the current row into driver values.
func (s *SqlRows) Values() ([]any, error) {
	cols, err := s.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

var _ Handle = (*SqlTx)(nil)
