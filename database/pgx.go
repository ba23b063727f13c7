package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxTx implements Handle for a pgx transaction.
type PgxTx struct {
	tx pgx.Tx
}

// NewPgxTx wraps an open pgx transaction.
func NewPgxTx(tx pgx.Tx) *PgxTx {
	return &PgxTx{tx: tx}
}

// PgxBegin returns a BeginFunc that opens transactions on pool.
func PgxBegin(pool *pgxpool.Pool) BeginFunc {
	return func(ctx context.Context) (Handle, error) {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return NewPgxTx(tx), nil
	}
}

// Exec executes a statement that does not return rows.
func (p *PgxTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	cmdTag, err := p.tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxResult{cmdTag: cmdTag}, nil
}

// Query executes a statement that returns rows.
func (p *PgxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return NewPgxRows(rows, p.tx.Conn().TypeMap()), nil
}

// Commit commits the transaction.
func (p *PgxTx) Commit(ctx context.Context) error { return p.tx.Commit(ctx) }

// Rollback rolls the transaction back.
func (p *PgxTx) Rollback(ctx context.Context) error { return p.tx.Rollback(ctx) }

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows    pgx.Rows
	typeMap *pgtype.Map
	columns []string
}

// NewPgxRows wraps rows. typeMap re-encodes values that have no display form
// of their own.
func NewPgxRows(rows pgx.Rows, typeMap *pgtype.Map) *PgxRows {
	return &PgxRows{rows: rows, typeMap: typeMap}
}

// Next prepares the next result row for reading.
func (p *PgxRows) Next() bool { return p.rows.Next() }

// Values returns the decoded values of the current row. Scalars and
// timestamps keep their Go types; every other non-NULL value, such as uuid,
// json, arrays and bytea, is replaced by its PostgreSQL text form.
func (p *PgxRows) Values() ([]any, error) {
	values, err := p.rows.Values()
	if err != nil || p.typeMap == nil {
		return values, err
	}
	fds := p.rows.FieldDescriptions()
	for i, v := range values {
		if i >= len(fds) || displayable(v) {
			continue
		}
		buf, err := p.typeMap.Encode(fds[i].DataTypeOID, pgtype.TextFormatCode, v, nil)
		if err != nil {
			// Render falls back to the value's own display form
			continue
		}
		if buf == nil {
			values[i] = nil
			continue
		}
		values[i] = string(buf)
	}
	return values, nil
}

// displayable reports whether Render shows v as PostgreSQL does.
func displayable(v any) bool {
	switch v.(type) {
	case nil, string, bool, int16, int32, int64, float32, float64, time.Time:
		return true
	}
	return false
}

// Err returns the error, if any, that was encountered during iteration.
func (p *PgxRows) Err() error { return p.rows.Err() }

// Close closes the rows iterator.
func (p *PgxRows) Close() error {
	p.rows.Close()
	return p.rows.Err()
}

// Columns returns the column labels.
func (p *PgxRows) Columns() ([]string, error) {
	if p.columns == nil {
		fds := p.rows.FieldDescriptions()
		p.columns = make([]string, len(fds))
		for i, fd := range fds {
			p.columns[i] = fd.Name
		}
	}
	return p.columns, nil
}

// PgxResult implements Result for pgx command tags.
type PgxResult struct {
	cmdTag pgconn.CommandTag
}

// RowsAffected returns the number of rows affected by the command.
func (r *PgxResult) RowsAffected() (int64, error) {
	return r.cmdTag.RowsAffected(), nil
}

var _ Handle = (*PgxTx)(nil)
