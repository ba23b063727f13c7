package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Konsultn-Engineering/querykit/database"
	"github.com/Konsultn-Engineering/querykit/param"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteMutatingBindsInOrder(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.tx.affected = 1
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s := New(bank).Update(accounts).
		Set(name, param.Text("ann")).
		Set(balance, param.Float(12.5)).
		Set(amount, param.Null()).
		Set("opened", param.Generic(when)).
		WhereColumn(id).Equal(param.Int(42))

	require.NoError(t, s.Execute(ctx, p))

	require.Len(t, p.tx.execs, 1)
	assert.Empty(t, p.tx.queries)
	exec := p.tx.execs[0]
	assert.Equal(t, s.SQL(), exec.query)
	assert.Equal(t, []any{"ann", 12.5, pgtype.Text{}, when, int64(42)}, exec.args)
	assert.True(t, exec.hasDL)

	n, err := s.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, p.acquires)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, p.commits)
}

func TestExecuteRowProducingRunsQuery(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.tx.rows = newFakeRows([]string{"id"})

	s := New(bank).Select().All().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	require.Len(t, p.tx.queries, 1)
	assert.Empty(t, p.tx.execs)
	assert.Empty(t, p.tx.queries[0].args)

	_, err := s.RowsAffected()
	assert.True(t, errors.Is(err, ErrState))

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, p.tx.rows.closed)
	assert.Equal(t, 1, p.commits)
}

func TestExecuteAppliesTimeout(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()

	before := time.Now()
	s := New(bank, WithTimeout(time.Minute)).Delete().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	exec := p.tx.execs[0]
	require.True(t, exec.hasDL)
	assert.WithinDuration(t, before.Add(time.Minute), exec.deadline, 5*time.Second)

	p2 := newFakeProvider()
	s = New(bank).Delete().From(accounts)
	require.NoError(t, s.Execute(ctx, p2))
	assert.WithinDuration(t, before.Add(DefaultTimeout), p2.tx.execs[0].deadline, 5*time.Second)
}

func TestQueryTimeoutBoundsExecutionOnly(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.tx.rows = newFakeRows([]string{"id"}, []any{int64(1)})

	s := New(bank, WithTimeout(10*time.Millisecond)).Select().All().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	cursorCtx := p.tx.queries[0].ctx
	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, cursorCtx.Err())

	n := 0
	for _, err := range s.Records(ctx) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)
	assert.Error(t, cursorCtx.Err())
}

func TestQueryTimeoutExpires(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.tx.block = true

	s := New(bank, WithTimeout(10*time.Millisecond)).Select().All().From(accounts)
	err := s.Execute(ctx, p)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, p.commits)
}

func TestExecuteTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()

	s := New(bank).Delete().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	err := s.Execute(ctx, p)
	assert.True(t, errors.Is(err, ErrState))
	assert.Len(t, p.tx.execs, 1)
	assert.Equal(t, 1, p.acquires)
}

func TestClauseAfterExecuteIsRecorded(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()

	s := New(bank).Delete().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	before := s.SQL()
	s.WhereColumn(id).Equal(param.Int(1))
	assert.Equal(t, before, s.SQL())
	assert.Empty(t, s.Params())
	require.Len(t, s.Errors(), 2)
	assert.True(t, errors.Is(s.FirstError(), ErrState))
}

func TestExecuteWithoutLeadingClause(t *testing.T) {
	p := newFakeProvider()

	err := New(bank).Execute(context.Background(), p)
	assert.True(t, errors.Is(err, ErrState))
	assert.Equal(t, 0, p.acquires)
}

func TestExecuteReportsConstructionErrors(t *testing.T) {
	p := newFakeProvider()

	s := New(bank).Select().Delete()
	err := s.Execute(context.Background(), p)
	assert.True(t, errors.Is(err, ErrState))
	assert.Equal(t, 0, p.acquires)
}

func TestExecuteMisaligned(t *testing.T) {
	p := newFakeProvider()

	// raw tokens are rendered verbatim, so a placeholder-like token slips in
	s := New(bank).Select().Cast(amount, "TEXT $1 --", -1).From(accounts)
	err := s.Execute(context.Background(), p)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMisaligned))
	assert.Equal(t, 0, p.acquires)
}

func TestExecuteFailure(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	driverErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	p.tx.err = driverErr

	s := New(bank).InsertInto(accounts).Values(param.Int(1))
	err := s.Execute(ctx, p)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution))
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)

	// the handle was acquired, so closing still ends the unit of work
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, p.commits)
}

func TestExecuteTimeoutIsExecutionFailure(t *testing.T) {
	p := newFakeProvider()
	p.tx.err = context.DeadlineExceeded

	s := New(bank).Delete().From(accounts)
	err := s.Execute(context.Background(), p)
	assert.True(t, errors.Is(err, ErrExecution))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecuteAcquireFailure(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.acquireErr = errors.New("pool closed")

	s := New(bank).Delete().From(accounts)
	err := s.Execute(ctx, p)
	assert.True(t, errors.Is(err, ErrExecution))

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, p.commits)
}

func TestExecuteRowsAffectedFailure(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.tx.resultErr = errors.New("driver does not support RowsAffected")

	s := New(bank).Delete().From(accounts)
	err := s.Execute(ctx, p)
	assert.True(t, errors.Is(err, ErrExecution))

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, p.commits)
}

func TestCloseCommitsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()

	s := New(bank).Delete().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, p.commits)

	_, err := s.RowsAffected()
	assert.True(t, errors.Is(err, ErrState))
	assert.True(t, errors.Is(s.Execute(ctx, p), ErrState))
}

func TestCloseReportsCommitFailure(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.commitErr = errors.New("could not serialize access")

	s := New(bank).Delete().From(accounts)
	require.NoError(t, s.Execute(ctx, p))

	err := s.Close(ctx)
	assert.True(t, errors.Is(err, ErrExecution))
	// later calls report the same outcome without committing again
	assert.Equal(t, err, s.Close(ctx))
	assert.Equal(t, 1, p.commits)
}

func TestCloseBeforeExecute(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()

	s := New(bank).Delete().From(accounts)
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, p.commits)
	assert.True(t, errors.Is(s.Execute(ctx, p), ErrState))
}

type committingHandle struct {
	*fakeTx
	commits int
}

func (h *committingHandle) Commit(context.Context) error {
	h.commits++
	return nil
}

func (h *committingHandle) Rollback(context.Context) error { return nil }

func TestStatementsShareUnitOfWork(t *testing.T) {
	ctx := context.Background()
	var handles []*committingHandle
	u := database.NewUnitOfWork(func(context.Context) (database.Handle, error) {
		h := &committingHandle{fakeTx: &fakeTx{affected: 1}}
		handles = append(handles, h)
		return h, nil
	})

	debit := New(bank).Update(accounts).Set(balance, param.Int(90)).WhereColumn(id).Equal(param.Int(1))
	credit := New(bank).Update(accounts).Set(balance, param.Int(110)).WhereColumn(id).Equal(param.Int(2))
	require.NoError(t, debit.Execute(ctx, u))
	require.NoError(t, credit.Execute(ctx, u))

	require.Len(t, handles, 1)
	assert.Len(t, handles[0].execs, 2)

	require.NoError(t, debit.Close(ctx))
	assert.Equal(t, 0, handles[0].commits)
	require.NoError(t, credit.Close(ctx))
	assert.Equal(t, 1, handles[0].commits)

	_, active := u.Active()
	assert.False(t, active)

	// the next statement starts a new unit of work
	next := New(bank).Delete().From(accounts)
	require.NoError(t, next.Execute(ctx, u))
	require.NoError(t, next.Close(ctx))
	require.Len(t, handles, 2)
	assert.Equal(t, 1, handles[1].commits)
}
