package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/querykit/database"
)

type fakeResult struct {
	n   int64
	err error
}

func (r fakeResult) RowsAffected() (int64, error) { return r.n, r.err }

type fakeRows struct {
	labels  []string
	data    [][]any
	pos     int
	failAt  int // row index whose Values fails, -1 for none
	nextErr error
	closed  int
}

func newFakeRows(labels []string, data ...[]any) *fakeRows {
	return &fakeRows{labels: labels, data: data, failAt: -1}
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Columns() ([]string, error) { return r.labels, nil }

func (r *fakeRows) Values() ([]any, error) {
	if r.pos-1 == r.failAt {
		return nil, errors.New("connection reset by peer")
	}
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Err() error { return r.nextErr }

func (r *fakeRows) Close() error {
	r.closed++
	return nil
}

type call struct {
	ctx      context.Context
	query    string
	args     []any
	deadline time.Time
	hasDL    bool
}

type fakeTx struct {
	queries   []call
	execs     []call
	rows      *fakeRows
	affected  int64
	err       error
	resultErr error
	// block makes Query wait for its context to end.
	block bool
}

func (t *fakeTx) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	dl, ok := ctx.Deadline()
	t.execs = append(t.execs, call{ctx: ctx, query: query, args: args, deadline: dl, hasDL: ok})
	if t.err != nil {
		return nil, t.err
	}
	return fakeResult{n: t.affected, err: t.resultErr}, nil
}

func (t *fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	dl, ok := ctx.Deadline()
	t.queries = append(t.queries, call{ctx: ctx, query: query, args: args, deadline: dl, hasDL: ok})
	if t.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.rows, nil
}

type fakeProvider struct {
	mu         sync.Mutex
	tx         *fakeTx
	acquires   int
	commits    int
	acquireErr error
	commitErr  error
}

func (p *fakeProvider) Acquire(context.Context) (database.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquires++
	return p.tx, nil
}

func (p *fakeProvider) Commit(_ context.Context, tx database.Tx) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tx != database.Tx(p.tx) {
		return errors.New("foreign handle")
	}
	p.commits++
	return p.commitErr
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{tx: &fakeTx{}}
}
