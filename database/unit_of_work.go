package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrForeignTx is returned by Commit for a handle this provider did not lend,
// or one whose unit of work already ended.
var ErrForeignTx = errors.New("transaction handle does not belong to the active unit of work")

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

func WithLogger(logger Logger) Option {
	return func(u *UnitOfWork) {
		u.logger = logger
	}
}

func WithLogConfig(cfg LogConfig) Option {
	return func(u *UnitOfWork) {
		u.logCfg = cfg
	}
}

type work struct {
	id     ulid.ULID
	handle Handle
	tx     Tx
	// lent counts Acquire calls not yet matched by a Commit.
	lent int
}

// UnitOfWork is a Provider with at most one transaction in flight. Acquire
// begins a transaction when none is open and otherwise lends the open one.
// Every Acquire is matched by one Commit; the transaction commits when the
// last lent handle is returned, so the next Acquire starts a new unit of
// work.
type UnitOfWork struct {
	begin   BeginFunc
	logger  Logger
	logCfg  LogConfig
	entropy *ulid.MonotonicEntropy

	mu      sync.Mutex
	current *work
}

func NewUnitOfWork(begin BeginFunc, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		begin:   begin,
		logger:  NopLogger{},
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Acquire returns the handle of the active unit of work, beginning one if
// needed.
func (u *UnitOfWork) Acquire(ctx context.Context) (Tx, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.current != nil {
		u.current.lent++
		return u.current.tx, nil
	}

	handle, err := u.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	id, err := ulid.New(ulid.Timestamp(time.Now()), u.entropy)
	if err != nil {
		_ = handle.Rollback(ctx)
		return nil, fmt.Errorf("unit of work id: %w", err)
	}

	w := &work{id: id, handle: handle, tx: handle, lent: 1}
	if u.logger != nil && u.logCfg.enabled() {
		w.tx = NewLoggingTx(handle, id.String(), u.logger, u.logCfg)
	}
	u.current = w
	return w.tx, nil
}

// Commit returns a handle lent by Acquire. The transaction commits once
// every lent handle has been returned; earlier calls return nil. A handle of
// a unit of work that already ended, by commit or Rollback, is rejected with
// ErrForeignTx.
func (u *UnitOfWork) Commit(ctx context.Context, tx Tx) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.current == nil || u.current.tx != tx {
		return ErrForeignTx
	}
	w := u.current
	w.lent--
	if w.lent > 0 {
		return nil
	}
	u.current = nil

	if err := w.handle.Commit(ctx); err != nil {
		return fmt.Errorf("commit unit of work %s: %w", w.id, err)
	}
	return nil
}

// Rollback abandons the active unit of work, if any, including handles
// still lent.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.current == nil {
		return nil
	}
	w := u.current
	u.current = nil
	return w.handle.Rollback(ctx)
}

// Active reports the id of the open unit of work.
func (u *UnitOfWork) Active() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.current == nil {
		return "", false
	}
	return u.current.id.String(), true
}

var _ Provider = (*UnitOfWork)(nil)
