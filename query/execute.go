package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/querykit/database"
	"xorkevin.dev/kerrors"
)

// Execute runs the statement once on a handle acquired from p. Row-producing
// statements keep their cursor open for Records or WriteJSON; mutating
// statements keep their affected-row count for RowsAffected or Expect.
//
// Once Execute has acquired a handle, Close must be called even if Execute
// fails: closing is what ends the unit of work.
func (s *Statement) Execute(ctx context.Context, p database.Provider) error {
	if s.state != stateBuilding {
		return kerrors.WithKind(nil, ErrState, "Statement already executed")
	}
	if err := s.FirstError(); err != nil {
		return err
	}
	if s.mode == ModeUnset {
		return kerrors.WithKind(nil, ErrState, "Statement has no leading clause")
	}

	query := s.sql.String()
	if n := countPlaceholders(query); n != len(s.params) {
		return kerrors.WithKind(nil, ErrMisaligned, fmt.Sprintf("Statement has %d placeholder(s) but %d parameter(s)", n, len(s.params)))
	}
	args, err := s.bind()
	if err != nil {
		return err
	}

	tx, err := p.Acquire(ctx)
	if err != nil {
		return kerrors.WithKind(err, ErrExecution, "Failed to acquire transactional handle")
	}
	s.state = stateExecuted
	s.provider = p
	s.tx = tx

	if s.mode == ModeRowProducing {
		return s.query(ctx, tx, query, args)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := tx.Exec(execCtx, query, args...)
	if err != nil {
		return kerrors.WithKind(err, ErrExecution, "Failed to execute statement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return kerrors.WithKind(err, ErrExecution, "Failed to read affected row count")
	}
	s.affected = n
	return nil
}

// query runs a row-producing statement. The timeout bounds the call that
// executes it; the cursor it returns stays open until Close.
func (s *Statement) query(ctx context.Context, tx database.Tx, query string, args []any) error {
	cursorCtx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(s.timeout, func() {
		cancel(context.DeadlineExceeded)
	})

	rows, err := tx.Query(cursorCtx, query, args...)
	timedOut := !timer.Stop()
	if err == nil && timedOut {
		// the timer fired after the call returned but before it was stopped
		_ = rows.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		cancel(nil)
		if timedOut && !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(context.DeadlineExceeded, err)
		}
		return kerrors.WithKind(err, ErrExecution, "Failed to execute query")
	}
	s.rows = rows
	s.cancel = func() { cancel(nil) }
	return nil
}

// bind converts the parameter list to driver arguments in placeholder
// order.
func (s *Statement) bind() ([]any, error) {
	args := make([]any, len(s.params))
	for i, v := range s.params {
		arg, err := v.Arg()
		if err != nil {
			return nil, kerrors.WithKind(err, ErrMisaligned, fmt.Sprintf("Failed to bind parameter $%d", i+1))
		}
		args[i] = arg
	}
	return args, nil
}

// RowsAffected returns the affected-row count of an executed mutation.
func (s *Statement) RowsAffected() (int64, error) {
	if err := s.executed(ModeMutating); err != nil {
		return 0, err
	}
	return s.affected, nil
}

// executed checks that the statement ran successfully in mode and is still
// open.
func (s *Statement) executed(mode Mode) error {
	switch s.state {
	case stateBuilding:
		return kerrors.WithKind(nil, ErrState, "Statement not executed")
	case stateClosed:
		return kerrors.WithKind(nil, ErrState, "Statement closed")
	}
	if s.mode != mode {
		return kerrors.WithKind(nil, ErrState, fmt.Sprintf("Statement is %s, not %s", s.mode, mode))
	}
	if mode == ModeRowProducing && s.rows == nil {
		return kerrors.WithKind(nil, ErrState, "Statement has no open cursor")
	}
	return nil
}

// Close releases the cursor and commits the unit of work through the
// provider. It is terminal: later calls do nothing and return the first
// call's result. Closing a statement that never acquired a handle commits
// nothing.
func (s *Statement) Close(ctx context.Context) error {
	if s.state == stateClosed {
		return s.closeErr
	}
	s.state = stateClosed

	var errs []error
	if s.rows != nil {
		if err := s.rows.Close(); err != nil {
			errs = append(errs, kerrors.WithKind(err, ErrStream, "Failed to close cursor"))
		}
		s.rows = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.tx != nil {
		if err := s.provider.Commit(ctx, s.tx); err != nil {
			errs = append(errs, kerrors.WithKind(err, ErrExecution, "Failed to commit transaction"))
		}
		s.tx = nil
	}
	s.closeErr = errors.Join(errs...)
	return s.closeErr
}
