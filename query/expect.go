package query

import (
	"xorkevin.dev/kerrors"
)

// Expect checks that the executed mutation affected exactly n rows.
func (s *Statement) Expect(n int64) error {
	actual, err := s.RowsAffected()
	if err != nil {
		return err
	}
	if actual != n {
		return kerrors.WithKind(&ExpectationError{Expected: n, Actual: actual}, ErrExpectation, "Unexpected affected row count")
	}
	return nil
}
