package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/querykit/database"
	"github.com/Konsultn-Engineering/querykit/dialect"
	"github.com/Konsultn-Engineering/querykit/param"
	"xorkevin.dev/kerrors"
)

// DefaultTimeout bounds a statement's execution. The cursor of a
// row-producing statement is not bounded by it.
const DefaultTimeout = 5 * time.Second

// Ident is a schema, table, procedure or column name. It is rendered wrapped
// in double quotes verbatim, without escaping or validation, so it must only
// ever hold compile-time tokens. Untyped string constants convert
// implicitly; converting a runtime string is an explicit trust decision.
type Ident string

// Direction is an ordering token. Any value other than Desc orders
// ascending on the server; it is rendered verbatim and not validated.
type Direction string

const (
	Asc  Direction = dialect.Asc
	Desc Direction = dialect.Desc
)

// TypeName is a cast target type, rendered verbatim.
type TypeName string

// Mode tells whether a statement produces rows or reports an affected-row
// count.
type Mode int

const (
	ModeUnset Mode = iota
	ModeRowProducing
	ModeMutating
)

func (m Mode) String() string {
	switch m {
	case ModeRowProducing:
		return "row-producing"
	case ModeMutating:
		return "mutating"
	default:
		return "unset"
	}
}

type state int

const (
	stateBuilding state = iota
	stateExecuted
	stateClosed
)

// Assignment is one "column = value" pair of a SET clause.
type Assignment struct {
	Column Ident
	Value  param.Value
}

// Option configures a Statement.
type Option func(*Statement)

// WithTimeout overrides DefaultTimeout. Non-positive durations are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Statement) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Statement assembles a parameterized SQL statement, executes it once and
// holds its result until closed. A Statement is single-use and not safe for
// concurrent use.
type Statement struct {
	dialect dialect.Dialect
	schema  Ident
	timeout time.Duration

	sql        strings.Builder
	params     []param.Value
	mode       Mode
	setEmitted bool
	errors     []error

	state    state
	provider database.Provider
	tx       database.Tx
	rows     database.Rows
	cancel   func()
	affected int64
	consumed bool
	closeErr error
}

// New starts an empty statement whose tables and procedures are qualified
// with schema. An empty schema leaves them unqualified.
func New(schema Ident, opts ...Option) *Statement {
	s := &Statement{
		dialect: dialect.NewPostgresDialect(),
		schema:  schema,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SQL returns the statement text rendered so far.
func (s *Statement) SQL() string {
	return s.sql.String()
}

func (s *Statement) String() string {
	return s.SQL()
}

// Params returns a copy of the parameter list in placeholder order.
func (s *Statement) Params() []param.Value {
	out := make([]param.Value, len(s.params))
	copy(out, s.params)
	return out
}

// Placeholders counts the placeholder tokens in the rendered text.
func (s *Statement) Placeholders() int {
	return countPlaceholders(s.sql.String())
}

func (s *Statement) Mode() Mode {
	return s.mode
}

// Timeout returns the statement timeout.
func (s *Statement) Timeout() time.Duration {
	return s.timeout
}

// AddError records a construction error reported by Execute.
func (s *Statement) AddError(err error) {
	if err != nil {
		s.errors = append(s.errors, err)
	}
}

// HasErrors returns true if there are any errors
func (s *Statement) HasErrors() bool {
	return len(s.errors) > 0
}

// Errors returns all accumulated construction errors.
func (s *Statement) Errors() []error {
	return s.errors
}

// FirstError returns the first construction error or nil.
func (s *Statement) FirstError() error {
	if len(s.errors) > 0 {
		return s.errors[0]
	}
	return nil
}

// building reports whether clauses may still be appended, recording an
// error when they may not.
func (s *Statement) building(clause string) bool {
	if s.state == stateBuilding {
		return true
	}
	s.AddError(kerrors.WithKind(nil, ErrState, fmt.Sprintf("Clause %s appended after execution", clause)))
	return false
}

func (s *Statement) quote(name Ident) string {
	return s.dialect.QuoteIdentifier(string(name))
}

// qualified renders "schema"."name".
func (s *Statement) qualified(name Ident) string {
	if s.schema == "" {
		return s.quote(name)
	}
	return s.quote(s.schema) + "." + s.quote(name)
}

// countPlaceholders counts $n tokens outside quoted identifiers and string
// literals.
func countPlaceholders(sql string) int {
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			n++
			for i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' {
				i++
			}
		}
	}
	return n
}
