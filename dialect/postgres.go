package dialect

import "strconv"

type Postgres struct{}

func NewPostgresDialect() Dialect {
	return &Postgres{}
}

// QuoteIdentifier wraps name in double quotes verbatim. Embedded quotes are
// not escaped: identifiers must be compile-time tokens, never user input.
func (p Postgres) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

// Placeholder returns the 1-based positional parameter token.
func (p Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
