package dialect

// Dialect renders the tokens of the target SQL dialect. Only PostgreSQL is
// implemented.
type Dialect interface {
	QuoteIdentifier(name string) string
	Placeholder(n int) string
}

const (
	// Default is the literal that asks the server for a column or
	// argument default.
	Default = "DEFAULT"
	Asc     = "ASC"
	Desc    = "DESC"
)
