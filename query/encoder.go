package query

import (
	"strings"

	"github.com/Konsultn-Engineering/querykit/dialect"
	"github.com/Konsultn-Engineering/querykit/param"
)

// write appends a fragment separated by a single space. Fragments starting
// with a comma or a closing parenthesis attach to the previous one.
func (s *Statement) write(frag string) {
	if s.sql.Len() > 0 && !strings.HasPrefix(frag, ",") && !strings.HasPrefix(frag, ")") {
		s.sql.WriteByte(' ')
	}
	s.sql.WriteString(frag)
}

// encode appends v without a separator: the DEFAULT sentinel as a literal
// token, any other value as the next placeholder together with its entry in
// the parameter list.
func (s *Statement) encode(v param.Value) {
	if v.IsDefault() {
		s.sql.WriteString(dialect.Default)
		return
	}
	s.params = append(s.params, v)
	s.sql.WriteString(s.dialect.Placeholder(len(s.params)))
}

// writeValue is encode preceded by a space.
func (s *Statement) writeValue(v param.Value) {
	if s.sql.Len() > 0 {
		s.sql.WriteByte(' ')
	}
	s.encode(v)
}

// writeList appends a parenthesized, comma-separated value list.
func (s *Statement) writeList(vals []param.Value) {
	s.write("(")
	for i, v := range vals {
		if i > 0 {
			s.sql.WriteString(", ")
		}
		s.encode(v)
	}
	s.sql.WriteString(")")
}
