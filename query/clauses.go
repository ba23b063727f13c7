package query

import (
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/querykit/param"
	"xorkevin.dev/kerrors"
)

// lead appends a leading clause, which must be the first and only one.
func (s *Statement) lead(mode Mode, frag string) *Statement {
	if !s.building(frag) {
		return s
	}
	if s.mode != ModeUnset || s.sql.Len() > 0 {
		s.AddError(kerrors.WithKind(nil, ErrState, "Leading clause "+frag+" must start the statement"))
		return s
	}
	s.mode = mode
	s.write(frag)
	return s
}

// Call starts a procedure call: CALL "schema"."proc".
func (s *Statement) Call(proc Ident) *Statement {
	return s.lead(ModeMutating, "CALL "+s.qualified(proc))
}

// InsertInto starts an insert: INSERT INTO "schema"."table".
func (s *Statement) InsertInto(table Ident) *Statement {
	return s.lead(ModeMutating, "INSERT INTO "+s.qualified(table))
}

// Update starts an update: UPDATE "schema"."table".
func (s *Statement) Update(table Ident) *Statement {
	return s.lead(ModeMutating, "UPDATE "+s.qualified(table))
}

// Delete starts a delete. Follow it with From.
func (s *Statement) Delete() *Statement {
	return s.lead(ModeMutating, "DELETE")
}

// Select starts a row-producing statement.
func (s *Statement) Select() *Statement {
	return s.lead(ModeRowProducing, "SELECT")
}

// All projects every column.
func (s *Statement) All() *Statement {
	if s.building("*") {
		s.write("*")
	}
	return s
}

// Columns projects the given columns in order.
func (s *Statement) Columns(cols ...Ident) *Statement {
	if !s.building("columns") {
		return s
	}
	if len(cols) == 0 {
		s.AddError(kerrors.WithKind(nil, ErrState, "Columns requires at least one column"))
		return s
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.quote(c)
	}
	s.write(strings.Join(quoted, ", "))
	return s
}

// From appends FROM "schema"."table".
func (s *Statement) From(table Ident) *Statement {
	if s.building("FROM") {
		s.write("FROM " + s.qualified(table))
	}
	return s
}

// Values appends a positional VALUES list.
func (s *Statement) Values(vals ...param.Value) *Statement {
	if s.building("VALUES") {
		s.write("VALUES")
		s.writeList(vals)
	}
	return s
}

// Args appends a procedure argument list.
func (s *Statement) Args(vals ...param.Value) *Statement {
	if s.building("arguments") {
		s.writeList(vals)
	}
	return s
}

// Set appends one assignment. The first assignment of a statement opens the
// SET clause, later ones are comma-separated.
func (s *Statement) Set(col Ident, v param.Value) *Statement {
	if !s.building("SET") {
		return s
	}
	if !s.setEmitted {
		s.write("SET " + s.quote(col) + " =")
		s.setEmitted = true
	} else {
		s.write(", " + s.quote(col) + " =")
	}
	s.writeValue(v)
	return s
}

// SetAll appends the assignments in order.
func (s *Statement) SetAll(assignments ...Assignment) *Statement {
	for _, a := range assignments {
		s.Set(a.Column, a.Value)
	}
	return s
}

// Where appends a bare WHERE, to be followed by a full predicate.
func (s *Statement) Where() *Statement {
	if s.building("WHERE") {
		s.write("WHERE")
	}
	return s
}

// WhereColumn appends WHERE "col", to be followed by a comparison.
func (s *Statement) WhereColumn(col Ident) *Statement {
	if s.building("WHERE") {
		s.write("WHERE " + s.quote(col))
	}
	return s
}

// Column appends a bare column reference, typically after And or Or.
func (s *Statement) Column(col Ident) *Statement {
	if s.building("column") {
		s.write(s.quote(col))
	}
	return s
}

func (s *Statement) And() *Statement {
	if s.building("AND") {
		s.write("AND")
	}
	return s
}

func (s *Statement) Or() *Statement {
	if s.building("OR") {
		s.write("OR")
	}
	return s
}

// Equal appends "= $n".
func (s *Statement) Equal(v param.Value) *Statement {
	if s.building("=") {
		s.write("=")
		s.writeValue(v)
	}
	return s
}

// UpperLike appends a case-insensitive substring match:
// UPPER("col") LIKE UPPER($n) bound to %substr%.
func (s *Statement) UpperLike(col Ident, substr string) *Statement {
	if s.building("LIKE") {
		s.write("UPPER(" + s.quote(col) + ") LIKE UPPER(")
		s.encode(param.Text("%" + substr + "%"))
		s.sql.WriteString(")")
	}
	return s
}

// StartsLike appends LIKE $n bound to prefix%. It is case-sensitive.
func (s *Statement) StartsLike(prefix string) *Statement {
	if s.building("LIKE") {
		s.write("LIKE")
		s.writeValue(param.Text(prefix + "%"))
	}
	return s
}

// OrderBy appends ORDER BY "col" dir. dir is not validated.
func (s *Statement) OrderBy(col Ident, dir Direction) *Statement {
	if s.building("ORDER BY") {
		s.write("ORDER BY " + s.quote(col) + " " + string(dir))
	}
	return s
}

// Cast appends CAST("col" AS type(length)). A negative length omits the
// length.
func (s *Statement) Cast(col Ident, t TypeName, length int) *Statement {
	if !s.building("CAST") {
		return s
	}
	frag := "CAST(" + s.quote(col) + " AS " + string(t)
	if length >= 0 {
		frag += "(" + strconv.Itoa(length) + ")"
	}
	s.write(frag + ")")
	return s
}

// Limit appends LIMIT $n.
func (s *Statement) Limit(n int64) *Statement {
	if s.building("LIMIT") {
		s.write("LIMIT")
		s.writeValue(param.Int64(n))
	}
	return s
}
