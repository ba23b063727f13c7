package schema

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"

	"github.com/Konsultn-Engineering/querykit/query"
)

// Identifiers derived here come from Go type and field names, which are
// fixed at compile time, so they are safe to hand to the statement builder.

var pluralizeClient = pluralizer.NewClient()

var (
	tableCache   sync.Map // map[reflect.Type]query.Ident
	columnsCache sync.Map // map[reflect.Type][]query.Ident
)

// TableName returns the snake_case plural table identifier for T, so
// BlogPost becomes blog_posts. Pointer types resolve to their element type.
func TableName[T any]() query.Ident {
	t := typeOf[T]()
	if name, ok := tableCache.Load(t); ok {
		return name.(query.Ident)
	}
	name := query.Ident(pluralize(toSnakeCase(t.Name())))
	tableCache.Store(t, name)
	return name
}

// ColumnName returns the snake_case column identifier for a Go field name.
func ColumnName(field string) query.Ident {
	return query.Ident(toSnakeCase(field))
}

// Columns returns the column identifiers of struct T in field order. A db
// tag names the column explicitly, either bare (`db:"email"`) or as
// `db:"column:email"`; `db:"-"` skips the field. Untagged exported fields
// are named with ColumnName. Embedded structs contribute their columns in
// place.
func Columns[T any]() []query.Ident {
	t := typeOf[T]()
	if t.Kind() != reflect.Struct {
		return nil
	}
	if cols, ok := columnsCache.Load(t); ok {
		return append([]query.Ident(nil), cols.([]query.Ident)...)
	}
	cols := structColumns(t, nil)
	columnsCache.Store(t, cols)
	return append([]query.Ident(nil), cols...)
}

func structColumns(t reflect.Type, cols []query.Ident) []query.Ident {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("db") == "" {
			cols = structColumns(f.Type, cols)
			continue
		}
		if !f.IsExported() {
			continue
		}
		name, skip := tagColumn(f.Tag.Get("db"))
		if skip {
			continue
		}
		if name == "" {
			name = string(ColumnName(f.Name))
		}
		cols = append(cols, query.Ident(name))
	}
	return cols
}

// tagColumn extracts the column name from a db tag such as
// "email;unique" or "column:email;not null".
func tagColumn(tag string) (string, bool) {
	if tag == "-" {
		return "", true
	}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if name, ok := strings.CutPrefix(part, "column:"); ok {
			return strings.TrimSpace(name), false
		}
	}
	first := strings.TrimSpace(strings.SplitN(tag, ";", 2)[0])
	if first == "" || strings.Contains(first, ":") || isTagDirective(first) {
		return "", false
	}
	return first, false
}

func isTagDirective(s string) bool {
	switch s {
	case "primary", "unique", "index", "null", "not null", "auto_generate":
		return true
	}
	return false
}

func typeOf[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// toSnakeCase converts a Go identifier to snake_case, keeping acronyms
// together: UserID becomes user_id, HTTPServer becomes http_server.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	var b strings.Builder
	b.Grow(len(name) + 4)
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// pluralize pluralizes the last word of a snake_case name.
func pluralize(name string) string {
	if name == "" {
		return ""
	}
	head, last := "", name
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		head, last = name[:i+1], name[i+1:]
	}
	if last == "" {
		return name
	}
	return head + strings.ToLower(pluralizeClient.Plural(last))
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
