package param

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInteger
	KindFloat
	KindGeneric
	// KindDefault is the "use the column default" sentinel. It is rendered as
	// a literal token and never reaches the parameter list.
	KindDefault
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindGeneric:
		return "generic"
	case KindDefault:
		return "default"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a statement parameter. The zero Value is a typed NULL.
type Value struct {
	kind Kind
	text string
	i64  int64
	f64  float64
	any  any
}

func Null() Value { return Value{kind: KindNull} }

func Text(s string) Value { return Value{kind: KindText, text: s} }

func Int(n int) Value { return Value{kind: KindInteger, i64: int64(n)} }

func Int64(n int64) Value { return Value{kind: KindInteger, i64: n} }

func Float(f float64) Value { return Value{kind: KindFloat, f64: f} }

// Generic wraps any value the driver knows how to encode (time.Time,
// uuid.UUID, pgtype values, []byte, ...). A nil v is a typed NULL.
func Generic(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{kind: KindGeneric, any: v}
}

// Default returns the DEFAULT sentinel.
func Default() Value { return Value{kind: KindDefault} }

// Of classifies a dynamically typed value. It exists for call sites that only
// hold an `any`; typed constructors are preferred.
func Of(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case string:
		return Text(val)
	case int:
		return Int(val)
	case int8:
		return Int64(int64(val))
	case int16:
		return Int64(int64(val))
	case int32:
		return Int64(int64(val))
	case int64:
		return Int64(val)
	case uint8:
		return Int64(int64(val))
	case uint16:
		return Int64(int64(val))
	case uint32:
		return Int64(int64(val))
	case float32:
		return Float(float64(val))
	case float64:
		return Float(val)
	default:
		return Generic(val)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsDefault() bool { return v.kind == KindDefault }

// Arg returns the driver argument for a bound placeholder. NULL binds as a
// NULL text value. The DEFAULT sentinel has no argument form.
func (v Value) Arg() (any, error) {
	switch v.kind {
	case KindNull:
		return pgtype.Text{}, nil
	case KindText:
		return v.text, nil
	case KindInteger:
		return v.i64, nil
	case KindFloat:
		return v.f64, nil
	case KindGeneric:
		return v.any, nil
	case KindDefault:
		return nil, fmt.Errorf("param: %s sentinel cannot be bound to a placeholder", v.kind)
	default:
		return nil, fmt.Errorf("param: unknown value kind %s", v.kind)
	}
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindText:
		return v.text
	case KindInteger:
		return fmt.Sprintf("%d", v.i64)
	case KindFloat:
		return fmt.Sprintf("%g", v.f64)
	case KindGeneric:
		if t, ok := v.any.(time.Time); ok {
			return t.Format(time.RFC3339Nano)
		}
		return fmt.Sprint(v.any)
	case KindDefault:
		return "DEFAULT"
	default:
		return v.kind.String()
	}
}
