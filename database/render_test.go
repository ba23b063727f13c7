package database

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	id := uuid.MustParse("8f14e45f-ceea-467a-9575-7f1b7a7b3c1d")

	tests := []struct {
		name     string
		in       any
		expected string
		valid    bool
	}{
		{"Nil", nil, "", false},
		{"String", "ann", "ann", true},
		{"Bytes", []byte("raw"), "raw", true},
		{"Bool", true, "true", true},
		{"Int64", int64(-12), "-12", true},
		{"Int32", int32(7), "7", true},
		{"Float64", 10.5, "10.5", true},
		{"Time", ts, "2024-01-02T03:04:05.0000006Z", true},
		{"UUID", id, "8f14e45f-ceea-467a-9575-7f1b7a7b3c1d", true},
		{"UUIDBytes", [16]byte(id), "8f14e45f-ceea-467a-9575-7f1b7a7b3c1d", true},
		{"JSONObject", map[string]any{"tier": "gold", "limit": float64(5)}, `{"limit":5,"tier":"gold"}`, true},
		{"Array", []any{int32(1), nil, "x"}, `[1,null,"x"]`, true},
		{"NumericValuer", pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, "123.45", true},
		{"NullNumeric", pgtype.Numeric{}, "", false},
		{"NullText", pgtype.Text{}, "", false},
		{"Fallback", struct{ A int }{1}, "{1}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, valid := Render(tt.in)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.expected, out)
		})
	}
}
