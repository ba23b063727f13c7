package database

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingTxRedactsArgs(t *testing.T) {
	logger := &recordingLogger{}
	tx := NewLoggingTx(&fakeHandle{}, "uow1", logger, LogConfig{LogSQL: true, LogArgs: true})

	_, err := tx.Exec(context.Background(), `UPDATE "t" SET "a" = $1, "b" = $2, "c" = $3`, "secret", int64(3), nil)
	require.NoError(t, err)

	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "args=[redacted(len=6), 3, null]")
	assert.NotContains(t, logger.lines[0], "secret")
}

func TestLoggingTxSlowQueryThreshold(t *testing.T) {
	logger := &recordingLogger{}
	tx := NewLoggingTx(&fakeHandle{}, "uow1", logger, LogConfig{SlowQuery: time.Hour})

	_, err := tx.Exec(context.Background(), `DELETE FROM "t"`)
	require.NoError(t, err)
	assert.Empty(t, logger.lines)
}

func TestLoggingTxQueryError(t *testing.T) {
	logger := &recordingLogger{}
	tx := NewLoggingTx(&fakeHandle{}, "uow1", logger, LogConfig{LogSQL: true})

	_, err := tx.Query(context.Background(), `SELECT * FROM "t"`)
	require.Error(t, err)
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "err=no rows here")
}

func TestTruncateSQL(t *testing.T) {
	long := strings.Repeat("x", 3000)
	assert.Len(t, truncateSQL(long, 0), 2048+len("…"))
	assert.Equal(t, "abc…", truncateSQL("abcdef", 3))
	assert.Equal(t, "abc", truncateSQL("abc", 3))

	// "é" is two bytes; a cut inside it backs up to the rune start
	name := `SELECT "café"`
	out := truncateSQL(name, len(`SELECT "caf`)+1)
	assert.Equal(t, `SELECT "caf…`, out)
	assert.True(t, utf8.ValidString(out))
}
