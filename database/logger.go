package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// Logger receives one line per executed statement.
type Logger interface {
	Printf(format string, args ...any)
}

type NopLogger struct{}

func (NopLogger) Printf(format string, args ...any) {}

func StdLogger() Logger {
	return log.New(os.Stdout, "[querykit] ", log.LstdFlags)
}

// LogConfig controls statement logging.
type LogConfig struct {
	// LogSQL logs every statement.
	LogSQL bool `json:"log_sql" yaml:"log_sql" mapstructure:"log_sql"`
	// LogArgs includes redacted arguments in log lines.
	LogArgs bool `json:"log_args" yaml:"log_args" mapstructure:"log_args"`
	// SlowQuery logs statements slower than the threshold even when LogSQL
	// is off.
	SlowQuery time.Duration `json:"slow_query" yaml:"slow_query" mapstructure:"slow_query"`
	// MaxSQLLen truncates logged statement text. Defaults to 2048.
	MaxSQLLen int `json:"max_sql_len" yaml:"max_sql_len" mapstructure:"max_sql_len"`
}

func (c LogConfig) enabled() bool {
	return c.LogSQL || c.SlowQuery > 0
}

// LoggingTx decorates a Tx with statement logging.
type LoggingTx struct {
	inner  Tx
	id     string
	logger Logger
	cfg    LogConfig
}

// NewLoggingTx wraps inner. id correlates the lines of one unit of work.
func NewLoggingTx(inner Tx, id string, logger Logger, cfg LogConfig) *LoggingTx {
	return &LoggingTx{inner: inner, id: id, logger: logger, cfg: cfg}
}

func (l *LoggingTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	start := time.Now()
	res, err := l.inner.Exec(ctx, query, args...)
	l.log(query, args, time.Since(start), err)
	return res, err
}

func (l *LoggingTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := l.inner.Query(ctx, query, args...)
	l.log(query, args, time.Since(start), err)
	return rows, err
}

func (l *LoggingTx) log(query string, args []any, dur time.Duration, err error) {
	if l.logger == nil {
		return
	}
	if !l.cfg.LogSQL && (l.cfg.SlowQuery <= 0 || dur < l.cfg.SlowQuery) {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("statement timeout: %w", err)
	}
	query = truncateSQL(query, l.cfg.MaxSQLLen)
	if l.cfg.LogArgs {
		l.logger.Printf("uow=%s sql=%s args=%s dur=%s err=%v", l.id, query, formatArgs(args), dur, err)
		return
	}
	l.logger.Printf("uow=%s sql=%s argc=%d dur=%s err=%v", l.id, query, len(args), dur, err)
}

func truncateSQL(sql string, maxLen int) string {
	const defaultMax = 2048
	if maxLen <= 0 {
		maxLen = defaultMax
	}
	if len(sql) <= maxLen {
		return sql
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(sql[cut]) {
		cut--
	}
	return sql[:cut] + "…"
}

func formatArgs(args []any) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(redact(arg))
	}
	b.WriteByte(']')
	return b.String()
}

func redact(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("redacted(len=%d)", len(x))
	case []byte:
		return fmt.Sprintf("bytes(len=%d)", len(x))
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%T", v)
	}
}
