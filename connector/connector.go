package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Konsultn-Engineering/querykit/cache"
	"github.com/Konsultn-Engineering/querykit/database"
	"github.com/Konsultn-Engineering/querykit/dialect"
	"github.com/Konsultn-Engineering/querykit/query"
)

// Connection owns a PostgreSQL pool and lends transactional handles to
// statements through providers.
type Connection struct {
	config  Config
	pool    *pgxpool.Pool
	dialect dialect.Dialect
	logger  database.Logger

	mu    sync.Mutex
	db    *sql.DB
	stmts *cache.StatementCache
}

// Connect applies defaults to cfg, validates it and opens the pool.
func Connect(ctx context.Context, cfg Config) (*Connection, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newConnection(cfg, pool), nil
}

func newConnection(cfg Config, pool *pgxpool.Pool) *Connection {
	c := &Connection{
		config:  cfg,
		pool:    pool,
		dialect: dialect.NewPostgresDialect(),
		logger:  database.NopLogger{},
	}
	if cfg.Log.LogSQL || cfg.Log.SlowQuery > 0 {
		c.logger = database.StdLogger()
	}
	return c
}

func (c *Connection) Config() Config {
	return c.config
}

func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *Connection) Dialect() dialect.Dialect {
	return c.dialect
}

// Schema is the configured schema as a statement identifier.
func (c *Connection) Schema() query.Ident {
	return query.Ident(c.config.Schema)
}

// Statement starts a statement qualified with the configured schema and
// bounded by the configured query timeout.
func (c *Connection) Statement() *query.Statement {
	return query.New(c.Schema(), query.WithTimeout(c.config.QueryTimeout))
}

// DB returns a database/sql handle sharing the pool. It is opened once.
func (c *Connection) DB() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		c.db = stdlib.OpenDBFromPool(c.pool)
	}
	return c.db
}

// Provider returns a unit-of-work provider for the configured driver.
// Statements executed with it share one transaction until a statement is
// closed. Callers that run units of work concurrently need one provider
// each.
func (c *Connection) Provider(opts ...database.Option) (*database.UnitOfWork, error) {
	begin, err := c.begin()
	if err != nil {
		return nil, err
	}
	base := []database.Option{
		database.WithLogger(c.logger),
		database.WithLogConfig(c.config.Log),
	}
	return database.NewUnitOfWork(begin, append(base, opts...)...), nil
}

func (c *Connection) begin() (database.BeginFunc, error) {
	switch c.config.Driver {
	case DriverSQL:
		stmts, err := c.statementCache()
		if err != nil {
			return nil, err
		}
		return database.SqlBegin(c.DB(), stmts), nil
	default:
		return database.PgxBegin(c.pool), nil
	}
}

func (c *Connection) statementCache() (*cache.StatementCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stmts == nil {
		stmts, err := cache.NewStatementCache(c.config.StatementCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create statement cache: %w", err)
		}
		c.stmts = stmts
	}
	return c.stmts, nil
}

// Health pings the database.
func (c *Connection) Health(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("not connected")
	}
	return c.pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (c *Connection) Stats() ConnectionStats {
	if c.pool == nil {
		return ConnectionStats{}
	}
	s := c.pool.Stat()
	stats := ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
		MaxConnections:  int(s.MaxConns()),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration(),
	}
	c.mu.Lock()
	if c.stmts != nil {
		stats.CachedStatements = c.stmts.Len()
	}
	c.mu.Unlock()
	return stats
}

// Close releases cached statements, the database/sql handle and the pool.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.stmts != nil {
		if err := c.stmts.Close(); err != nil {
			errs = append(errs, err)
		}
		c.stmts = nil
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
		c.db = nil
	}
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return errors.Join(errs...)
}
