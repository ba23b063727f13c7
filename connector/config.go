package connector

import (
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/querykit/database"
)

// Driver selects the handle implementation a Connection lends to
// statements.
type Driver string

const (
	// DriverPgx runs statements on native pgx transactions.
	DriverPgx Driver = "pgx"
	// DriverSQL runs statements through database/sql with a prepared
	// statement cache.
	DriverSQL Driver = "sql"
)

// Config represents database connection configuration.
type Config struct {
	Host     string            `json:"host" yaml:"host" mapstructure:"host"`
	Port     int               `json:"port" yaml:"port" mapstructure:"port"`
	Database string            `json:"database" yaml:"database" mapstructure:"database"`
	Username string            `json:"username" yaml:"username" mapstructure:"username"`
	Password string            `json:"password" yaml:"password" mapstructure:"password"`
	SSLMode  string            `json:"ssl_mode" yaml:"ssl_mode" mapstructure:"ssl_mode"`
	Params   map[string]string `json:"params" yaml:"params" mapstructure:"params"`

	// Schema qualifies every table identifier of statements built with
	// Connection.Statement.
	Schema string `json:"schema" yaml:"schema" mapstructure:"schema"`
	Driver Driver `json:"driver" yaml:"driver" mapstructure:"driver"`
	// StatementCacheSize bounds the prepared statement cache of DriverSQL.
	StatementCacheSize int `json:"statement_cache_size" yaml:"statement_cache_size" mapstructure:"statement_cache_size"`

	Pool           PoolConfig         `json:"pool" yaml:"pool" mapstructure:"pool"`
	ConnectTimeout time.Duration      `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration      `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
	Retry          *RetryConfig       `json:"retry,omitempty" yaml:"retry,omitempty" mapstructure:"retry"`
	Log            database.LogConfig `json:"log" yaml:"log" mapstructure:"log"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen         int           `json:"max_open" yaml:"max_open" mapstructure:"max_open"`
	MaxIdle         int           `json:"max_idle" yaml:"max_idle" mapstructure:"max_idle"`
	MaxLifetime     time.Duration `json:"max_lifetime" yaml:"max_lifetime" mapstructure:"max_lifetime"`
	MaxIdleTime     time.Duration `json:"max_idle_time" yaml:"max_idle_time" mapstructure:"max_idle_time"`
	HealthCheckFreq time.Duration `json:"health_check_freq" yaml:"health_check_freq" mapstructure:"health_check_freq"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
}

// DefaultConfig returns the configuration used for unset fields.
func DefaultConfig() Config {
	return Config{
		Host:               "localhost",
		Port:               5432,
		SSLMode:            "prefer",
		Schema:             "public",
		Driver:             DriverPgx,
		StatementCacheSize: 256,
		Pool: PoolConfig{
			MaxOpen:         10,
			MaxIdle:         0,
			MaxLifetime:     time.Hour,
			MaxIdleTime:     30 * time.Minute,
			HealthCheckFreq: time.Minute,
		},
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
	}
}

// WithDefaults returns a copy of c with every unset field taken from
// DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.SSLMode == "" {
		c.SSLMode = d.SSLMode
	}
	if c.Schema == "" {
		c.Schema = d.Schema
	}
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.StatementCacheSize <= 0 {
		c.StatementCacheSize = d.StatementCacheSize
	}
	if c.Pool.MaxOpen <= 0 {
		c.Pool.MaxOpen = d.Pool.MaxOpen
	}
	if c.Pool.MaxIdle < 0 {
		c.Pool.MaxIdle = d.Pool.MaxIdle
	}
	if c.Pool.MaxLifetime == 0 {
		c.Pool.MaxLifetime = d.Pool.MaxLifetime
	}
	if c.Pool.MaxIdleTime == 0 {
		c.Pool.MaxIdleTime = d.Pool.MaxIdleTime
	}
	if c.Pool.HealthCheckFreq == 0 {
		c.Pool.HealthCheckFreq = d.Pool.HealthCheckFreq
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	if c.Retry != nil {
		r := *c.Retry
		if r.BaseDelay <= 0 {
			r.BaseDelay = time.Second
		}
		if r.Backoff < 1 {
			r.Backoff = 2
		}
		c.Retry = &r
	}
	return c
}

// Validate checks a configuration after defaults have been applied.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	switch c.Driver {
	case DriverPgx, DriverSQL:
	default:
		return fmt.Errorf("invalid driver: %s", c.Driver)
	}
	if c.Pool.MaxIdle > c.Pool.MaxOpen {
		return fmt.Errorf("pool max_idle %d exceeds max_open %d", c.Pool.MaxIdle, c.Pool.MaxOpen)
	}
	if c.Retry != nil {
		if c.Retry.MaxRetries < 0 {
			return fmt.Errorf("invalid max_retries: %d", c.Retry.MaxRetries)
		}
		if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
			return fmt.Errorf("retry max_delay %s is shorter than base_delay %s", c.Retry.MaxDelay, c.Retry.BaseDelay)
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection URL for c.
func (c Config) DSN() string {
	return NewDSNBuilder("postgres").
		Auth(c.Username, c.Password).
		Host(c.Host, c.Port).
		Database(c.Database).
		Param("sslmode", c.SSLMode).
		Params(c.Params).
		Build()
}

// RedactedDSN is DSN with the password masked.
func (c Config) RedactedDSN() string {
	return NewDSNBuilder("postgres").
		Auth(c.Username, c.Password).
		Host(c.Host, c.Port).
		Database(c.Database).
		Param("sslmode", c.SSLMode).
		Params(c.Params).
		Redacted()
}
