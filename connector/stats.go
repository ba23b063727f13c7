package connector

import (
	"time"
)

// ConnectionStats represents database connection pool statistics.
type ConnectionStats struct {
	OpenConnections int           `json:"open_connections" yaml:"open_connections"`
	InUse           int           `json:"in_use" yaml:"in_use"`
	Idle            int           `json:"idle" yaml:"idle"`
	MaxConnections  int           `json:"max_connections" yaml:"max_connections"`
	AcquireCount    int64         `json:"acquire_count" yaml:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration" yaml:"acquire_duration"`
	// CachedStatements counts prepared statements held for DriverSQL.
	CachedStatements int `json:"cached_statements" yaml:"cached_statements"`
}
