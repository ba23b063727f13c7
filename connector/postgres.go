package connector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// poolConfig translates cfg, with defaults applied, into a pgxpool
// configuration. It does not connect.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.Pool.MaxOpen)
	poolCfg.MinConns = int32(cfg.Pool.MaxIdle)
	poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Pool.MaxIdleTime
	poolCfg.HealthCheckPeriod = cfg.Pool.HealthCheckFreq
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return poolCfg, nil
}

// openPool creates the pool and pings it, retrying per cfg.Retry.
func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	connect := func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		// NewWithConfig connects lazily
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	if cfg.Retry == nil {
		if err := connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RedactedDSN(), err)
		}
		return pool, nil
	}
	if err := retry(ctx, *cfg.Retry, connect); err != nil {
		return nil, fmt.Errorf("failed to connect to %s after %d retries: %w", cfg.RedactedDSN(), cfg.Retry.MaxRetries, err)
	}
	return pool, nil
}
