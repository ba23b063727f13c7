package connector

import (
	"context"
	"time"
)

// retry calls fn until it succeeds, cfg.MaxRetries retries are spent or ctx
// ends. The delay starts at cfg.BaseDelay and grows by cfg.Backoff, capped
// at cfg.MaxDelay when set. The last error of fn is returned.
func retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	backoff := cfg.Backoff
	if backoff < 1 {
		backoff = 2
	}

	err := fn(ctx)
	for i := 0; err != nil && i < cfg.MaxRetries; i++ {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * backoff)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		err = fn(ctx)
	}
	return err
}
