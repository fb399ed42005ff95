package chain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	maxRetries := c.retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := c.retry.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		c.logger.Debug("rpc call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
