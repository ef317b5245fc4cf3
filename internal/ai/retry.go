package ai

import (
	"context"
	"github.com/myrjola/twentyq/internal/errors"
	"log/slog"
	"time"
)

// RateLimitBackoff is the fixed wait between attempts after a rate limit.
const RateLimitBackoff = 10 * time.Second

// RateLimitRetrier wraps a Model and retries every request that failed with ErrRateLimited, without bound.
// Any other error is returned as is.
type RateLimitRetrier struct {
	model  Model
	delay  time.Duration
	logger *slog.Logger
}

var _ Model = (*RateLimitRetrier)(nil)

func RetryOnRateLimit(model Model, delay time.Duration, logger *slog.Logger) *RateLimitRetrier {
	return &RateLimitRetrier{
		model:  model,
		delay:  delay,
		logger: logger.With("source", "RateLimitRetrier"),
	}
}

func (r *RateLimitRetrier) Ask(ctx context.Context, req Request) (Answer, error) {
	for attempt := 1; ; attempt++ {
		answer, err := r.model.Ask(ctx, req)
		if !errors.Is(err, ErrRateLimited) {
			return answer, err
		}

		r.logger.LogAttrs(ctx, slog.LevelWarn, "rate limit reached, waiting",
			slog.Duration("delay", r.delay), slog.Int("attempt", attempt))

		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Answer{}, errors.Wrap(ctx.Err(), "wait for rate limit")
		case <-timer.C:
		}
	}
}
