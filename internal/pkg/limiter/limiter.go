package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate limited")

// RateLimitError carries the time until the window frees a slot.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Redis is the redis_rate sliding-window limiter. State lives in redis, so
// counters survive process restarts.
type Redis struct {
	instance *redis_rate.Limiter
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{redis_rate.NewLimiter(client)}
}

func (l *Redis) Check(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.instance.AllowN(ctx, key, limit, 0)
	if err != nil {
		return err
	}
	if res.Remaining <= 0 {
		return &RateLimitError{RetryAfter: res.ResetAfter}
	}
	return nil
}

func (l *Redis) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.instance.Allow(ctx, key, limit)
	if err != nil {
		return err
	}
	if res.Allowed == 0 {
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}
