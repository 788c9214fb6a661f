package retry

import (
	"context"
	"time"
)

// Policy is a bounded exponential backoff applied uniformly around handler
// invocations. Reads are retried; writes fail closed at the call site.
type Policy struct {
	Attempts   int
	Delay      time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

var Default = Policy{
	Attempts:   3,
	Delay:      200 * time.Millisecond,
	MaxDelay:   5 * time.Second,
	Multiplier: 2,
}

func (p Policy) Do(ctx context.Context, fn func() error) error {
	delay := p.Delay
	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if attempt == p.Attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
