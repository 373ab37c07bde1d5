// Package retry bounds waiting on external services that complete asynchronously.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned when the policy bound elapses before the condition holds.
var ErrTimeout = errors.New("poll timed out")

var errPending = errors.New("poll condition not met")

// Policy shapes the wait between attempts and bounds the whole poll.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// DefaultPolicy waits 500ms, doubling up to 5s, for at most one minute.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Timeout:         time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// ConditionFunc reports whether the awaited state has been reached. A non-nil error
// stops polling immediately.
type ConditionFunc func(ctx context.Context) (done bool, err error)

// Poll calls fn with exponential backoff until it reports done, fails, or the policy
// timeout elapses. It returns nil, fn's error, ErrTimeout, or ctx.Err().
func Poll(ctx context.Context, policy Policy, fn ConditionFunc) error {
	policy = policy.withDefaults()

	pollCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = policy.Timeout
	b.Reset()

	err := backoff.Retry(func() error {
		done, err := fn(pollCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errPending
		}
		return nil
	}, backoff.WithContext(b, pollCtx))

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errPending), pollCtx.Err() != nil:
		return ErrTimeout
	default:
		return err
	}
}
