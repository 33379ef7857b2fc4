package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// RetryOptions bounds the retry loop around a Gateway.
type RetryOptions struct {
	Retries     int           // extra attempts after the first
	BaseDelay   time.Duration // first backoff interval
	Timeout     time.Duration // per-attempt deadline
	MaxInterval time.Duration
}

// DefaultRetryOptions: two retries, 400ms base, 12s per attempt.
var DefaultRetryOptions = RetryOptions{
	Retries:     2,
	BaseDelay:   400 * time.Millisecond,
	Timeout:     12 * time.Second,
	MaxInterval: 5 * time.Second,
}

// Retrying wraps a Gateway so every call is retried with bounded exponential
// backoff. ErrNotFound is never retried.
type Retrying struct {
	next   Gateway
	opts   RetryOptions
	logger logrus.FieldLogger
}

// Budget is the longest one retried call can take: every attempt timing out
// plus the largest randomized backoff between attempts.
func (o RetryOptions) Budget() time.Duration {
	base, maxInterval := o.BaseDelay, o.MaxInterval
	if base <= 0 {
		base = DefaultRetryOptions.BaseDelay
	}
	if maxInterval <= 0 {
		maxInterval = DefaultRetryOptions.MaxInterval
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultRetryOptions.Timeout
	}
	retries := max(o.Retries, 0)

	total := time.Duration(retries+1) * timeout
	interval := base
	for i := 0; i < retries; i++ {
		total += time.Duration(float64(interval) * (1 + backoff.DefaultRandomizationFactor))
		interval = min(time.Duration(float64(interval)*backoff.DefaultMultiplier), maxInterval)
	}
	return total
}

func NewRetrying(next Gateway, opts RetryOptions, logger logrus.FieldLogger) *Retrying {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultRetryOptions.BaseDelay
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultRetryOptions.MaxInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Retrying{next: next, opts: opts, logger: logger}
}

func (r *Retrying) Load(ctx context.Context, key string) ([]byte, error) {
	return retry(ctx, r, "load", key, func(ctx context.Context) ([]byte, error) {
		return r.next.Load(ctx, key)
	})
}

func (r *Retrying) Save(ctx context.Context, key string, value []byte) error {
	_, err := retry(ctx, r, "save", key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.Save(ctx, key, value)
	})
	return err
}

func retry[T any](ctx context.Context, r *Retrying, op, key string, fn func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.BaseDelay
	b.MaxInterval = r.opts.MaxInterval

	attempt := 0
	operation := func() (T, error) {
		attempt++
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		}
		defer cancel()

		v, err := fn(attemptCtx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
			return v, backoff.Permanent(err)
		}
		r.logger.WithFields(logrus.Fields{
			"op":      op,
			"key":     key,
			"attempt": attempt,
		}).WithError(err).Warn("storage call failed")
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.opts.Retries+1)),
	)
}
