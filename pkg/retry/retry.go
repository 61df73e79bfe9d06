// Package retry runs an operation with capped exponential backoff. It is used
// for startup connections to Postgres and Redis and for session event delivery.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1]; 0.1 means +/-10%
	JitterFactor float64
}

// DefaultConfig backs off 100ms, 200ms, 400ms
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError stops retrying immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Notify is called before each wait with the 1-based retry number
type Notify func(attempt int, err error, wait time.Duration)

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	config *Config
	notify Notify
}

// New creates a Retrier; zero fields fall back to DefaultConfig values
func New(config *Config) *Retrier {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	cfg := *config
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	cfg.JitterFactor = math.Min(math.Max(cfg.JitterFactor, 0), 1)
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Retrier{config: &cfg}
}

// OnRetry registers a callback invoked before each backoff wait
func (r *Retrier) OnRetry(fn Notify) *Retrier {
	r.notify = fn
	return r
}

// Do runs op until it succeeds, returns a permanent error, runs out of
// retries or ctx is done. The returned error wraps the last operation error.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return errors.Join(ErrContextCanceled, lastErr)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt == r.config.MaxRetries {
			break
		}

		wait := r.backoff(attempt)
		if r.notify != nil {
			r.notify(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ErrContextCanceled, lastErr)
		case <-timer.C:
		}
	}

	return errors.Join(ErrMaxRetriesExceeded, lastErr)
}

func (r *Retrier) backoff(attempt int) time.Duration {
	interval := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))

	if r.config.JitterFactor > 0 {
		jitter := interval * r.config.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}

	if interval > float64(r.config.MaxInterval) {
		interval = float64(r.config.MaxInterval)
	}
	if interval <= 0 {
		interval = float64(r.config.InitialInterval)
	}

	return time.Duration(interval)
}

// Do is shorthand for New(config).Do(ctx, op)
func Do(ctx context.Context, config *Config, op Operation) error {
	return New(config).Do(ctx, op)
}
