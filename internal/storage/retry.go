package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// retryBaseInterval, retryMaxInterval, and retryMaxAttempts implement
// spec.md §4.2's failure policy: "transient remote errors are retried
// with exponential backoff (base 100ms, cap 32s, max retries 3 by
// default)".
const (
	retryBaseInterval = 100 * time.Millisecond
	retryMaxInterval  = 32 * time.Second
	retryMaxAttempts  = 3
)

// Retrying wraps a Backend, retrying any operation that fails with an
// error wrapping ErrTransient using exponential backoff, and surfacing
// persistent failures immediately (spec.md §4.2, §7 "I/O" taxonomy
// entry). Grounded on the retry/backoff usage shape pulled in by the
// pack's dependency graph (github.com/cenkalti/backoff), generalized
// here into a Backend decorator since no example repo wires it directly
// against a storage interface.
type Retrying struct {
	inner  Backend
	logger zerolog.Logger
}

// WithRetry returns a Backend that retries inner's transient failures.
// Wrap only backends whose errors can actually be transient (remote
// object stores); wrapping Local is harmless but pointless, since Local
// never returns ErrTransient.
func WithRetry(inner Backend, logger zerolog.Logger) *Retrying {
	return &Retrying{inner: inner, logger: logger.With().Str("component", "storage.retry").Logger()}
}

func (r *Retrying) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseInterval
	b.MaxInterval = retryMaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	return backoff.WithMaxRetries(b, retryMaxAttempts)
}

func (r *Retrying) run(ctx context.Context, key string, op func() error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		opErr := op()
		if opErr == nil {
			return nil
		}
		if !errors.Is(opErr, ErrTransient) {
			return backoff.Permanent(opErr)
		}
		r.logger.Debug().Str("key", key).Int("attempt", attempt).Err(opErr).Msg("retrying transient storage error")
		return opErr
	}, backoff.WithContext(r.policy(), ctx))
	return err
}

func (r *Retrying) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.run(ctx, key, func() error {
		var opErr error
		data, opErr = r.inner.Get(ctx, key)
		return opErr
	})
	return data, err
}

func (r *Retrying) Put(ctx context.Context, key string, data []byte) error {
	return r.run(ctx, key, func() error { return r.inner.Put(ctx, key, data) })
}

func (r *Retrying) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.run(ctx, key, func() error {
		var opErr error
		exists, opErr = r.inner.Exists(ctx, key)
		return opErr
	})
	return exists, err
}

func (r *Retrying) Delete(ctx context.Context, key string) error {
	return r.run(ctx, key, func() error { return r.inner.Delete(ctx, key) })
}

func (r *Retrying) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.run(ctx, prefix, func() error {
		var opErr error
		keys, opErr = r.inner.ListObjects(ctx, prefix)
		return opErr
	})
	return keys, err
}

var _ Backend = (*Retrying)(nil)
