// Package wait holds the one timeout+interval polling loop shared by health
// checks, startup gating and the recovery backoff.
package wait

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Poll when its own deadline passes.
var ErrTimeout = errors.New("timed out")

// ConditionFunc reports done=true to stop polling. A non-nil error aborts the loop.
type ConditionFunc func(ctx context.Context) (done bool, err error)

// Poll runs fn immediately and then every interval until fn is done, fn fails,
// timeout elapses or ctx is cancelled. A non-positive timeout means a single try.
// Cancellation of ctx is reported as ctx.Err(), timeout as ErrTimeout.
func Poll(ctx context.Context, timeout, interval time.Duration, fn ConditionFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	pctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(pctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if timeout <= 0 {
			return ErrTimeout
		}
		select {
		case <-pctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrTimeout
		case <-ticker.C:
			// Both may be ready at once; never run fn on an expired context.
			if pctx.Err() != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrTimeout
			}
		}
	}
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
