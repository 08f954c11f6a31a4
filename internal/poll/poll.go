// Package poll provides a generic bounded sleep-and-recheck loop.
// Call sites that wait on an external system (an upload batch finishing
// processing) parameterise this once instead of re-implementing ad hoc
// polling per call site.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout indicates the condition did not hold within the deadline.
var ErrTimeout = errors.New("poll: timed out")

// CheckFunc inspects the awaited condition. Return done=true to stop
// polling successfully; a non-nil error stops polling and is returned
// to the caller as-is.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Until calls fn every interval until it reports done, fails, the
// timeout elapses, or the context is cancelled. fn is called once
// immediately before the first sleep.
func Until(ctx context.Context, interval, timeout time.Duration, fn CheckFunc) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			// The deadline can fire mid-check and abort fn itself (an
			// HTTP call cut off by the derived context). That is still
			// a timeout, not a check failure.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
