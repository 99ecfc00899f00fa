// Package lock serializes work per key, such as transitions on one document.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the lock could not be acquired within the
// configured wait timeout.
var ErrTimeout = errors.New("lock wait timed out")

// Unlock releases a held lock. Calling it more than once is safe.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// waitError distinguishes our own wait timeout from the caller giving up.
func waitError(parent context.Context, key string) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	return fmt.Errorf("lock %s: %w", key, ErrTimeout)
}
