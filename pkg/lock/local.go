package lock

import (
	"context"
	"sync"
	"time"
)

// Local is an in-process keyed mutex. Entries are reference counted and
// removed once no goroutine holds or waits for the key.
type Local struct {
	wait time.Duration

	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

func NewLocal(wait time.Duration) *Local {
	return &Local{
		wait:    wait,
		entries: make(map[string]*localEntry),
	}
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.sem
				l.release(key, entry)
			})
		}, nil
	case <-waitCtx.Done():
		l.release(key, entry)
		return nil, waitError(ctx, key)
	}
}

func (l *Local) release(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
