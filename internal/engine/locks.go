// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// convLocks serializes turns per conversation id. Duplicate webhook
// delivery for one call is expected; the second delivery waits briefly
// and gives up instead of racing the state machine.
type convLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newConvLocks() *convLocks {
	return &convLocks{entries: make(map[string]*lockEntry)}
}

// acquire takes the per-conversation lock, waiting at most maxWait. The
// returned release must be called exactly once when ok is true.
func (l *convLocks) acquire(ctx context.Context, id string, maxWait time.Duration) (release func(), ok bool) {
	l.mu.Lock()
	e := l.entries[id]
	if e == nil {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		l.put(id, e)
		return nil, false
	}
	return func() {
		e.sem.Release(1)
		l.put(id, e)
	}, true
}

func (l *convLocks) put(id string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
	l.mu.Unlock()
}
