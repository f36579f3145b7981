package rate

import (
	"context"
	"sync"
	"time"
)

type EventStore interface {
	IncrementRateEvent(ctx context.Context, key, route string, windowStart time.Time) (int, error)
	DeleteRateEvents(ctx context.Context, key, route string) error
	CleanupRateEventsBefore(ctx context.Context, before time.Time) error
}

// StoreCounter keeps windows in the database so every instance sees the
// same counts. Windows are aligned to multiples of the window length.
type StoreCounter struct {
	st EventStore

	mu     sync.Mutex
	lastGC time.Time
	now    func() time.Time
}

func NewStoreCounter(st EventStore) *StoreCounter {
	return &StoreCounter{st: st, now: func() time.Time { return time.Now().UTC() }}
}

func (c *StoreCounter) Allow(ctx context.Context, route, key string, limit int, window time.Duration) (bool, error) {
	now := c.now()
	c.gc(ctx, now, window)
	n, err := c.st.IncrementRateEvent(ctx, key, route, now.Truncate(window))
	if err != nil {
		return false, err
	}
	return n <= limit, nil
}

func (c *StoreCounter) Reset(ctx context.Context, route, key string) error {
	return c.st.DeleteRateEvents(ctx, key, route)
}

func (c *StoreCounter) gc(ctx context.Context, now time.Time, window time.Duration) {
	c.mu.Lock()
	due := now.Sub(c.lastGC) > time.Minute
	if due {
		c.lastGC = now
	}
	c.mu.Unlock()
	if due {
		_ = c.st.CleanupRateEventsBefore(ctx, now.Add(-3*window))
	}
}
