package rate

import (
	"context"
	"sync"
	"time"
)

// Counter is a fixed-window counter keyed by (route, key).
type Counter interface {
	Allow(ctx context.Context, route, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, route, key string) error
}

type bucket struct {
	count int
	start time.Time
}

// Limiter keeps its windows in process memory. It is only correct for a
// single instance; use StoreCounter when several instances share a database.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]bucket
	lastGC  time.Time
	now     func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{buckets: map[string]bucket{}, lastGC: time.Now().UTC(), now: func() time.Time { return time.Now().UTC() }}
}

func (l *Limiter) Allow(_ context.Context, route, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastGC) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.start) > 3*window {
				delete(l.buckets, k)
			}
		}
		l.lastGC = now
	}
	k := route + "|" + key
	b, ok := l.buckets[k]
	if !ok || now.Sub(b.start) >= window {
		l.buckets[k] = bucket{count: 1, start: now}
		return true, nil
	}
	if b.count >= limit {
		return false, nil
	}
	b.count++
	l.buckets[k] = b
	return true, nil
}

func (l *Limiter) Reset(_ context.Context, route, key string) error {
	l.mu.Lock()
	delete(l.buckets, route+"|"+key)
	l.mu.Unlock()
	return nil
}
