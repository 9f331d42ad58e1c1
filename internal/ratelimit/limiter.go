package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"givora.org/internal/audit"
	"givora.org/internal/cache"
	"givora.org/internal/obs"
)

const stripes = 64

// Record is the counter stored in the cache for one key. The window boundary
// is a hard cliff: a burst straddling two windows can briefly see twice the
// configured rate, which is accepted for this limiter.
type Record struct {
	Count           int       `json:"count"`
	WindowExpiresAt time.Time `json:"window_expires_at"`
}

// Limiter is a fixed-window request counter backed by the TTL cache. The
// read-increment-write on a record is guarded by a striped per-key mutex so
// concurrent calls for the same key cannot under-count.
type Limiter struct {
	cache cache.Cache
	locks [stripes]sync.Mutex
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, useful for window tests.
func WithClock(fn func() time.Time) Option {
	return func(l *Limiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New creates a limiter on top of the given cache.
func New(c cache.Cache, opts ...Option) *Limiter {
	l := &Limiter{cache: c, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether key is still under max requests in the current
// window. The first call of a fresh window always passes and resets the
// counter to 1. A denial emits a rate_limit_exceeded security audit event.
func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	if max <= 0 || window <= 0 {
		return false, fmt.Errorf("ratelimit: max and window must be positive")
	}

	lock := &l.locks[stripe(key)]
	lock.Lock()
	defer lock.Unlock()

	now := l.now()
	record, err := l.load(ctx, key)
	if err != nil {
		return false, err
	}

	if record == nil || !now.Before(record.WindowExpiresAt) {
		fresh := Record{Count: 1, WindowExpiresAt: now.Add(window)}
		if err := l.store(ctx, key, fresh, window); err != nil {
			return false, err
		}
		return true, nil
	}

	record.Count++
	if err := l.store(ctx, key, *record, record.WindowExpiresAt.Sub(now)); err != nil {
		return false, err
	}
	if record.Count > max {
		obs.IncRateLimitDenied()
		_ = audit.LogEvent(ctx, "rate_limit_exceeded", map[string]any{
			"key":   key,
			"count": record.Count,
			"max":   max,
		})
		return false, nil
	}
	return true, nil
}

func (l *Limiter) load(ctx context.Context, key string) (*Record, error) {
	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: read counter: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		// A corrupt counter must not lock a key out forever.
		return nil, nil
	}
	return &record, nil
}

func (l *Limiter) store(ctx context.Context, key string, record Record, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := l.cache.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("ratelimit: write counter: %w", err)
	}
	return nil
}

func stripe(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % stripes)
}
