package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type localEntry struct {
	value    string
	deadline time.Time // zero means no expiry
}

func (e localEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !e.deadline.After(now)
}

// LocalCache is the single-instance ports.Cache used when Redis is not
// configured. Expired keys are invisible to Get at once and are swept by a
// janitor goroutine until Close.
type LocalCache struct {
	mu   sync.RWMutex
	data map[string]localEntry

	stop context.CancelFunc
	log  *zap.Logger
}

func NewLocalCache(sweepEvery time.Duration, log *zap.Logger) *LocalCache {
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &LocalCache{
		data: make(map[string]localEntry),
		stop: stop,
		log:  log,
	}
	go c.janitor(ctx, sweepEvery)

	log.Info("Using in-memory cache, active calls are not shared between instances")
	return c
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || e.expired(time.Now()) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (c *LocalCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	str, err := encode(value)
	if err != nil {
		return err
	}
	e := localEntry{value: str}
	if expiration > 0 {
		e.deadline = time.Now().Add(expiration)
	}

	c.mu.Lock()
	c.data[key] = e
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Ping() error { return nil }

// Close stops the janitor. It is safe to call more than once.
func (c *LocalCache) Close() error {
	c.stop()
	return nil
}

func (c *LocalCache) janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.cleanup(); n > 0 {
				c.log.Debug("Swept expired cache keys", zap.Int("count", n))
			}
		}
	}
}

// cleanup drops expired keys and reports how many went.
func (c *LocalCache) cleanup() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			n++
		}
	}
	return n
}
