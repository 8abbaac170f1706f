package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

const pingTimeout = 2 * time.Second

// RedisCache stores values under cfg.KeyPrefix. Callers always pass
// unprefixed keys.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisCache(cfg config.RedisConfig, log *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}

	c := &RedisCache{
		client: redis.NewClient(opts),
		prefix: cfg.KeyPrefix,
		log:    log,
	}
	if err := c.Ping(); err != nil {
		c.client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	log.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.String("prefix", cfg.KeyPrefix))
	return c, nil
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("cache: get %s: %w", key, err)
	}
	return val, nil
}

// Set stores strings and byte slices as-is and everything else as JSON. A
// zero expiration keeps the key until it is deleted.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	str, err := encode(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(key), str, expiration).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *RedisCache) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
