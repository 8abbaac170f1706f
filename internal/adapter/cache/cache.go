// Package cache mirrors short-lived call state in Redis, with an in-memory
// fallback for single-instance deployments.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

var ErrNotFound = errors.New("cache: key not found")

// New connects to Redis and falls back to the local cache when Redis is not
// configured or unreachable.
func New(cfg config.RedisConfig, log *zap.Logger) ports.Cache {
	if cfg.URL != "" {
		c, err := NewRedisCache(cfg, log)
		if err == nil {
			return c
		}
		log.Warn("Redis unavailable, using local cache", zap.Error(err))
	}
	return NewLocalCache(time.Minute, log)
}

func encode(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value: %w", err)
		}
		return string(data), nil
	}
}
