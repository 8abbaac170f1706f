package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLocalCache(t *testing.T) {
	c := NewLocalCache(time.Hour, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	t.Run("SetGet", func(t *testing.T) {
		if err := c.Set(ctx, "call:active:CA1", map[string]string{"phase": "negotiating"}, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := c.Get(ctx, "call:active:CA1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != `{"phase":"negotiating"}` {
			t.Errorf("expected JSON value, got %q", got)
		}
	})

	t.Run("Expiration", func(t *testing.T) {
		c.Set(ctx, "short", "v", 20*time.Millisecond)
		time.Sleep(40 * time.Millisecond)
		if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after expiry, got %v", err)
		}
		c.cleanup()
		c.mu.RLock()
		_, still := c.data["short"]
		c.mu.RUnlock()
		if still {
			t.Error("expected cleanup to drop expired entry")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set(ctx, "gone", []byte("x"), 0)
		c.Delete(ctx, "gone")
		if _, err := c.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	if err := c.Close(); err != nil {
		t.Errorf("second Close should be safe: %v", err)
	}
}

func TestNewFallsBackToLocal(t *testing.T) {
	got := New(configWithURL("redis://127.0.0.1:1/0"), zap.NewNop())
	defer got.Close()
	if _, ok := got.(*LocalCache); !ok {
		t.Errorf("expected local cache fallback, got %T", got)
	}
}
