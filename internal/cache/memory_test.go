package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewMemoryProvider()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected cached value, got %q (%v)", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss after expiry, got %v", err)
	}
}

func TestMemoryProviderSetNX(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", []byte("a"), 0)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to succeed, got %v (%v)", ok, err)
	}
	ok, err = c.SetNX(ctx, "lock", []byte("b"), 0)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to fail, got %v (%v)", ok, err)
	}

	if err := c.Del(ctx, "lock"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := c.Get(ctx, "lock"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestMemoryProviderCopiesValues(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()
	value := []byte("abc")
	_ = c.Set(ctx, "k", value, 0)
	value[0] = 'x'

	got, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value was aliased: %q", got)
	}
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	if _, err := p.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop provider should always miss, got %v", err)
	}
}

func TestNewRedisProviderRequiresAddr(t *testing.T) {
	if _, err := NewRedisProvider(RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
