//go:build unit

package cache

import (
	"context"
	"go-cms-app/internal/config"
	"testing"
	"time"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	c, err := New(config.CacheConfig{Driver: "sqlite", FilePath: "file::memory:"})
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "page:home", []byte("hello"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "page:home")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("expected 'hello', got '%s'", got)
	}
}

func TestSQLiteCache_Miss(t *testing.T) {
	c := newTestCache(t)

	got, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got '%s'", got)
	}
}

func TestSQLiteCache_Expired(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "stale", []byte("old"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired entry to be a miss, got '%s'", got)
	}
}

func TestSQLiteCache_DeleteAndPurge(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)
	_ = c.Set(ctx, "c", []byte("3"), -time.Minute)

	if err := c.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := c.Get(ctx, "a"); got != nil {
		t.Errorf("expected 'a' to be deleted")
	}

	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged entry, got %d", n)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	if _, err := New(config.CacheConfig{Driver: "memcached"}); err == nil {
		t.Error("expected error for unknown cache driver")
	}
}
