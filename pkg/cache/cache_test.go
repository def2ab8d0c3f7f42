package cache

import (
	"context"
	"testing"
	"time"
)

func TestGoCache(t *testing.T) {
	config := LocalConfig{
		MaxSize:           100,
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}

	c := NewGoCache(config)
	defer c.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		key := "test_key"
		value := "test_value"

		if err := c.Set(ctx, key, value, time.Minute); err != nil {
			t.Errorf("Failed to set cache: %v", err)
		}

		if retrieved, exists := c.Get(ctx, key); !exists {
			t.Error("Cache value not found")
		} else if retrieved != value {
			t.Errorf("Expected %v, got %v", value, retrieved)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := c.Set(ctx, "gone", 1, time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if c.Exists(ctx, "gone") {
			t.Error("deleted key still exists")
		}
	})
}

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(LocalConfig{MaxSize: 2, DefaultExpiration: time.Minute})
	defer c.Close()

	ctx := context.Background()

	if err := c.Set(ctx, "a", 1, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, "b", 2, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	// 超出容量，最久未用的被淘汰
	if err := c.Set(ctx, "c", 3, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if c.Exists(ctx, "a") {
		t.Error("expected oldest key to be evicted")
	}
	if !c.Exists(ctx, "c") {
		t.Error("expected newest key to be present")
	}
}
