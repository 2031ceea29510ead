package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestCart_AddItemAccumulates(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	client.Del(ctx, cartKey("cart-user"))

	if _, err := adapter.AddItem(ctx, "cart-user", "ladoo", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qty, err := adapter.AddItem(ctx, "cart-user", "ladoo", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 5 {
		t.Errorf("expected quantity 5, got %d", qty)
	}

	ttl := client.TTL(ctx, cartKey("cart-user")).Val()
	if ttl <= 0 {
		t.Errorf("expected cart expiry to be set, got %v", ttl)
	}
}

func TestCart_SetRemoveClear(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	client.Del(ctx, cartKey("cart-user-2"))

	adapter.AddItem(ctx, "cart-user-2", "jalebi", 1)
	adapter.AddItem(ctx, "cart-user-2", "barfi", 1)
	if err := adapter.SetItem(ctx, "cart-user-2", "jalebi", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := adapter.GetCart(ctx, "cart-user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ProductID != "barfi" || items[1].Quantity != 7 {
		t.Fatalf("unexpected cart: %+v", items)
	}

	removed, err := adapter.RemoveItem(ctx, "cart-user-2", "barfi")
	if err != nil || !removed {
		t.Errorf("expected barfi to be removed, removed=%v err=%v", removed, err)
	}
	removed, _ = adapter.RemoveItem(ctx, "cart-user-2", "barfi")
	if removed {
		t.Error("expected second remove to report absent")
	}

	if err := adapter.ClearCart(ctx, "cart-user-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ = adapter.GetCart(ctx, "cart-user-2")
	if len(items) != 0 {
		t.Errorf("expected empty cart, got %+v", items)
	}
}

func TestCart_ConcurrentAdds(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	client.Del(ctx, cartKey("concurrent-cart"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := adapter.AddItem(ctx, "concurrent-cart", "peda", 1); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	items, _ := adapter.GetCart(ctx, "concurrent-cart")
	if len(items) != 1 || items[0].Quantity != 50 {
		t.Errorf("expected quantity 50, got %+v", items)
	}
}

func TestSetIdempotency_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, idempotencyKeyPrefix+"test-idem-key")

	// First call should succeed
	ok, err := adapter.SetIdempotency(ctx, "test-idem-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first call to succeed")
	}

	// Second call should fail (key exists)
	ok, err = adapter.SetIdempotency(ctx, "test-idem-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second call to fail")
	}

	// Released keys can be claimed again
	if err := adapter.ReleaseIdempotency(ctx, "test-idem-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _ = adapter.SetIdempotency(ctx, "test-idem-key")
	if !ok {
		t.Error("expected claim after release to succeed")
	}
}

func TestSetIdempotency_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	client.Del(ctx, idempotencyKeyPrefix+"concurrent-idem-key")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	concurrency := 100

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.SetIdempotency(ctx, "concurrent-idem-key")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	// Only one should succeed
	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
}
