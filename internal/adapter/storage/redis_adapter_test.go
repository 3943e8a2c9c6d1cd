package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func seededRedis(t *testing.T, items ...domain.InventoryItem) (*RedisInventory, *redis.Client) {
	client := getRedisClient(t)
	inv := NewRedisInventory(client)
	if err := inv.Seed(context.Background(), items); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return inv, client
}

func TestRedisInventory_GetAndList(t *testing.T) {
	ctx := context.Background()
	inv, _ := seededRedis(t, testCatalog()...)

	item, err := inv.Get(ctx, "p2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != testCatalog()[1] {
		t.Errorf("unexpected item: %+v", item)
	}

	items, err := inv.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 || items[0].ID != "p1" || items[2].ID != "p3" {
		t.Errorf("unexpected catalog order: %+v", items)
	}
}

func TestRedisInventory_GetNotFound(t *testing.T) {
	inv, _ := seededRedis(t, testCatalog()...)

	_, err := inv.Get(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestRedisInventory_DecrementAll(t *testing.T) {
	ctx := context.Background()
	inv, client := seededRedis(t, testCatalog()...)

	updated, err := inv.DecrementAll(ctx, []domain.CartLine{
		{ItemID: "p1", Quantity: 45},
		{ItemID: "p3", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated) != 2 || updated[0].Stock != 5 || updated[1].Stock != 98 {
		t.Errorf("unexpected updated items: %+v", updated)
	}

	// Verify
	stock, _ := client.Get(ctx, "stock:p1").Int()
	if stock != 5 {
		t.Errorf("expected stock 5, got %d", stock)
	}
}

func TestRedisInventory_DecrementAll_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	inv, client := seededRedis(t, testCatalog()...)

	_, err := inv.DecrementAll(ctx, []domain.CartLine{
		{ItemID: "p1", Quantity: 1},
		{ItemID: "p2", Quantity: 13},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	// Verify nothing moved
	stock, _ := client.Get(ctx, "stock:p1").Int()
	if stock != 50 {
		t.Errorf("expected stock 50, got %d", stock)
	}

	_, err = inv.DecrementAll(ctx, []domain.CartLine{{ItemID: "p1", Quantity: 1}, {ItemID: "ghost", Quantity: 1}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestRedisInventory_Decrement_Concurrent(t *testing.T) {
	ctx := context.Background()
	inv, _ := seededRedis(t, testCatalog()...)
	if err := inv.SetStock(ctx, "p3", 20); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	totalRequests := 50
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inv.Decrement(ctx, "p3", 1)
			if err == nil {
				successCount.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 20 {
		t.Errorf("expected 20 successes, got %d", successCount.Load())
	}

	item, _ := inv.Get(ctx, "p3")
	if item.Stock != 0 {
		t.Errorf("expected stock 0, got %d", item.Stock)
	}
}

func TestRedisTranscript(t *testing.T) {
	ctx := context.Background()
	client := getRedisClient(t)
	store := NewRedisTranscript(client)

	err := store.Append(ctx, "s1",
		domain.Turn{Role: domain.RoleUser, Text: "hola"},
		domain.Turn{Role: domain.RoleNotice, Text: "Added 1 x X to the cart."},
	)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.Append(ctx, "s1", domain.Turn{
		Role:        domain.RoleAgent,
		Text:        "listo",
		Invocations: []domain.ToolInvocation{{Name: domain.ToolAddToCart, ItemID: "p1", Quantity: 1}},
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	turns, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[2].Invocations[0].ItemID != "p1" {
		t.Errorf("invocations not preserved: %+v", turns[2])
	}

	empty, err := store.Load(ctx, "other")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty transcript, got %v, %v", empty, err)
	}
}
