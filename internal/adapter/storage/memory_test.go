package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

func testCatalog() []domain.InventoryItem {
	return []domain.InventoryItem{
		{ID: "p1", Name: "Cloro Gel Industrial 5L", Category: "Desinfectantes", Price: 4500, Stock: 50, ReorderThreshold: 10},
		{ID: "p2", Name: "Detergente Multiuso Floral 5L", Category: "Limpieza General", Price: 3200, Stock: 12, ReorderThreshold: 15},
		{ID: "p3", Name: "Pack Paños Microfibra (10u)", Category: "Accesorios", Price: 8990, Stock: 100, ReorderThreshold: 20},
	}
}

func TestMemoryInventory_Reads(t *testing.T) {
	ctx := context.Background()
	inv := NewMemoryInventory(testCatalog())

	item, err := inv.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), item.Price)

	_, err = inv.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items, err := inv.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, testCatalog(), items)
}

func TestMemoryInventory_DecrementAll(t *testing.T) {
	ctx := context.Background()
	inv := NewMemoryInventory(testCatalog())
	before, _ := inv.List(ctx)

	_, err := inv.DecrementAll(ctx, []domain.CartLine{{ItemID: "p1", Quantity: 5}, {ItemID: "p2", Quantity: 20}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	after, _ := inv.List(ctx)
	assert.Equal(t, before, after, "a rejected batch must not change anything")

	updated, err := inv.DecrementAll(ctx, []domain.CartLine{{ItemID: "p1", Quantity: 5}, {ItemID: "p2", Quantity: 12}})
	require.NoError(t, err)
	assert.Equal(t, 45, updated[0].Stock)
	assert.Equal(t, 0, updated[1].Stock)

	// earlier snapshots are not mutated in place
	assert.Equal(t, 50, before[0].Stock)

	_, err = inv.Decrement(ctx, "p2", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = inv.Decrement(ctx, "p1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMemoryInventory_ConcurrentNeverNegative(t *testing.T) {
	ctx := context.Background()
	inv := NewMemoryInventory(testCatalog())

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := inv.Decrement(ctx, "p2", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	item, _ := inv.Get(ctx, "p2")
	assert.Equal(t, 0, item.Stock)
	assert.Equal(t, 12, succeeded)
}

func TestMemoryTranscript(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTranscript()

	require.NoError(t, store.Append(ctx, "a", domain.Turn{Role: domain.RoleUser, Text: "1"}))
	require.NoError(t, store.Append(ctx, "a", domain.Turn{Role: domain.RoleAgent, Text: "2"}))
	require.NoError(t, store.Append(ctx, "b", domain.Turn{Role: domain.RoleUser, Text: "x"}))

	turns, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "2", turns[1].Text)

	turns[0].Text = "mutated"
	again, _ := store.Load(ctx, "a")
	assert.Equal(t, "1", again[0].Text)
}

func TestSimulatedERP(t *testing.T) {
	erp := NewSimulatedERP(0)

	ref1, err := erp.CreateOrder(context.Background(), domain.Order{ID: "TEMP-1", Total: 10})
	require.NoError(t, err)
	ref2, err := erp.CreateOrder(context.Background(), domain.Order{ID: "TEMP-2", Total: 20})
	require.NoError(t, err)

	assert.Equal(t, "SO-1001", ref1)
	assert.Equal(t, "SO-1002", ref2)

	order, ok := erp.Order(ref2)
	require.True(t, ok)
	assert.Equal(t, int64(20), order.Total)
}

func TestSimulatedERP_Cancelled(t *testing.T) {
	erp := NewSimulatedERP(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := erp.CreateOrder(ctx, domain.Order{ID: "TEMP-1"})
	assert.True(t, errors.Is(err, context.Canceled))
}
