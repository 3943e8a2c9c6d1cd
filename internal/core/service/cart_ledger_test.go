package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

func TestCartLedger_AddItem(t *testing.T) {
	ctx := context.Background()
	inv := newFakeInventory(domain.InventoryItem{ID: "x", Name: "X", Price: 100, Stock: 2})
	cart := NewCartLedger(inv)

	for i := 0; i < 2; i++ {
		ok, err := cart.AddItem(ctx, "x")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// third unit exceeds stock
	ok, err := cart.AddItem(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []domain.CartLine{{ItemID: "x", Quantity: 2}}, cart.Lines())
}

func TestCartLedger_AddItem_OutOfStockOrUnknown(t *testing.T) {
	ctx := context.Background()
	inv := newFakeInventory(domain.InventoryItem{ID: "x", Stock: 0})
	cart := NewCartLedger(inv)

	ok, err := cart.AddItem(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cart.AddItem(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, cart.Lines())
}

func TestCartLedger_AddItem_BackendError(t *testing.T) {
	inv := newFakeInventory(domain.InventoryItem{ID: "x", Stock: 5})
	inv.getErr = errBackendDown
	cart := NewCartLedger(inv)

	ok, err := cart.AddItem(context.Background(), "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestCartLedger_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	cart := NewCartLedger(newFakeInventory(storefront()...))

	for _, id := range []string{"p3", "p1", "p3", "p2"} {
		_, err := cart.AddItem(ctx, id)
		require.NoError(t, err)
	}

	assert.Equal(t, []domain.CartLine{
		{ItemID: "p3", Quantity: 2},
		{ItemID: "p1", Quantity: 1},
		{ItemID: "p2", Quantity: 1},
	}, cart.Lines())
}

func TestCartLedger_SetQuantity(t *testing.T) {
	ctx := context.Background()
	inv := newFakeInventory(domain.InventoryItem{ID: "x", Price: 10, Stock: 3})
	cart := NewCartLedger(inv)
	_, err := cart.AddItem(ctx, "x")
	require.NoError(t, err)

	tests := []struct {
		name     string
		quantity int
		applied  bool
		expected int
	}{
		{"within stock", 3, true, 3},
		{"above stock is rejected, not clamped", 5, false, 3},
		{"zero is ignored", 0, false, 3},
		{"negative is ignored", -2, false, 3},
		{"lower", 1, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := cart.SetQuantity(ctx, "x", tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, ok)
			assert.Equal(t, tt.expected, cart.Lines()[0].Quantity)
		})
	}

	ok, err := cart.SetQuantity(ctx, "not-in-cart", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartLedger_RemoveAndTotal(t *testing.T) {
	ctx := context.Background()
	cart := NewCartLedger(newFakeInventory(storefront()...))

	for _, id := range []string{"p1", "p1", "p2"} {
		_, err := cart.AddItem(ctx, id)
		require.NoError(t, err)
	}

	total, err := cart.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2*4500+3200), total)

	assert.True(t, cart.RemoveItem("p1"))
	assert.False(t, cart.RemoveItem("p1"))

	total, err = cart.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3200), total)

	view, err := cart.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Detergente Multiuso Floral 5L", view.Lines[0].Name)
	assert.Equal(t, int64(3200), view.Lines[0].Subtotal)
}

func TestCartLedger_FrozenDuringCheckout(t *testing.T) {
	ctx := context.Background()
	cart := NewCartLedger(newFakeInventory(storefront()...))
	_, err := cart.AddItem(ctx, "p1")
	require.NoError(t, err)

	require.True(t, cart.freeze())
	assert.False(t, cart.freeze())

	ok, err := cart.AddItem(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, cart.RemoveItem("p1"))

	cart.thaw()
	assert.True(t, cart.RemoveItem("p1"))
}

func TestCartLedger_ConcurrentAddsNeverExceedStock(t *testing.T) {
	ctx := context.Background()
	inv := newFakeInventory(domain.InventoryItem{ID: "x", Stock: 25})
	cart := NewCartLedger(inv)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cart.AddItem(ctx, "x")
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, cart.Lines()[0].Quantity)
}

func TestCartLedger_ViewHoldsCartAgainstCommit(t *testing.T) {
	ctx := context.Background()
	inv := newFakeInventory(storefront()...)
	cart := NewCartLedger(inv)
	fillCart(t, cart, "p1", 2)

	inv.listEntered = make(chan struct{}, 1)
	inv.listBlock = make(chan struct{})

	views := make(chan domain.CartView, 1)
	go func() {
		view, err := cart.View(ctx)
		assert.NoError(t, err)
		views <- view
	}()
	<-inv.listEntered

	committed := make(chan struct{})
	go func() {
		_ = cart.commit(func() error { return nil })
		close(committed)
	}()

	select {
	case <-committed:
		t.Fatal("commit ran while the cart was being priced")
	case <-time.After(50 * time.Millisecond):
	}

	close(inv.listBlock)
	view := <-views
	<-committed

	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(9000), view.Total)
	assert.Empty(t, cart.Lines())
}
