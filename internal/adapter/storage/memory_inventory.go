package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

type inventorySnapshot struct {
	order []string
	items map[string]domain.InventoryItem
}

// MemoryInventory serves reads from an immutable snapshot and swaps in a
// new one on every write, so readers never see a half-applied decrement.
type MemoryInventory struct {
	writeMu sync.Mutex
	current atomic.Pointer[inventorySnapshot]
}

func NewMemoryInventory(items []domain.InventoryItem) *MemoryInventory {
	snap := &inventorySnapshot{
		order: make([]string, 0, len(items)),
		items: make(map[string]domain.InventoryItem, len(items)),
	}
	for _, item := range items {
		if _, dup := snap.items[item.ID]; !dup {
			snap.order = append(snap.order, item.ID)
		}
		snap.items[item.ID] = item
	}

	m := &MemoryInventory{}
	m.current.Store(snap)
	return m
}

func (m *MemoryInventory) Get(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	item, ok := m.current.Load().items[itemID]
	if !ok {
		return domain.InventoryItem{}, fmt.Errorf("%s: %w", itemID, domain.ErrNotFound)
	}
	return item, nil
}

func (m *MemoryInventory) List(ctx context.Context) ([]domain.InventoryItem, error) {
	snap := m.current.Load()
	items := make([]domain.InventoryItem, 0, len(snap.order))
	for _, id := range snap.order {
		items = append(items, snap.items[id])
	}
	return items, nil
}

func (m *MemoryInventory) Decrement(ctx context.Context, itemID string, quantity int) (domain.InventoryItem, error) {
	items, err := m.DecrementAll(ctx, []domain.CartLine{{ItemID: itemID, Quantity: quantity}})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return items[0], nil
}

func (m *MemoryInventory) DecrementAll(ctx context.Context, lines []domain.CartLine) ([]domain.InventoryItem, error) {
	lines = mergeLines(lines)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	prev := m.current.Load()
	for _, line := range lines {
		item, ok := prev.items[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("%s: %w", line.ItemID, domain.ErrNotFound)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("decrement %s by %d: %w", line.ItemID, line.Quantity, domain.ErrInvalidInput)
		}
		if line.Quantity > item.Stock {
			return nil, fmt.Errorf("%s: %w", line.ItemID, domain.ErrInsufficientStock)
		}
	}

	next := &inventorySnapshot{
		order: prev.order,
		items: make(map[string]domain.InventoryItem, len(prev.items)),
	}
	for id, item := range prev.items {
		next.items[id] = item
	}

	updated := make([]domain.InventoryItem, 0, len(lines))
	for _, line := range lines {
		item := next.items[line.ItemID]
		item.Stock -= line.Quantity
		next.items[line.ItemID] = item
		updated = append(updated, item)
	}

	m.current.Store(next)
	return updated, nil
}
