package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/port"
)

// CartLedger holds one session's cart. Every mutation replaces the line
// slice as a whole, so a Lines snapshot is never partially updated.
//
// Rejected mutations (over stock, bad quantity, frozen for checkout) are
// silent: they report false and leave the cart untouched. Errors are
// returned only when the inventory backend itself fails.
type CartLedger struct {
	inventory port.InventoryRepository

	mu          sync.Mutex
	lines       []domain.CartLine
	checkingOut bool
}

func NewCartLedger(inventory port.InventoryRepository) *CartLedger {
	return &CartLedger{inventory: inventory}
}

// addOutcome says why an add did or did not apply.
type addOutcome int

const (
	addApplied addOutcome = iota
	addRejected
	addFrozen
)

// AddItem grows an existing line by one or opens a new line at quantity 1,
// provided the result still fits current stock.
func (l *CartLedger) AddItem(ctx context.Context, itemID string) (bool, error) {
	outcome, err := l.add(ctx, itemID)
	return outcome == addApplied, err
}

func (l *CartLedger) add(ctx context.Context, itemID string) (addOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.checkingOut {
		return addFrozen, nil
	}

	item, err := l.inventory.Get(ctx, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return addRejected, nil
	}
	if err != nil {
		return addRejected, fmt.Errorf("add item %s: %w", itemID, err)
	}

	next := l.clone()
	if idx := indexOf(next, itemID); idx >= 0 {
		if next[idx].Quantity+1 > item.Stock {
			return addRejected, nil
		}
		next[idx].Quantity++
		l.lines = next
		return addApplied, nil
	}

	if item.Stock < 1 {
		return addRejected, nil
	}
	l.lines = append(next, domain.CartLine{ItemID: itemID, Quantity: 1})
	return addApplied, nil
}

// RemoveItem deletes the line for itemID if there is one.
func (l *CartLedger) RemoveItem(itemID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.checkingOut {
		return false
	}

	idx := indexOf(l.lines, itemID)
	if idx < 0 {
		return false
	}
	next := make([]domain.CartLine, 0, len(l.lines)-1)
	next = append(next, l.lines[:idx]...)
	next = append(next, l.lines[idx+1:]...)
	l.lines = next
	return true
}

// SetQuantity replaces a line's quantity. Quantities below 1 or above
// current stock are rejected; nothing is clamped.
func (l *CartLedger) SetQuantity(ctx context.Context, itemID string, quantity int) (bool, error) {
	if quantity < 1 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.checkingOut {
		return false, nil
	}

	idx := indexOf(l.lines, itemID)
	if idx < 0 {
		return false, nil
	}

	item, err := l.inventory.Get(ctx, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set quantity %s: %w", itemID, err)
	}
	if quantity > item.Stock {
		return false, nil
	}

	next := l.clone()
	next[idx].Quantity = quantity
	l.lines = next
	return true, nil
}

// Lines returns the cart in insertion order.
func (l *CartLedger) Lines() []domain.CartLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clone()
}

// Total recomputes the cart value from the current catalog prices.
func (l *CartLedger) Total(ctx context.Context) (int64, error) {
	view, err := l.View(ctx)
	if err != nil {
		return 0, err
	}
	return view.Total, nil
}

// View joins the cart with a catalog snapshot. The snapshot is read under
// the cart lock, so a concurrent commit is seen either fully or not at all.
func (l *CartLedger) View(ctx context.Context) (domain.CartView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.inventory.List(ctx)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("price cart: %w", err)
	}
	return priceLines(l.lines, indexItems(items))
}

// Clear empties the cart. Only a successful checkout commit calls it.
func (l *CartLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// freeze marks the cart as being checked out; mutators become no-ops until
// thaw. It reports false if a checkout is already running.
func (l *CartLedger) freeze() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkingOut {
		return false
	}
	l.checkingOut = true
	return true
}

func (l *CartLedger) thaw() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkingOut = false
}

// commit runs fn with the cart lock held and clears the cart if fn
// succeeds, so no reader sees the decrement without the clear.
func (l *CartLedger) commit(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	l.lines = nil
	return nil
}

func (l *CartLedger) clone() []domain.CartLine {
	if len(l.lines) == 0 {
		return nil
	}
	out := make([]domain.CartLine, len(l.lines))
	copy(out, l.lines)
	return out
}

func indexOf(lines []domain.CartLine, itemID string) int {
	for i, line := range lines {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

func indexItems(items []domain.InventoryItem) map[string]domain.InventoryItem {
	out := make(map[string]domain.InventoryItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

func priceLines(lines []domain.CartLine, catalog map[string]domain.InventoryItem) (domain.CartView, error) {
	view := domain.CartView{Lines: make([]domain.PricedLine, 0, len(lines))}
	for _, line := range lines {
		item, ok := catalog[line.ItemID]
		if !ok {
			return domain.CartView{}, fmt.Errorf("price line %s: %w", line.ItemID, domain.ErrNotFound)
		}
		subtotal := item.Price * int64(line.Quantity)
		view.Lines = append(view.Lines, domain.PricedLine{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
		})
		view.Total += subtotal
	}
	return view, nil
}
