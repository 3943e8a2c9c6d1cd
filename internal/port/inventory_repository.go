package port

import (
	"context"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

type InventoryRepository interface {
	// Get returns a snapshot of one item, domain.ErrNotFound if unknown
	Get(ctx context.Context, itemID string) (domain.InventoryItem, error)

	// List returns a consistent snapshot of the whole catalog in catalog order
	List(ctx context.Context) ([]domain.InventoryItem, error)

	// Decrement atomically reduces stock, domain.ErrInsufficientStock if quantity exceeds it
	Decrement(ctx context.Context, itemID string, quantity int) (domain.InventoryItem, error)

	// DecrementAll applies every line or none of them
	DecrementAll(ctx context.Context, lines []domain.CartLine) ([]domain.InventoryItem, error)
}
