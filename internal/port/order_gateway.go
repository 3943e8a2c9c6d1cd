package port

import (
	"context"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

type OrderGateway interface {
	// CreateOrder is a single atomic remote call; it returns the backend order reference
	CreateOrder(ctx context.Context, order domain.Order) (string, error)
}
