package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

// SimulatedERP stands in for the order backend in development. It keeps
// created orders in memory and hands out SO-<n> references.
type SimulatedERP struct {
	latency time.Duration

	mu     sync.Mutex
	next   int
	orders map[string]domain.Order
}

func NewSimulatedERP(latency time.Duration) *SimulatedERP {
	return &SimulatedERP{
		latency: latency,
		next:    1000,
		orders:  make(map[string]domain.Order),
	}
}

func (s *SimulatedERP) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	ref := fmt.Sprintf("SO-%d", s.next)
	order.ID = ref
	s.orders[ref] = order
	return ref, nil
}

func (s *SimulatedERP) Order(ref string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[ref]
	return order, ok
}
