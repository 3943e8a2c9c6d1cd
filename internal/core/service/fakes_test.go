package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

var errBackendDown = errors.New("connection refused")

// Mock InventoryRepository
type fakeInventory struct {
	mu      sync.Mutex
	order   []string
	items   map[string]domain.InventoryItem
	listErr error
	getErr  error

	listEntered chan struct{}
	listBlock   chan struct{}
}

func newFakeInventory(items ...domain.InventoryItem) *fakeInventory {
	f := &fakeInventory{items: make(map[string]domain.InventoryItem)}
	for _, item := range items {
		f.order = append(f.order, item.ID)
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeInventory) Get(ctx context.Context, itemID string) (domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.InventoryItem{}, f.getErr
	}
	item, ok := f.items[itemID]
	if !ok {
		return domain.InventoryItem{}, domain.ErrNotFound
	}
	return item, nil
}

func (f *fakeInventory) List(ctx context.Context) ([]domain.InventoryItem, error) {
	if f.listEntered != nil {
		f.listEntered <- struct{}{}
	}
	if f.listBlock != nil {
		<-f.listBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.InventoryItem, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.items[id])
	}
	return out, nil
}

func (f *fakeInventory) Decrement(ctx context.Context, itemID string, quantity int) (domain.InventoryItem, error) {
	updated, err := f.DecrementAll(ctx, []domain.CartLine{{ItemID: itemID, Quantity: quantity}})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return updated[0], nil
}

func (f *fakeInventory) DecrementAll(ctx context.Context, lines []domain.CartLine) ([]domain.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		item, ok := f.items[line.ItemID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		if line.Quantity > item.Stock {
			return nil, fmt.Errorf("%s: %w", line.ItemID, domain.ErrInsufficientStock)
		}
	}
	out := make([]domain.InventoryItem, 0, len(lines))
	for _, line := range lines {
		item := f.items[line.ItemID]
		item.Stock -= line.Quantity
		f.items[line.ItemID] = item
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeInventory) setStock(itemID string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[itemID]
	item.Stock = stock
	f.items[itemID] = item
}

func (f *fakeInventory) stock(itemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[itemID].Stock
}

// Mock OrderGateway
type fakeGateway struct {
	mu      sync.Mutex
	err     error
	calls   []domain.Order
	nextID  int
	entered chan struct{}
	block   chan struct{}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, order)
	if g.err != nil {
		return "", g.err
	}
	g.nextID++
	return fmt.Sprintf("SO-%d", 1000+g.nextID), nil
}

// Mock AlertPublisher
type fakePublisher struct {
	mu      sync.Mutex
	err     error
	batches [][]domain.ReplenishmentAlert
}

func (p *fakePublisher) PublishReplenishment(ctx context.Context, alerts []domain.ReplenishmentAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, alerts)
	return p.err
}

// Mock LanguageModel
type fakeModel struct {
	mu       sync.Mutex
	reply    domain.AgentReply
	err      error
	requests []domain.AgentRequest
	entered  chan struct{}
	block    chan struct{}
}

func (m *fakeModel) Converse(ctx context.Context, req domain.AgentRequest) (domain.AgentReply, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.reply, m.err
}

// Mock TranscriptStore
type fakeTranscript struct {
	mu    sync.Mutex
	turns map[string][]domain.Turn
}

func newFakeTranscript() *fakeTranscript {
	return &fakeTranscript{turns: make(map[string][]domain.Turn)}
}

func (t *fakeTranscript) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns[sessionID] = append(t.turns[sessionID], turns...)
	return nil
}

func (t *fakeTranscript) Load(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Turn, len(t.turns[sessionID]))
	copy(out, t.turns[sessionID])
	return out, nil
}

func storefront() []domain.InventoryItem {
	return []domain.InventoryItem{
		{ID: "p1", Name: "Cloro Gel Industrial 5L", Price: 4500, Stock: 50, ReorderThreshold: 10, Category: "Desinfectantes"},
		{ID: "p2", Name: "Detergente Multiuso Floral 5L", Price: 3200, Stock: 12, ReorderThreshold: 15, Category: "Limpieza General"},
		{ID: "p3", Name: "Pack Paños Microfibra (10u)", Price: 8990, Stock: 100, ReorderThreshold: 20, Category: "Accesorios"},
	}
}
