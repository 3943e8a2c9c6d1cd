package handler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/adapter/storage"
	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/core/service"
)

// scriptedModel answers every message with the same reply.
type scriptedModel struct {
	mu    sync.Mutex
	reply domain.AgentReply
	err   error
}

func (m *scriptedModel) Converse(ctx context.Context, req domain.AgentRequest) (domain.AgentReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply, m.err
}

type testEnv struct {
	inventory *storage.MemoryInventory
	erp       *storage.SimulatedERP
	model     *scriptedModel
	sessions  *service.SessionManager
	checkout  *service.CheckoutPipeline
	contact   *service.ContactService
}

func newTestEnv() *testEnv {
	inventory := storage.NewMemoryInventory([]domain.InventoryItem{
		{ID: "p1", Name: "Cloro Gel Industrial 5L", Category: "Desinfectantes", Price: 4500, Stock: 50, ReorderThreshold: 10},
		{ID: "p2", Name: "Detergente Multiuso Floral 5L", Category: "Limpieza General", Price: 3200, Stock: 12, ReorderThreshold: 15},
		{ID: "p3", Name: "Pack Paños Microfibra (10u)", Category: "Accesorios", Price: 8990, Stock: 2, ReorderThreshold: 1},
	})
	erp := storage.NewSimulatedERP(0)
	model := &scriptedModel{}
	logger := zap.NewNop()

	return &testEnv{
		inventory: inventory,
		erp:       erp,
		model:     model,
		sessions:  service.NewSessionManager(inventory, model, storage.NewMemoryTranscript(), logger),
		checkout:  service.NewCheckoutPipeline(inventory, erp, service.NewReplenishmentMonitor(nil, logger), logger),
		contact:   service.NewContactService(10),
	}
}
