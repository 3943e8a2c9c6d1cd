package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/port"
)

// ReplenishmentMonitor flags items at or below their reorder point.
// Alerts are advisory: a failed publish is logged and otherwise ignored.
type ReplenishmentMonitor struct {
	publisher port.AlertPublisher
	logger    *zap.Logger
}

// NewReplenishmentMonitor accepts a nil publisher; alerts are then only logged.
func NewReplenishmentMonitor(publisher port.AlertPublisher, logger *zap.Logger) *ReplenishmentMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplenishmentMonitor{publisher: publisher, logger: logger}
}

func (m *ReplenishmentMonitor) Scan(ctx context.Context, items []domain.InventoryItem) []domain.ReplenishmentAlert {
	seen := make(map[string]struct{}, len(items))
	var alerts []domain.ReplenishmentAlert
	for _, item := range items {
		if _, dup := seen[item.ID]; dup || !item.NeedsReplenishment() {
			continue
		}
		seen[item.ID] = struct{}{}
		alert := domain.ReplenishmentAlert{
			ItemID:       item.ID,
			Name:         item.Name,
			CurrentStock: item.Stock,
			Threshold:    item.ReorderThreshold,
		}
		alerts = append(alerts, alert)
		m.logger.Warn("stock at or below reorder point",
			zap.String("item_id", alert.ItemID),
			zap.String("name", alert.Name),
			zap.Int("stock", alert.CurrentStock),
			zap.Int("threshold", alert.Threshold),
		)
	}

	if len(alerts) > 0 && m.publisher != nil {
		if err := m.publisher.PublishReplenishment(ctx, alerts); err != nil {
			m.logger.Error("publish replenishment alerts", zap.Int("count", len(alerts)), zap.Error(err))
		}
	}
	return alerts
}
