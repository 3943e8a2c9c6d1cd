package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

func TestReplenishmentMonitor_Scan(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{}
	monitor := NewReplenishmentMonitor(pub, zap.New(core))

	alerts := monitor.Scan(context.Background(), []domain.InventoryItem{
		{ID: "a", Name: "A", Stock: 10, ReorderThreshold: 10},
		{ID: "b", Name: "B", Stock: 11, ReorderThreshold: 10},
		{ID: "c", Name: "C", Stock: 0, ReorderThreshold: 5},
		{ID: "a", Name: "A", Stock: 10, ReorderThreshold: 10},
	})

	assert.Equal(t, []domain.ReplenishmentAlert{
		{ItemID: "a", Name: "A", CurrentStock: 10, Threshold: 10},
		{ItemID: "c", Name: "C", CurrentStock: 0, Threshold: 5},
	}, alerts)
	require.Len(t, pub.batches, 1)
	assert.Equal(t, 2, logs.FilterMessage("stock at or below reorder point").Len())
}

func TestReplenishmentMonitor_NothingLow(t *testing.T) {
	pub := &fakePublisher{}
	monitor := NewReplenishmentMonitor(pub, nil)

	alerts := monitor.Scan(context.Background(), storefront()[:1])
	assert.Empty(t, alerts)
	assert.Empty(t, pub.batches)
}

func TestReplenishmentMonitor_PublishFailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	pub := &fakePublisher{err: errors.New("broker down")}
	monitor := NewReplenishmentMonitor(pub, zap.New(core))

	alerts := monitor.Scan(context.Background(), []domain.InventoryItem{{ID: "a", Stock: 1, ReorderThreshold: 2}})
	assert.Len(t, alerts, 1)
	assert.Equal(t, 1, logs.FilterMessage("publish replenishment alerts").Len())
}
