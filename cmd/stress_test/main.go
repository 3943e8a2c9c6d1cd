package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/adapter/storage"
	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/core/service"
	"github.com/rl1809/chat-commerce/internal/port"
)

const (
	itemID        = "stress-item"
	initialStock  = 20
	totalShoppers = 50
)

func main() {
	backend := flag.String("backend", "memory", "inventory backend: memory or redis (redis wipes the stored catalog)")
	redisAddr := flag.String("redis", "localhost:6379", "redis address")
	flag.Parse()

	ctx := context.Background()
	seed := []domain.InventoryItem{{
		ID:               itemID,
		Name:             "Stress Item",
		Category:         "Test",
		Price:            1000,
		Stock:            initialStock,
		ReorderThreshold: 5,
	}}

	var inventory port.InventoryRepository
	switch *backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()

		redisInventory := storage.NewRedisInventory(rdb)
		if err := redisInventory.Seed(ctx, seed); err != nil {
			log.Fatalf("failed to seed stock: %v", err)
		}
		inventory = redisInventory
	case "memory":
		inventory = storage.NewMemoryInventory(seed)
	default:
		log.Fatalf("unknown backend %q", *backend)
	}

	logger := zap.NewNop()
	checkout := service.NewCheckoutPipeline(inventory, storage.NewSimulatedERP(0), service.NewReplenishmentMonitor(nil, logger), logger)
	sessions := service.NewSessionManager(inventory, nil, storage.NewMemoryTranscript(), logger)

	// Fill every cart before anyone checks out so all shoppers race on commit.
	carts := make([]*service.CartLedger, totalShoppers)
	for i := range carts {
		s := sessions.Create()
		if _, err := s.Cart.AddItem(ctx, itemID); err != nil {
			log.Fatalf("failed to fill cart: %v", err)
		}
		carts[i] = s.Cart
	}

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i, cart := range carts {
		wg.Add(1)
		go func(n int, cart *service.CartLedger) {
			defer wg.Done()

			_, err := checkout.Submit(ctx, cart, service.CheckoutRequest{
				Customer:      domain.Customer{Name: fmt.Sprintf("shopper-%d", n), Email: fmt.Sprintf("shopper-%d@example.com", n)},
				PaymentMethod: domain.PaymentWebpay,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrStockChanged):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("shopper %d: unexpected error: %v", n, err)
			}
		}(i, cart)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Backend:          %s\n", *backend)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Shoppers:         %d\n", totalShoppers)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Stock Changed:    %d\n", soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalShoppers-initialStock {
		fmt.Printf("PASS: Exactly %d checkouts succeeded, %d saw stock changed\n", initialStock, totalShoppers-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d stock changed, got %d/%d\n",
			initialStock, totalShoppers-initialStock, success, soldOut)
	}

	item, err := inventory.Get(ctx, itemID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", item.Stock)

	if item.Stock == 0 {
		fmt.Println("PASS: Stock depleted to 0 and never negative")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", item.Stock)
	}
}
