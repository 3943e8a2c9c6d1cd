package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/chat-commerce/internal/adapter/assistant"
	"github.com/rl1809/chat-commerce/internal/adapter/events"
	"github.com/rl1809/chat-commerce/internal/adapter/handler"
	"github.com/rl1809/chat-commerce/internal/adapter/notify"
	"github.com/rl1809/chat-commerce/internal/adapter/storage"
	"github.com/rl1809/chat-commerce/internal/catalog"
	"github.com/rl1809/chat-commerce/internal/config"
	"github.com/rl1809/chat-commerce/internal/core/service"
	"github.com/rl1809/chat-commerce/internal/port"
)

const salesInbox = "ventas@numostock.cl"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			logger.Fatal("failed to create trace exporter", zap.Error(err))
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		otel.SetTracerProvider(tp)
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	items, err := catalog.Load(cfg.Inventory.CatalogFile)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("items", len(items)))

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		logger.Info("connections closed")
	}()

	// Initialize Redis
	var rdb *redis.Client
	if cfg.Inventory.Backend == config.BackendRedis || cfg.Transcript.Backend == config.BackendRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize inventory
	var inventory port.InventoryRepository
	switch cfg.Inventory.Backend {
	case config.BackendRedis:
		redisInventory := storage.NewRedisInventory(rdb)
		if cfg.Inventory.Seed {
			if err := redisInventory.Seed(ctx, items); err != nil {
				logger.Fatal("failed to seed redis inventory", zap.Error(err))
			}
		}
		inventory = redisInventory
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		closers = append(closers, pool.Close)
		logger.Info("connected to postgres")

		pgInventory := storage.NewPostgresInventory(pool)
		if err := pgInventory.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to create inventory schema", zap.Error(err))
		}
		if cfg.Inventory.Seed {
			if err := pgInventory.Seed(ctx, items); err != nil {
				logger.Fatal("failed to seed postgres inventory", zap.Error(err))
			}
		}
		inventory = pgInventory
	default:
		inventory = storage.NewMemoryInventory(items)
	}
	logger.Info("inventory ready", zap.String("backend", cfg.Inventory.Backend))

	// Initialize order backend
	var orders port.OrderGateway
	switch cfg.Orders.Backend {
	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			logger.Fatal("failed to connect mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxOpenConns / 2)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping mysql", zap.Error(err))
		}
		closers = append(closers, func() { _ = db.Close() })
		logger.Info("connected to mysql")

		store := storage.NewMySQLOrderStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to create order schema", zap.Error(err))
		}
		orders = store
	default:
		orders = storage.NewSimulatedERP(cfg.Orders.SimulatedLatency)
	}
	logger.Info("order backend ready", zap.String("backend", cfg.Orders.Backend))

	var transcript port.TranscriptStore = storage.NewMemoryTranscript()
	if cfg.Transcript.Backend == config.BackendRedis {
		transcript = storage.NewRedisTranscript(rdb)
	}

	// Replenishment alerts go to RabbitMQ when configured, otherwise only
	// to the log.
	var alerts port.AlertPublisher
	if cfg.AMQP.URL != "" {
		conn, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			logger.Fatal("failed to connect rabbitmq", zap.Error(err))
		}
		publisher, err := events.NewPublisher(conn, events.PublisherOptions{Logger: logger})
		if err != nil {
			logger.Fatal("failed to create alert publisher", zap.Error(err))
		}
		closers = append(closers, func() {
			_ = publisher.Close()
			_ = conn.Close()
		})
		alerts = publisher
		logger.Info("connected to rabbitmq")
	}

	model := assistant.NewGemini(assistant.Options{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		BaseURL:     cfg.Gemini.BaseURL,
		StoreName:   cfg.StoreName,
		Temperature: cfg.Gemini.Temperature,
		Logger:      logger,
	})
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, assistant will answer with the not-configured reply")
	}

	// Initialize services
	monitor := service.NewReplenishmentMonitor(alerts, logger)
	checkout := service.NewCheckoutPipeline(inventory, orders, monitor, logger)
	sessions := service.NewSessionManager(inventory, model, transcript, logger)
	contact := service.NewContactService(cfg.Contact.QueueSize)

	// Start contact workers
	notifier := notify.NewLogNotifier(logger, salesInbox)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Contact.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			service.Deliver(id, contact.GetQueue(), notifier, logger)
		}(i)
	}
	logger.Info("started contact workers", zap.Int("workers", cfg.Contact.Workers))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterStorefrontServer(grpcServer, handler.NewGRPCHandler(sessions, checkout, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(inventory, sessions, checkout, contact, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(handler.NewRouter(httpHandler), "storefront"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close contact queue and wait for workers
	contact.Close()
	wg.Wait()
	logger.Info("workers stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
