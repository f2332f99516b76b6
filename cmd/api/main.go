package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/config"
	"github.com/sweetshop/api/internal/events"
	"github.com/sweetshop/api/internal/httpx"
	kafkax "github.com/sweetshop/api/internal/kafka"
	"github.com/sweetshop/api/internal/logging"
	"github.com/sweetshop/api/internal/memstore"
	"github.com/sweetshop/api/internal/orders"
	"github.com/sweetshop/api/internal/postgres"
	"github.com/sweetshop/api/internal/redisx"
	"github.com/sweetshop/api/internal/stock"
	"github.com/sweetshop/api/internal/sweets"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.ServiceName, cfg.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	var (
		sweetStore sweets.Store
		orderStore orders.Store
		userStore  auth.Store
		ledger     stock.Ledger
	)
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory store; data is not persisted")
		ms := memstore.New()
		sweetStore, orderStore, userStore, ledger = ms, ms, ms, ms
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		sweetStore = &sweets.PGStore{DB: db}
		orderStore = &orders.PGStore{DB: db}
		userStore = &auth.PGStore{DB: db}
		ledger = &stock.PGLedger{DB: db}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPlaced, 1024, logger)
	pOrders.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderStatus, 1024, logger)
	pStatus.Start(ctx)
	pStock := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStockAdjusted, 1024, logger)
	pStock.Start(ctx)

	// Services
	authSvc := &auth.Service{
		Store:      userStore,
		Secret:     []byte(cfg.JWTSecret),
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
		Log:        logger,
	}
	catalog := &sweets.Service{
		Store:  sweetStore,
		Ledger: ledger,
		Stock:  pStock,
		Log:    logger,
		Name:   cfg.ServiceName,
	}
	engine := &orders.Engine{
		Orders:          orderStore,
		Sweets:          sweetStore,
		Ledger:          ledger,
		OrderEvents:     pOrders,
		StatusEvents:    pStatus,
		StockEvents:     pStock,
		Cache:           rdb,
		Log:             logger,
		Name:            cfg.ServiceName,
		RestockOnCancel: cfg.RestockOnCancel,
	}

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.AuthHandler{Auth: authSvc}).Register(router)
	(&httpx.SweetsHandler{Catalog: catalog, Engine: engine, Auth: authSvc, Redis: rdb}).Register(router)
	(&httpx.OrdersHandler{Engine: engine, Auth: authSvc}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// close inboxes -> flush & close writers, then stop the loops
	pOrders.Close()
	pStatus.Close()
	pStock.Close()
	pOrders.WaitClosed()
	pStatus.WaitClosed()
	pStock.WaitClosed()
}
