package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweetshop/api/internal/auditor"
	"github.com/sweetshop/api/internal/config"
	"github.com/sweetshop/api/internal/events"
	kafkax "github.com/sweetshop/api/internal/kafka"
	"github.com/sweetshop/api/internal/logging"
	"github.com/sweetshop/api/internal/redisx"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.ServiceName+"-auditor", cfg.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &auditor.Service{
		Redis:             rdb,
		Log:               logger,
		ServiceName:       cfg.ServiceName + "-auditor",
		LowStockThreshold: cfg.LowStockThreshold,
	}

	group := getenv("AUDITOR_GROUP", "sweetshop-auditor")
	workers := atoi(os.Getenv("AUDITOR_WORKERS"), 4)

	cOrders := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderPlaced, workers, logger)
	cStock := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicStockAdjusted, workers, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consuming", zap.String("topic", events.TopicOrderPlaced), zap.String("group", group))
		return cOrders.Start(gctx, svc.HandleOrderPlaced)
	})
	g.Go(func() error {
		logger.Info("consuming", zap.String("topic", events.TopicStockAdjusted), zap.String("group", group))
		return cStock.Start(gctx, svc.HandleStockAdjusted)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumers...")
		cancel()
	case <-gctx.Done():
	}

	if err := g.Wait(); err != nil {
		logger.Error("consumer exit", zap.Error(err))
	}
}
