package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/events"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	if cfg.GoEnv == "dev" {
		if err := db.Migrate(gormDB); err != nil {
			log.Error("db migrate", "err", err)
			os.Exit(1)
		}
	}

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	tx := infraRepo.NewTxManagerGorm(gormDB)

	//onlineフラグのキャッシュ（REDIS_ADDRがあれば）
	var availability usecase.AvailabilityCache
	if cfg.RedisAddr != "" {
		rdb := cache.New(cfg.RedisAddr)
		defer rdb.Close()
		availability = cache.NewAvailabilityCache(rdb)
	}

	//注文イベント（KAFKA_BROKERSがあれば）
	var publisher usecase.OrderEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	//Usecase生成
	recalc := usecase.NewRecalculator(tx, usecase.RecalculatorOptions{
		Locations:   cfg.Locations,
		Cache:       availability,
		Metrics:     m,
		Logger:      log,
		MaxAttempts: cfg.RecalcMaxAttempts,
		Backoff:     cfg.RecalcRetryBackoff,
	})
	adminOrderUC := usecase.NewAdminOrderUsecase(tx, usecase.AdminOrderDeps{
		Allocator: usecase.NewAllocator(cfg.Locations),
		Restorer:  usecase.NewRestorer(cfg.Locations, cfg.DefaultRestoreLocation),
		Recalc:    recalc,
		Events:    publisher,
		Metrics:   m,
		Logger:    log,
		IDGen:     idGen,
		Clock:     clock,
	})
	orderUC := usecase.NewOrderUsecase(tx)
	stockUC := usecase.NewStockUsecase(tx, recalc, m, clock)

	//Handler生成
	e := server.New(log, m)
	server.RegisterRoutes(e, cfg.JWTSecret, reg, server.Handlers{
		Orders:      handler.NewOrderHandler(orderUC),
		AdminOrders: handler.NewAdminOrderHandler(adminOrderUC),
		AdminStock:  handler.NewAdminStockHandler(stockUC),
		Products:    handler.NewProductHandler(stockUC),
	})

	//Server起動
	if err := server.Start(ctx, e, cfg.Addr(), log); err != nil {
		log.Error("http server", "err", err)
		os.Exit(1)
	}
}
