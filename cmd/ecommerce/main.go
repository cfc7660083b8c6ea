package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/xxwlkq/ecommerce-system/internal/cache"
	"github.com/xxwlkq/ecommerce-system/internal/config"
	"github.com/xxwlkq/ecommerce-system/internal/events"
	server "github.com/xxwlkq/ecommerce-system/internal/http"
	"github.com/xxwlkq/ecommerce-system/internal/http/handlers"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := applog.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config.loaded", cfg.Fields()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Spans carry trace ids into published order events.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db.open", zap.Error(err))
	}
	if cfg.SeedDemo {
		if err := repos.SeedDemo(db); err != nil {
			logger.Fatal("db.seed", zap.Error(err))
		}
	}
	store := repos.NewStore(db)

	var productCache services.ProductCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("cache.disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			productCache = cache.NewProducts(rdb, cfg.CacheTTL)
		}
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewSyncProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Warn("events.disabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.Error(err))
		} else {
			k := events.NewKafka(producer, cfg.KafkaTopic)
			defer func() { _ = k.Close() }()
			publisher = k
		}
	}

	deps := handlers.NewDeps(store, cfg, productCache, publisher)
	app := server.New(deps, server.DefaultOptions())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server.listen", zap.Error(err))
			stop()
		}
	}()
	logger.Info("server.started", zap.String("port", cfg.Port))

	<-ctx.Done()
	logger.Info("server.stopping")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server.shutdown", zap.Error(err))
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(sctx); err != nil {
		logger.Error("tracer.shutdown", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		logger.Error("db.close", zap.Error(err))
	}
}
