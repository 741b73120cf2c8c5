package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/campus-bazaar/checkout/internal/application/checkout"
	"github.com/campus-bazaar/checkout/internal/application/reconcile"
	"github.com/campus-bazaar/checkout/internal/config"
	dominv "github.com/campus-bazaar/checkout/internal/domain/inventory"
	domord "github.com/campus-bazaar/checkout/internal/domain/order"
	"github.com/campus-bazaar/checkout/internal/domain/outbox"
	"github.com/campus-bazaar/checkout/internal/infrastructure/expiry"
	"github.com/campus-bazaar/checkout/internal/infrastructure/id"
	infrakafka "github.com/campus-bazaar/checkout/internal/infrastructure/kafka"
	"github.com/campus-bazaar/checkout/internal/infrastructure/memory"
	infraoutbox "github.com/campus-bazaar/checkout/internal/infrastructure/outbox"
	"github.com/campus-bazaar/checkout/internal/infrastructure/postgres"
	"github.com/campus-bazaar/checkout/internal/infrastructure/razorpay"
	httppresentation "github.com/campus-bazaar/checkout/internal/presentation/http"
	"github.com/campus-bazaar/checkout/internal/pkg/logging"
	"github.com/campus-bazaar/checkout/internal/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	met := metrics.New(prometheus.DefaultRegisterer)

	var (
		orders domord.Store
		ledger dominv.Ledger
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			baseLogger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			baseLogger.Fatal("postgres_schema_failed", zap.Error(err))
		}
		orders = postgres.NewOrderStore(pool)
		ledger = postgres.NewInventoryLedger(pool)
		baseLogger.Info("storage_ready", zap.String("backend", "postgres"))
	} else {
		orders = memory.NewOrderStore()
		ledger = memory.NewInventoryLedger()
		baseLogger.Info("storage_ready", zap.String("backend", "memory"))
	}

	var publisher outbox.Publisher
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBrokers[0] != "" {
		producer := infrakafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, baseLogger)
		defer func() { _ = producer.Close() }()
		publisher = producer
		baseLogger.Info("events_ready", zap.String("sink", "kafka"), zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		publisher = infraoutbox.NewLogPublisher(baseLogger)
		baseLogger.Info("events_ready", zap.String("sink", "log"))
	}

	gateway := razorpay.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)

	engine := checkout.NewEngine(orders, ledger, gateway, publisher, id.NewUUIDGenerator(), met, checkout.Config{
		KeySecret: cfg.GatewayKeySecret,
		Currency:  cfg.Currency,
	})
	reconciler := reconcile.New(engine, cfg.GatewayWebhookSecret, met)

	sweeper := expiry.New(engine, cfg.ReservationTTL, cfg.SweepInterval, baseLogger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handler := httppresentation.NewHandler(engine, reconciler, baseLogger, met)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}
