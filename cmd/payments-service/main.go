package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/shoply/payments-service/config"
	"github.com/shoply/payments-service/internal/gateway/infrastructure/checkout"
	gatewayhttp "github.com/shoply/payments-service/internal/gateway/infrastructure/http"
	"github.com/shoply/payments-service/internal/gateway/infrastructure/mpesa"
	gatewayredis "github.com/shoply/payments-service/internal/gateway/infrastructure/redis"
	gatewayrest "github.com/shoply/payments-service/internal/gateway/infrastructure/rest"
	invapp "github.com/shoply/payments-service/internal/inventory/application"
	ledgerapp "github.com/shoply/payments-service/internal/ledger/application"
	ledgerpg "github.com/shoply/payments-service/internal/ledger/infrastructure/postgres"
	sagaapp "github.com/shoply/payments-service/internal/saga/application"
	sagapg "github.com/shoply/payments-service/internal/saga/infrastructure/postgres"
	sagarest "github.com/shoply/payments-service/internal/saga/infrastructure/rest"
	"github.com/shoply/payments-service/pkg/idempotency"
	"github.com/shoply/payments-service/pkg/logging"
	"github.com/shoply/payments-service/pkg/outbox"
	"github.com/shoply/payments-service/pkg/shutdown"
	"github.com/shoply/payments-service/pkg/tracing"
)

// loadConfig loads the embedded defaults and overrides them with the config
// file named by the --config flag.
func loadConfig() *koanf.Koanf {
	configPath := kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()
	kingpin.Parse()

	k := koanf.New(".")
	_ = k.Load(rawbytes.Provider(config.DefaultConfig), yaml.Parser())
	if *configPath != "" {
		_ = k.Load(file.Provider(*configPath), yaml.Parser())
	}
	return k
}

func main() {
	k := loadConfig()

	cfg := config.Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Logger.Level)
	if !cfg.IsProdMode {
		k.Print()
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Application, cfg.Tracing.Endpoint, logger)
	if err != nil {
		logger.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := ledgerpg.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.URI, Password: cfg.Redis.Password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	// Outbox relay: ledger and reconciliation events reach Kafka through it.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()
	dispatch := outbox.NewDispatcher(logger, writer, cfg.Kafka.Topic)
	outboxStore := ledgerpg.NewOutboxStore(logger, pool)
	relay := outbox.NewRelay(logger, outboxStore, dispatch, cfg.Application+"-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			logger.Error("relay stopped", "err", err)
		}
	}()

	// Saga wiring.
	ledgerRepo := ledgerpg.NewRepository(logger, pool)
	ledgerSvc := ledgerapp.NewService(ledgerRepo)

	restClient := sagarest.NewClient(logger, cfg.Saga.CallTimeout)
	orders := sagarest.NewOrderClient(restClient, cfg.Services.OrderURL)
	carts := sagarest.NewCartClient(restClient, cfg.Services.CartURL)
	products := sagarest.NewProductClient(restClient, cfg.Services.ProductURL)
	notifier := sagarest.NewNotificationClient(restClient, cfg.Services.NotificationsURL)
	adjuster := invapp.NewAdjuster(logger, products)

	gate := idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)
	alerts := sagapg.NewAlertStore(logger, pool)
	coordinator := sagaapp.NewCoordinator(logger, ledgerSvc, orders, carts, adjuster, notifier, gate, alerts)

	// Gateway wiring.
	sessions := gatewayredis.NewSessionStore(rdb, cfg.Redis.SessionTTL)
	users := gatewayrest.NewUserClient(logger, cfg.Services.UserURL, cfg.Saga.CallTimeout)
	pusher := mpesa.NewClient(logger, mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Shortcode:      cfg.Mpesa.Shortcode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
	}, cfg.Saga.CallTimeout)
	provider := checkout.NewProvider(logger, checkout.Config{
		BaseURL:    cfg.Checkout.ProviderURL,
		APIKey:     cfg.Checkout.APIKey,
		SuccessURL: cfg.Checkout.SuccessURL,
		CancelURL:  cfg.Checkout.CancelURL,
	}, cfg.Saga.CallTimeout)

	handler := gatewayhttp.NewHandler(logger, coordinator, sessions, users, pusher, provider, ledgerSvc)

	r := chi.NewRouter()
	r.Mount("/api/v1/payments", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("payments-service shutdown complete")
}
