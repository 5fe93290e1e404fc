package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"mintgate/internal/arweave"
	"mintgate/internal/discord"
	"mintgate/internal/generate"
	"mintgate/internal/issuance/ports"
	"mintgate/internal/issuance/service"
	"mintgate/internal/issuance/store/ledger"
	"mintgate/internal/jwttoken"
	"mintgate/internal/platform/config"
	"mintgate/internal/platform/httpserver"
	"mintgate/internal/platform/kafka"
	"mintgate/internal/platform/logger"
	"mintgate/internal/platform/metrics"
	"mintgate/internal/platform/postgres"
	"mintgate/internal/platform/redis"
	httptransport "mintgate/internal/transport/http"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ledgerStore := ledger.NewPostgres(db)
	if err := ledgerStore.EnsureSchema(ctx); err != nil {
		return err
	}

	var store ports.LedgerStore = ledgerStore
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		store = ledger.NewCached(store, rdb.Client, log)
		log.Info("ledger cache enabled")
	}

	wallet, err := arweave.LoadWallet(cfg.WalletPath)
	if err != nil {
		return err
	}
	gatewayClient := arweave.NewClient(cfg.GatewayURL, cfg.GatewayTimeout)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	publisher := arweave.NewPublisher(wallet, gatewayClient,
		arweave.WithLogger(log),
		arweave.WithMetrics(m),
		arweave.WithRewardMultiplier(cfg.RewardMultiplier),
	)
	runner := generate.NewRunner(cfg.GeneratorCommand, cfg.AssetDir, cfg.OutputDir, cfg.MetadataConfigPath, log)

	gateway, err := discord.NewGateway(cfg.DiscordToken, cfg.DiscordGuildID, log, cfg.DiscordTimeout)
	if err != nil {
		return err
	}
	notifier := discord.NewNotifier(gateway.Session(), cfg.GatewayURL, log)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithWorkers(cfg.Workers),
		service.WithQueueCapacity(cfg.QueueCapacity),
	}
	if len(cfg.KafkaBrokers) > 0 {
		auditPublisher, err := kafka.NewPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		defer auditPublisher.Close()
		opts = append(opts, service.WithAuditPublisher(auditPublisher))
		log.Info("audit publisher enabled", "topic", cfg.AuditTopic)
	}

	svc, err := service.New(store, runner, publisher, notifier, opts...)
	if err != nil {
		return err
	}
	gateway.Attach(svc)

	jwtService := jwttoken.NewJWTService(cfg.AdminJWTSigningKey, "mintgate", "mintgate-admin")
	handler := httptransport.New(svc, gatewayClient, cfg.RelaySecretHash, log)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:       log,
		JWTValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		Registry:     registry,
		Health: func(r *http.Request) error {
			return db.PingContext(r.Context())
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting mintgate",
		"addr", cfg.Addr,
		"gateway", cfg.GatewayURL,
		"workers", cfg.Workers,
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return svc.Run(ctx)
	})
	group.Go(func() error {
		return gateway.Run(ctx)
	})
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
