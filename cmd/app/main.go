// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-gateway-service/internal/config"
	pg "payment-gateway-service/internal/infra/db/postgres"
	"payment-gateway-service/internal/infra/gateway"
	"payment-gateway-service/internal/infra/logging"
	"payment-gateway-service/internal/infra/metrics"
	red "payment-gateway-service/internal/infra/redis"
	"payment-gateway-service/internal/infra/sched"
	"payment-gateway-service/internal/infra/web"
	"payment-gateway-service/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	broadcaster := red.NewBroadcaster(redisClient)

	// ---- Gateways ----
	registry, err := gateway.NewRegistry(cfg.Payment)
	if err != nil {
		log.Fatalf("gateway registry: %v", err)
	}
	logger.Info().Strs("gateways", registry.Enabled()).Str("default", cfg.Payment.DefaultGateway).Msg("gateways configured")

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, orderRepo, subRepo, registry, cfg.Payment, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, paymentRepo, orderRepo, registry, cfg.Payment, logger)
	refundUC := usecase.NewRefundUseCase(refundRepo, paymentRepo, registry, cfg.Payment, logger)
	webhookUC := usecase.NewWebhookUseCase(paymentRepo, orderRepo, subRepo, planRepo, refundRepo, registry, broadcaster, logger)
	notifUC := usecase.NewNotificationUseCase(paymentRepo, broadcaster, logger)

	// ---- Scheduled jobs ----
	jobs := []sched.Job{
		sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, cfg.Payment.OrderExpiry, txManager, paymentRepo, orderRepo, logger),
		sched.NewPendingVerifier(cfg.Scheduler.VerificationInterval, cfg.Scheduler.Retry.BatchSize, paymentRepo, orderRepo, registry, logger),
		sched.NewRetryWorker(cfg.Scheduler.RetryInterval, cfg.Scheduler.Retry, paymentRepo, paymentUC, logger),
		sched.NewNotificationWorker(cfg.Scheduler.BroadcastInterval, 0, notifUC, logger),
		sched.NewRenewalWorker(cfg.Scheduler.RenewalInterval, 0, subRepo, planRepo, paymentUC, logger),
	}
	runner := sched.NewRunner(jobs, locker, cfg.Scheduler.StartupDelay, logger)
	runner.Start(ctx)

	// ---- HTTP ----
	srv := web.NewServer(paymentUC, subUC, refundUC, webhookUC, cfg.Server, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	runner.Stop()
	cancel()
}
