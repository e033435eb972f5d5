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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kariuki00743/safipay/api/routes"
	"github.com/kariuki00743/safipay/internal/disputes"
	"github.com/kariuki00743/safipay/internal/notifications"
	"github.com/kariuki00743/safipay/internal/transactions"
	mpesawebhook "github.com/kariuki00743/safipay/internal/webhooks/mpesa"
	"github.com/kariuki00743/safipay/pkg/config"
	"github.com/kariuki00743/safipay/pkg/db"
	"github.com/kariuki00743/safipay/pkg/logger"
	"github.com/kariuki00743/safipay/pkg/metrics"
	"github.com/kariuki00743/safipay/pkg/migrate"
	"github.com/kariuki00743/safipay/pkg/mpesa"
	"github.com/kariuki00743/safipay/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	gateway, err := mpesa.NewClient(cfg.MPesa, mpesa.WithObserver(paymentMetrics))
	if err != nil {
		return err
	}

	dispatcher, err := notifications.NewDispatcher(
		notifications.NewSender(cfg.Notifications, logg),
		cfg.App.FrontendURL,
		paymentMetrics,
		logg,
	)
	if err != nil {
		return err
	}

	txService, err := transactions.NewService(transactions.ServiceParams{
		Repo:     transactions.NewRepository(dbClient.DB()),
		Disputes: disputes.NewRepository(dbClient.DB()),
		Gateway:  gateway,
		Notifier: dispatcher,
		TxRunner: dbClient,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	guard, err := mpesawebhook.NewDeliveryGuard(redisClient, cfg.Idempotency.CallbackTTL)
	if err != nil {
		return err
	}
	reconciler, err := mpesawebhook.NewReconciler(mpesawebhook.ReconcilerParams{
		Payments: txService,
		Guard:    guard,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"mpesa_env": cfg.MPesa.Env,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, txService, reconciler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
