package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerlink/internal/adapters/platforms/omsync"
	"ledgerlink/internal/adapters/platforms/paygate"
	"ledgerlink/internal/adapters/platforms/shopfront"
	"ledgerlink/internal/api"
	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/application/service"
	"ledgerlink/internal/infrastructure/config"
	"ledgerlink/internal/infrastructure/logging"
	"ledgerlink/internal/infrastructure/storage"
	"ledgerlink/internal/observability"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	logger := logging.NewLogger(cfg.Observability.Logging)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	profiles := service.ProfilesFromConfig(cfg.Matching)
	if err := profiles.Validate(); err != nil {
		logger.Error("invalid matching configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	adapters := recon.Adapters{
		Storefront: shopfront.NewClient(shopfront.Config{
			BaseURL:  cfg.Platforms.Storefront.BaseURL,
			APIToken: cfg.Platforms.Storefront.APIToken,
			PageSize: cfg.Platforms.Storefront.PageSize,
		}, logger),
		PayGateway: paygate.NewClient(paygate.Config{
			BaseURL:  cfg.Platforms.PayGateway.BaseURL,
			APIToken: cfg.Platforms.PayGateway.APIToken,
			PageSize: cfg.Platforms.PayGateway.PageSize,
		}, logger),
		OrderMgmt: omsync.NewClient(omsync.Config{
			BaseURL:  cfg.Platforms.OrderMgmt.BaseURL,
			APIToken: cfg.Platforms.OrderMgmt.APIToken,
			PageSize: cfg.Platforms.OrderMgmt.PageSize,
		}, logger),
	}

	engine := recon.NewEngine(adapters, store, profiles, logger)
	metrics := observability.NewMetrics()
	svc := service.NewRunService(engine, store, metrics, logger)

	serverCfg := api.DefaultConfig()
	if cfg.Server.Address != "" {
		serverCfg.Address = cfg.Server.Address
	}
	server := api.NewServer(serverCfg, svc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
