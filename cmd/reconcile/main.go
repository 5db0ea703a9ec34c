// Command reconcile runs one reconciliation pass from the terminal and
// prints a summary of the outcomes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ledgerlink/internal/adapters/platforms/omsync"
	"ledgerlink/internal/adapters/platforms/paygate"
	"ledgerlink/internal/adapters/platforms/shopfront"
	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/application/service"
	"ledgerlink/internal/cli"
	"ledgerlink/internal/infrastructure/config"
	"ledgerlink/internal/infrastructure/logging"
	"ledgerlink/internal/infrastructure/storage"
)

func main() {
	var (
		configFile   = flag.String("config", "config.yaml", "Configuration file path")
		startFlag    = flag.String("start", "", "Window start (YYYY-MM-DD, overrides -days)")
		endFlag      = flag.String("end", "", "Window end (YYYY-MM-DD, default now)")
		lookbackDays = flag.Int("days", 7, "Number of days to look back")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	logger := logging.NewLogger(cfg.Observability.Logging)

	start, end, err := window(*startFlag, *endFlag, *lookbackDays)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

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

	report, err := engine.Reconcile(context.Background(), start, end)
	if err != nil {
		logger.Error("reconciliation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cli.PrintRunSummary(report, start, end)
}

func window(startFlag, endFlag string, lookbackDays int) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endFlag != "" {
		parsed, err := time.Parse("2006-01-02", endFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -lookbackDays)
	if startFlag != "" {
		parsed, err := time.Parse("2006-01-02", startFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
		}
		start = parsed
	}

	return start, end, nil
}

