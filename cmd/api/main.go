package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fintrack/recon-backend/internal/api"
	"github.com/fintrack/recon-backend/internal/application/service"
	"github.com/fintrack/recon-backend/internal/domain/matcher"
	"github.com/fintrack/recon-backend/internal/domain/scorer"
	"github.com/fintrack/recon-backend/internal/infrastructure/config"
	"github.com/fintrack/recon-backend/internal/infrastructure/logging"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: RECON_CONFIG, then ./config.yaml, then env)")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrEnv()
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	matcherCfg := matcher.Config{
		Scorer: scorer.Config{
			ExactDateToleranceDays: cfg.Recon.ExactDateToleranceDays,
			FuzzyWindowDays:        cfg.Recon.FuzzyWindowDays,
			MinNameSimilarity:      scorer.DefaultConfig().MinNameSimilarity,
		},
		MinConfidence: cfg.Recon.MinConfidence,
	}

	recon := service.NewReconService(store, matcherCfg, logging.NewLoggerWithSystem(cfg.Observability.Logging, "recon"))
	repair := service.NewRepairService(store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "repair"))
	ruleService := service.NewRuleService(store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "rules"))

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, recon, repair, ruleService, logger)

	// Serve until interrupted, then drain in-flight requests.
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
