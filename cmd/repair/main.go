// Command repair runs the match consistency repair pass from the command
// line, outside the API server. Intended for cron and for one-off cleanup
// after imports.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/fintrack/recon-backend/internal/application/service"
	"github.com/fintrack/recon-backend/internal/infrastructure/config"
	"github.com/fintrack/recon-backend/internal/infrastructure/logging"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: RECON_CONFIG, then ./config.yaml, then env)")
	userID := flag.Int64("user", 0, "user id to repair (required)")
	dryRun := flag.Bool("dry-run", false, "report inconsistencies without fixing them")
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

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "repair")

	if *userID <= 0 {
		logger.Error("-user is required")
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	repair := service.NewRepairService(store, logger)
	ctx := context.Background()

	if *dryRun {
		orphans, err := repair.FindOrphans(ctx, *userID)
		if err != nil {
			logger.Error("scan failed", "error", err)
			os.Exit(1)
		}
		for _, o := range orphans {
			logger.Warn("orphan", "side", o.Side, "record", o.RecordID, "ref", o.Ref, "reason", o.Reason)
		}
		logger.Info("dry run complete", "user", *userID, "orphans", len(orphans))
		return
	}

	result, err := repair.Repair(ctx, *userID)
	if err != nil {
		logger.Error("repair failed", "error", err)
		os.Exit(1)
	}
	logger.Info("repair complete",
		"user", *userID,
		"repaired", result.Repaired,
		"orphaned_bank_fixed", result.OrphanedBankFixed,
		"orphaned_ledger_fixed", result.OrphanedLedgerFixed,
		"duplicates_deleted", result.DuplicatesDeleted)
}
