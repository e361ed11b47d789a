// wppost publishes parsed articles to a Telegram channel and records
// their IDs in the posted ledger. TELEGRAM_TOKEN and TELEGRAM_CHANNEL
// must be set; DATABASE_URL switches the ledger to Postgres.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"wpgram/internal/config"
	"wpgram/internal/logger"
	"wpgram/internal/metrics"
	"wpgram/internal/poster"
	"wpgram/internal/storage"
)

func main() {
	cfg := config.Load()

	parsedDir := flag.String("parsed-dir", cfg.OutputDir, "directory with parsed articles")
	stateFile := flag.String("state-file", cfg.PostedStateFile, "posted-IDs ledger file")
	limit := flag.IntP("limit", "n", cfg.Limit, "maximum articles to post, 0 = all unposted")
	watermarkScale := flag.Float64("watermark-scale", cfg.WatermarkScale, "watermark width relative to the photo")
	debug := flag.Bool("debug", cfg.Debug, "verbose logging")
	flag.Parse()

	cfg.OutputDir = *parsedDir
	cfg.PostedStateFile = *stateFile
	cfg.Limit = *limit
	cfg.WatermarkScale = *watermarkScale
	cfg.Debug = *debug

	log := logger.New(os.Stderr, cfg.Debug)
	metrics.StartServer(log)

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Error("cannot open posted store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	p, err := poster.New(cfg, store, log)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	posted, err := p.Run(ctx)
	if err != nil {
		log.Error("posting run failed", "posted", posted, "error", err)
		os.Exit(1)
	}
	log.Info("posting run finished", "posted", posted)
}

// openStore picks the Postgres ledger when DATABASE_URL is set and falls
// back to the JSON file ledger otherwise.
func openStore(cfg *config.Config, log *slog.Logger) (poster.PostedStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresLedger(cfg.DatabaseURL, log.With("component", "postgres"))
		if err == nil {
			return pg, func() {
				if terr := pg.Trim(cfg.LedgerRetention); terr != nil {
					log.Warn("ledger trim failed", "error", terr)
				}
				_ = pg.Close()
			}, nil
		}
		log.Warn("postgres ledger unavailable, using file ledger", "error", err)
	}
	return poster.NewFileStore(cfg.PostedStateFile, cfg.LedgerRetention, log), func() {}, nil
}
