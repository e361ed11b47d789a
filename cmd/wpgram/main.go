// wpgram fetches WordPress posts for one category, translates them and
// writes per-article directories plus a catalog. It prints a single
// NEW_ARTICLES_STATUS line so wrapping scripts know whether to run the
// posting stage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"wpgram/internal/app"
	"wpgram/internal/config"
	"wpgram/internal/logger"
	"wpgram/internal/metrics"
)

func main() {
	cfg := config.Load()

	baseURL := flag.String("base-url", cfg.BaseURL, "WordPress site base URL")
	slug := flag.String("slug", cfg.Slug, "category slug to pull")
	limit := flag.IntP("limit", "n", cfg.Limit, "maximum articles to process, 0 = all fetched")
	lang := flag.StringP("lang", "l", cfg.Lang, "translation target language, empty disables translation")
	outDir := flag.String("out-dir", cfg.OutputDir, "directory for parsed articles and the catalog")
	stateFile := flag.String("posted-state-file", cfg.PostedStateFile, "posted-IDs ledger, already-posted articles are skipped")
	stopwordsFile := flag.String("stopwords-file", cfg.StopwordsFile, "file with one stop phrase per line")
	sitesFile := flag.String("sites", "", "optional YAML file describing sites")
	site := flag.String("site", "", "site name from the sites file")
	debug := flag.Bool("debug", cfg.Debug, "verbose logging")
	flag.Parse()

	cfg.BaseURL = *baseURL
	cfg.Slug = *slug
	cfg.Limit = *limit
	cfg.Lang = *lang
	cfg.OutputDir = *outDir
	cfg.PostedStateFile = *stateFile
	cfg.StopwordsFile = *stopwordsFile
	cfg.Debug = *debug

	log := logger.New(os.Stderr, cfg.Debug)

	if *sitesFile != "" {
		if err := cfg.LoadSites(*sitesFile); err != nil {
			log.Error("cannot load sites file", "error", err)
			os.Exit(1)
		}
	}
	if *site != "" {
		s := cfg.Site(*site)
		cfg.BaseURL = s.BaseURL
		cfg.Slug = s.Slug
		if s.Lang != "" {
			cfg.Lang = s.Lang
		}
	}

	metrics.StartServer(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("parse run starting", "site", cfg.BaseURL, "slug", cfg.Slug, "lang", cfg.Lang, "limit", cfg.Limit)

	hasNew, err := app.New(cfg, log).Run(ctx)
	if err != nil {
		log.Error("parse run failed", "error", err)
		fmt.Println("NEW_ARTICLES_STATUS:false")
		os.Exit(1)
	}

	fmt.Printf("NEW_ARTICLES_STATUS:%t\n", hasNew)
}
