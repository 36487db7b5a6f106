package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/slatemate/social-scraper/internal/collector"
	"github.com/slatemate/social-scraper/internal/config"
	"github.com/slatemate/social-scraper/internal/dashboard"
	"github.com/slatemate/social-scraper/internal/domain"
	"github.com/slatemate/social-scraper/internal/storage"
)

const metadataFile = "metadata.csv"

func main() {
	godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	platform := flag.String("platform", "", "platform to scrape: instagram, youtube, or mock")
	target := flag.String("target", "", "search term or hashtag to scrape")
	limit := flag.Int("limit", 50, "maximum number of posts to retrieve")
	flag.Parse()

	if *platform == "" || *target == "" {
		fmt.Fprintln(os.Stderr, "usage: scraper --platform <instagram|youtube|mock> --target <query> [--limit N]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load("config.json")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	scraper, err := collector.New(domain.Platform(*platform), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scraper", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting scrape", "platform", *platform, "target", *target, "limit", *limit)
	records, err := scraper.Scrape(ctx, *target, *limit)
	if err != nil {
		logger.Error("scrape failed", "error", err)
	}
	if len(records) == 0 {
		logger.Warn("no posts were scraped")
	}

	if len(records) > 0 {
		sink := &storage.CSVSink{Path: metadataFile, Log: logger}
		total, err := sink.Append(records)
		if err != nil {
			logger.Error("saving metadata failed", "error", err)
		} else {
			logger.Info("metadata saved", "new", len(records), "total", total)
		}

		if dsn := os.Getenv("PG_DSN"); dsn != "" {
			mirrorToPostgres(ctx, dsn, records, logger)
		}
	}

	logger.Info("scrape complete", "platform", *platform, "target", *target, "posts", len(records))

	if port := os.Getenv("PORT"); port != "" {
		logger.Info("starting dashboard", "port", port)
		if err := dashboard.StartServer(metadataFile, port); err != nil {
			logger.Error("dashboard failed", "error", err)
			os.Exit(1)
		}
	}
}

// mirrorToPostgres is best effort: the CSV file is the system of record, so
// a failed mirror logs and moves on.
func mirrorToPostgres(ctx context.Context, dsn string, records []domain.PostRecord, logger *slog.Logger) {
	pg, err := storage.NewPostgresSink(ctx, dsn, logger)
	if err != nil {
		logger.Error("postgres sink unavailable", "error", err)
		return
	}
	defer pg.Close()
	if err := pg.Append(ctx, records); err != nil {
		logger.Error("mirroring to postgres failed", "error", err)
	}
}
