package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kingo/internal/config"
	"kingo/internal/journal"
	"kingo/internal/oracle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var rec journal.Recorder
	if cfg.DatabaseURL != "" {
		pg, err := journal.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		rec = pg
	} else {
		logger.Warn("no DATABASE_URL, price history kept in memory only")
		rec = journal.NewMemory(4096)
	}

	hub := oracle.NewHub(cfg.PriceMaxAge)
	if err := oracle.SeedHub(hub, oracle.DefaultSeed(), cfg.FeedBaseURL); err != nil {
		logger.Error("seed feeds failed", "err", err)
		os.Exit(1)
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("KINGO_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := pollOnce(ctx, logger, hub, rec); err != nil {
			logger.Error("poll failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.WorkerPollEvery)
	defer ticker.Stop()

	logger.Info("worker started", "poll_every", cfg.WorkerPollEvery.String(), "feeds", len(hub.AssetIDs()))
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := pollOnce(ctx, logger, hub, rec); err != nil {
				logger.Error("poll failed", "err", err)
				continue
			}
		}
	}
}

// pollOnce reads every registered feed and appends a price point per
// asset. A single bad feed is logged and skipped so the rest of the
// round still lands.
func pollOnce(ctx context.Context, logger *slog.Logger, hub *oracle.Hub, rec journal.Recorder) error {
	now := time.Now().UTC()
	recorded := 0
	for _, assetID := range hub.AssetIDs() {
		price, err := hub.CurrentPrice(ctx, assetID)
		if err != nil {
			logger.Warn("price read failed", "asset", assetID, "err", err)
			continue
		}
		if err := rec.RecordPrice(ctx, journal.PricePoint{
			AssetID:     assetID,
			PriceMicros: price,
			TickAt:      now,
		}); err != nil {
			return err
		}
		recorded++
	}
	logger.Info("price poll complete", "recorded", recorded)
	return nil
}
