package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kingo/internal/api"
	"kingo/internal/auth"
	"kingo/internal/config"
	"kingo/internal/game"
	"kingo/internal/journal"
	"kingo/internal/oracle"
	"kingo/internal/vault"
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

	minter, err := auth.NewMinter(cfg.AuthSecret)
	if err != nil {
		logger.Error("auth setup failed", "err", err)
		os.Exit(1)
	}

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
		logger.Warn("no DATABASE_URL, journaling in memory")
		rec = journal.NewMemory(4096)
	}

	hub := oracle.NewHub(cfg.PriceMaxAge)
	seed := oracle.DefaultSeed()
	if cfg.StartupSeedFeeds {
		if err := oracle.SeedHub(hub, seed, cfg.FeedBaseURL); err != nil {
			logger.Error("seed feeds failed", "err", err)
			os.Exit(1)
		}
	}

	var transferor game.Transferor
	if cfg.VaultBaseURL != "" {
		transferor = vault.NewHTTPVault(cfg.VaultBaseURL, cfg.VaultAPIKey)
	} else {
		bank := vault.NewBank()
		if cfg.LocalRewardUnits > 0 {
			bank.Mint(cfg.LocalRewardToken, cfg.Organizer, cfg.LocalRewardUnits*game.MicrosPerUnit)
			logger.Info("local bank funded", "token", cfg.LocalRewardToken, "units", cfg.LocalRewardUnits)
		}
		transferor = bank
	}

	g, err := game.New(game.Config{
		GameDuration:    cfg.GameDuration,
		DisputeDuration: cfg.DisputeDuration,
		SwapCooldown:    cfg.SwapCooldown,
		AllotmentMicros: cfg.AllotmentUnits * game.MicrosPerUnit,
		FeeBps:          cfg.FeeBps,
	}, game.Deps{
		Prices:    hub,
		Vault:     transferor,
		Journal:   rec,
		Logger:    logger,
		Organizer: cfg.Organizer,
	})
	if err != nil {
		logger.Error("game init failed", "err", err)
		os.Exit(1)
	}

	if cfg.StartupSeedFeeds {
		for _, e := range seed {
			if _, err := g.RegisterAsset(ctx, cfg.Organizer, e.AssetID); err != nil {
				logger.Error("asset register failed", "asset", e.AssetID, "err", err)
				os.Exit(1)
			}
		}
	}

	server := api.New(logger, minter, g, rec)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("kingo api listening", "addr", cfg.Addr,
		"game_duration", cfg.GameDuration.String(),
		"dispute_duration", cfg.DisputeDuration.String(),
		"swap_cooldown", cfg.SwapCooldown.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
