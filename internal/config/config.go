package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr             string
	DatabaseURL      string
	AuthSecret       string
	Organizer        string
	GameDuration     time.Duration
	DisputeDuration  time.Duration
	SwapCooldown     time.Duration
	AllotmentUnits   int64
	FeeBps           int64
	PriceMaxAge      time.Duration
	FeedBaseURL      string
	VaultBaseURL     string
	VaultAPIKey      string
	WorkerPollEvery  time.Duration
	StartupSeedFeeds bool

	// Local-bank mode only: reward tokens minted to the organizer at boot
	// so a game without a custodian service can still fund a prize.
	LocalRewardToken string
	LocalRewardUnits int64
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("KINGO_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:             addr,
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AuthSecret:       strings.TrimSpace(os.Getenv("KINGO_AUTH_SECRET")),
		Organizer:        envDefault("KINGO_ORGANIZER", "organizer"),
		GameDuration:     envDurationDefault("KINGO_GAME_DURATION", 7*24*time.Hour),
		DisputeDuration:  envDurationDefault("KINGO_DISPUTE_DURATION", 24*time.Hour),
		SwapCooldown:     envDurationDefault("KINGO_SWAP_COOLDOWN", 5*time.Minute),
		AllotmentUnits:   envInt64Default("KINGO_ALLOTMENT_UNITS", 100_000),
		FeeBps:           envInt64Default("KINGO_SWAP_FEE_BPS", 20),
		PriceMaxAge:      envDurationDefault("KINGO_PRICE_MAX_AGE", time.Hour),
		FeedBaseURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("KINGO_FEED_BASE_URL")), "/"),
		VaultBaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("KINGO_VAULT_BASE_URL")), "/"),
		VaultAPIKey:      strings.TrimSpace(os.Getenv("KINGO_VAULT_API_KEY")),
		WorkerPollEvery:  envDurationDefault("KINGO_WORKER_POLL_EVERY", time.Minute),
		StartupSeedFeeds: envBoolDefault("KINGO_STARTUP_SEED_FEEDS", true),
		LocalRewardToken: envDefault("KINGO_LOCAL_REWARD_TOKEN", "REWARD"),
		LocalRewardUnits: envInt64Default("KINGO_LOCAL_REWARD_UNITS", 10_000),
	}
	if cfg.AuthSecret == "" {
		return cfg, fmt.Errorf("KINGO_AUTH_SECRET is required")
	}
	if cfg.AllotmentUnits <= 0 {
		return cfg, fmt.Errorf("KINGO_ALLOTMENT_UNITS must be > 0")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("KNG_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
