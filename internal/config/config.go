package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
)

// Config is everything the server reads from the environment. A local .env
// file is honored when present.
type Config struct {
	ListenAddr  string
	RedisAddr   string // empty: open ledger, everyone plays for free
	PostgresDSN string // empty: finished games are not archived

	Rules engine.Rules
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:  envOr("LISTEN_ADDR", ":8080"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		PostgresDSN: os.Getenv("DATABASE_URL"),
		Rules:       engine.DefaultRules(),
	}

	var err error
	if cfg.Rules.MinPlayers, err = intEnvOr("MIN_PLAYERS", cfg.Rules.MinPlayers); err != nil {
		return nil, err
	}
	if cfg.Rules.ComboLength, err = intEnvOr("COMBO_LENGTH", cfg.Rules.ComboLength); err != nil {
		return nil, err
	}
	if cfg.Rules.RoundSeconds, err = intEnvOr("ROUND_SECONDS", cfg.Rules.RoundSeconds); err != nil {
		return nil, err
	}
	if cfg.Rules.RevealSeconds, err = intEnvOr("REVEAL_SECONDS", cfg.Rules.RevealSeconds); err != nil {
		return nil, err
	}

	// Fail startup, not lobby creation, on nonsense defaults.
	if _, err := engine.NewState(cfg.Rules); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnvOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}
