package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"throne/internal/economy"
)

type BotConfig struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`

	StorePath   string `env:"THRONE_STORE_PATH" envDefault:"./data.json"`
	DatabaseURL string `env:"DATABASE_URL"`

	Addr string `env:"THRONE_HTTP_ADDR" envDefault:":10000"`

	StartingBalance int64         `env:"THRONE_STARTING_BALANCE" envDefault:"1000"`
	HouseEdge       float64       `env:"THRONE_HOUSE_EDGE"       envDefault:"0"`
	NoticeTTL       time.Duration `env:"THRONE_NOTICE_TTL"       envDefault:"3s"`
	ImagePath       string        `env:"THRONE_IMAGE_PATH"       envDefault:"./assets/images/king.jpg"`

	// Seed makes combat deterministic when set.
	Seed     *int64     `env:"THRONE_SEED"`
	LogLevel slog.Level `env:"THRONE_LOG_LEVEL" envDefault:"info"`
}

type CLIConfig struct {
	StorePath   string `env:"THRONE_STORE_PATH" envDefault:"./data.json"`
	DatabaseURL string `env:"DATABASE_URL"`
	APIBaseURL  string `env:"THRONE_API_URL"    envDefault:"http://localhost:10000"`
}

func LoadBotFromEnv() (BotConfig, error) {
	return loadBot(nil)
}

func loadBot(environ map[string]string) (BotConfig, error) {
	var cfg BotConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if port := strings.TrimSpace(lookup(environ, "PORT")); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Addr = port
	}
	cfg.DiscordToken = strings.TrimSpace(cfg.DiscordToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	if cfg.DiscordToken == "" {
		return cfg, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if cfg.StartingBalance <= 0 {
		return cfg, fmt.Errorf("THRONE_STARTING_BALANCE must be positive, got %d", cfg.StartingBalance)
	}
	if cfg.HouseEdge < 0 || cfg.HouseEdge > economy.MaxHouseEdge {
		return cfg, fmt.Errorf("THRONE_HOUSE_EDGE must be in [0, %v], got %v", economy.MaxHouseEdge, cfg.HouseEdge)
	}
	if cfg.NoticeTTL <= 0 {
		return cfg, fmt.Errorf("THRONE_NOTICE_TTL must be positive, got %s", cfg.NoticeTTL)
	}
	if cfg.DatabaseURL == "" && strings.TrimSpace(cfg.StorePath) == "" {
		return cfg, fmt.Errorf("THRONE_STORE_PATH or DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	var cfg CLIConfig
	_ = env.Parse(&cfg)
	if cfg.StorePath == "" {
		cfg.StorePath = "./data.json"
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:10000"
	}
	return cfg
}

func lookup(environ map[string]string, key string) string {
	if environ != nil {
		return environ[key]
	}
	return os.Getenv(key)
}
