package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadBotDefaults(t *testing.T) {
	cfg, err := loadBot(map[string]string{"DISCORD_TOKEN": " tok "})
	if err != nil {
		t.Fatalf("loadBot: %v", err)
	}
	if cfg.DiscordToken != "tok" {
		t.Fatalf("token = %q", cfg.DiscordToken)
	}
	if cfg.Addr != ":10000" || cfg.StorePath != "./data.json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StartingBalance != 1000 || cfg.HouseEdge != 0 || cfg.NoticeTTL != 3*time.Second {
		t.Fatalf("unexpected economy defaults: %+v", cfg)
	}
	if cfg.Seed != nil {
		t.Fatalf("seed should be unset, got %d", *cfg.Seed)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
}

func TestLoadBotOverrides(t *testing.T) {
	cfg, err := loadBot(map[string]string{
		"DISCORD_TOKEN":     "tok",
		"PORT":              "8080",
		"THRONE_HTTP_ADDR":  ":9999",
		"THRONE_HOUSE_EDGE": "0.05",
		"THRONE_NOTICE_TTL": "5s",
		"THRONE_SEED":       "42",
		"THRONE_LOG_LEVEL":  "debug",
		"DATABASE_URL":      "postgres://localhost/throne",
	})
	if err != nil {
		t.Fatalf("loadBot: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("PORT should override the address, got %q", cfg.Addr)
	}
	if cfg.HouseEdge != 0.05 || cfg.NoticeTTL != 5*time.Second {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Fatalf("seed = %v", cfg.Seed)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
}

func TestLoadBotValidation(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{"missing token", map[string]string{}, "DISCORD_TOKEN"},
		{"edge too high", map[string]string{"DISCORD_TOKEN": "t", "THRONE_HOUSE_EDGE": "0.6"}, "THRONE_HOUSE_EDGE"},
		{"negative balance", map[string]string{"DISCORD_TOKEN": "t", "THRONE_STARTING_BALANCE": "-1"}, "THRONE_STARTING_BALANCE"},
		{"bad duration", map[string]string{"DISCORD_TOKEN": "t", "THRONE_NOTICE_TTL": "soon"}, "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadBot(tt.environ)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
