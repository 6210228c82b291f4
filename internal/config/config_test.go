package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "DISCORD_BOT_TOKEN", "GUILD_ID", "SUMMARY_CHANNEL_ID", "COMMAND_PREFIX",
		"REPLY_TIMEOUT_SECONDS", "PORT", "CONSOLE_ENABLED", "WEBHOOK_URL", "WEBHOOK_SECRET",
		"WEBHOOK_TIMEOUT_SECONDS", "LOG_FILE_PATH", "CONSOLE_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "abc")
	t.Setenv("COMMAND_PREFIX", "!")
	t.Setenv("PORT", "8080")
	t.Setenv("REPLY_TIMEOUT_SECONDS", "180")
	t.Setenv("WEBHOOK_TIMEOUT_SECONDS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReplyTimeout != 180*time.Second {
		t.Errorf("Expected 180s reply timeout, got %s", cfg.ReplyTimeout)
	}
	if cfg.Delivery.WebhookTimeout != 10*time.Second {
		t.Errorf("Expected 10s webhook timeout, got %s", cfg.Delivery.WebhookTimeout)
	}
	if len(cfg.ConsoleOrigins) != 0 {
		t.Errorf("Expected no console origins, got %v", cfg.ConsoleOrigins)
	}
	if len(cfg.Targets()) != 0 {
		t.Errorf("Expected no delivery targets, got %v", cfg.Targets())
	}
}

func TestLoadFallbackToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_BOT_TOKEN", "fallback")
	t.Setenv("COMMAND_PREFIX", "!")
	t.Setenv("PORT", "8080")
	t.Setenv("REPLY_TIMEOUT_SECONDS", "30")
	t.Setenv("WEBHOOK_TIMEOUT_SECONDS", "5")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/activity")
	t.Setenv("LOG_FILE_PATH", "./data/activity.csv")
	t.Setenv("CONSOLE_ENABLED", "yes")
	t.Setenv("CONSOLE_ALLOWED_ORIGINS", " dash.example.com , ,localhost:*")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DiscordToken != "fallback" {
		t.Errorf("Expected fallback token, got %q", cfg.DiscordToken)
	}
	if cfg.ReplyTimeout != 30*time.Second {
		t.Errorf("Expected 30s, got %s", cfg.ReplyTimeout)
	}
	if !cfg.ConsoleEnabled {
		t.Error("Expected console enabled")
	}
	if got := cfg.ConsoleOrigins; len(got) != 2 || got[0] != "dash.example.com" || got[1] != "localhost:*" {
		t.Errorf("Unexpected console origins %v", got)
	}
	if got := cfg.Targets(); len(got) != 2 {
		t.Errorf("Expected webhook and file targets, got %v", got)
	}
}

func TestLoadMissingToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Expected ErrMissingToken, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DiscordToken:  "abc",
			CommandPrefix: "!",
			ReplyTimeout:  time.Minute,
			Port:          "8080",
			Delivery:      DeliveryConfig{WebhookTimeout: 10 * time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.CommandPrefix = "" }},
		{"zero timeout", func(c *Config) { c.ReplyTimeout = 0 }},
		{"empty port", func(c *Config) { c.Port = "" }},
		{"relative webhook", func(c *Config) { c.Delivery.WebhookURL = "/hook" }},
		{"ftp webhook", func(c *Config) { c.Delivery.WebhookURL = "ftp://example.com/hook" }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
