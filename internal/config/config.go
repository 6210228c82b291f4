// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingToken is returned when no bot credential is configured.
var ErrMissingToken = errors.New("missing bot token: set DISCORD_TOKEN (or DISCORD_BOT_TOKEN)")

// Config holds all application configuration.
type Config struct {
	DiscordToken     string
	GuildID          string // empty registers slash commands globally
	SummaryChannelID string // empty disables the public summary
	CommandPrefix    string
	ReplyTimeout     time.Duration
	Port             string
	ConsoleEnabled   bool
	ConsoleOrigins   []string // empty accepts loopback origins only
	Delivery         DeliveryConfig
}

// DeliveryConfig selects where completed records go.
type DeliveryConfig struct {
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
	FilePath       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := strings.TrimSpace(getEnv("DISCORD_TOKEN", ""))
	if token == "" {
		token = strings.TrimSpace(getEnv("DISCORD_BOT_TOKEN", ""))
	}

	cfg := &Config{
		DiscordToken:     token,
		GuildID:          getEnv("GUILD_ID", ""),
		SummaryChannelID: getEnv("SUMMARY_CHANNEL_ID", ""),
		CommandPrefix:    getEnv("COMMAND_PREFIX", "!"),
		ReplyTimeout:     getEnvSeconds("REPLY_TIMEOUT_SECONDS", 180*time.Second),
		Port:             getEnv("PORT", "8080"),
		ConsoleEnabled:   getEnvBool("CONSOLE_ENABLED", false),
		ConsoleOrigins:   getEnvList("CONSOLE_ALLOWED_ORIGINS"),
		Delivery: DeliveryConfig{
			WebhookURL:     getEnv("WEBHOOK_URL", ""),
			WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
			WebhookTimeout: getEnvSeconds("WEBHOOK_TIMEOUT_SECONDS", 10*time.Second),
			FilePath:       getEnv("LOG_FILE_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	if c.CommandPrefix == "" {
		return fmt.Errorf("COMMAND_PREFIX cannot be empty")
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("REPLY_TIMEOUT_SECONDS must be > 0")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Delivery.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT_SECONDS must be > 0")
	}
	if c.Delivery.WebhookURL != "" {
		u, err := url.Parse(c.Delivery.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an absolute http(s) URL")
		}
	}
	return nil
}

// Targets lists the enabled delivery targets for logging.
func (c *Config) Targets() []string {
	var out []string
	if c.Delivery.WebhookURL != "" {
		out = append(out, "webhook")
	}
	if c.Delivery.FilePath != "" {
		out = append(out, "file")
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvList reads a comma-separated list, skipping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvSeconds reads a whole number of seconds.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	n := getEnvInt(key, -1)
	if n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
