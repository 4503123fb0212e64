package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the server.
type Config struct {
	HTTPAddr         string
	DatabaseURL      string
	Timezone         string
	ReminderInterval time.Duration
	DigestInterval   time.Duration

	SMTP     SMTPConfig
	Telegram TelegramConfig
	WhatsApp WebhookConfig
	SMS      WebhookConfig
	GeKyChat WebhookConfig
}

// SMTPConfig configures the email notification channel. Empty host
// disables the channel.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// TelegramConfig configures the Telegram notification channel. Empty
// token disables the channel.
type TelegramConfig struct {
	Token string
}

// WebhookConfig configures a JSON-webhook notification channel
// (WhatsApp, SMS, GeKyChat). Empty URL disables the channel.
type WebhookConfig struct {
	URL   string
	Token string
}

// Load reads configuration from the environment with sane defaults.
// A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", "blacktask.db"),
		Timezone:         getEnv("TIMEZONE", "Local"),
		ReminderInterval: getEnvAsDuration("REMINDER_INTERVAL", time.Minute),
		DigestInterval:   getEnvAsDuration("DIGEST_INTERVAL", time.Hour),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@blacktask.local"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_TOKEN", ""),
		},
		WhatsApp: WebhookConfig{
			URL:   getEnv("WHATSAPP_API_URL", ""),
			Token: getEnv("WHATSAPP_API_TOKEN", ""),
		},
		SMS: WebhookConfig{
			URL:   getEnv("SMS_API_URL", ""),
			Token: getEnv("SMS_API_TOKEN", ""),
		},
		GeKyChat: WebhookConfig{
			URL:   getEnv("GEKYCHAT_API_URL", ""),
			Token: getEnv("GEKYCHAT_API_TOKEN", ""),
		},
	}

	if cfg.ReminderInterval <= 0 {
		return cfg, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	if cfg.DigestInterval <= 0 {
		return cfg, fmt.Errorf("DIGEST_INTERVAL must be positive")
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
