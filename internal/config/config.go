package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config contains all runtime settings for the concierge call service.
type Config struct {
	BindAddr        string        `envconfig:"BIND_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"concierge"`
	AllowAnyOrigin   bool   `envconfig:"ALLOW_ANY_ORIGIN" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// Conversation script settings.
	CompanyName string `envconfig:"COMPANY_NAME" default:"Venturebnb"`
	OfferSlotA  string `envconfig:"OFFER_SLOT_A" default:"Tomorrow 2:00 PM"`
	OfferSlotB  string `envconfig:"OFFER_SLOT_B" default:"Thursday 10:00 AM"`

	// Delay before the agent greets a silent counterparty on a fresh
	// streaming connection.
	GreetingDelay time.Duration `envconfig:"GREETING_DELAY" default:"1.5s"`

	// Booking webhook. Empty URL disables dispatch entirely.
	BookingWebhookURL string        `envconfig:"BOOKING_WEBHOOK_URL"`
	BookingTimeout    time.Duration `envconfig:"BOOKING_TIMEOUT" default:"8s"`

	// SessionTTL expires idle sessions when positive. Zero keeps sessions
	// for the lifetime of the process.
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"0"`

	// Optional call-record persistence. Empty DATABASE_URL means records are
	// kept in memory only.
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	RedactTranscripts bool   `envconfig:"REDACT_TRANSCRIPTS" default:"false"`
}

// Load reads an optional .env file, then the environment, and validates the
// result. A PORT variable (platform convention) overrides BIND_ADDR when no
// explicit bind address is set.
func Load() (Config, error) {
	if err := exportEnvFile(".env"); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	if os.Getenv("BIND_ADDR") == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			cfg.BindAddr = ":" + port
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.OfferSlotA) == "" || strings.TrimSpace(c.OfferSlotB) == "" {
		return fmt.Errorf("OFFER_SLOT_A and OFFER_SLOT_B must not be blank")
	}
	if c.GreetingDelay <= 0 {
		return fmt.Errorf("GREETING_DELAY must be positive")
	}
	if c.BookingTimeout <= 0 {
		return fmt.Errorf("BOOKING_TIMEOUT must be positive")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	if u := strings.TrimSpace(c.BookingWebhookURL); u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("BOOKING_WEBHOOK_URL must be an http(s) URL")
		}
	}
	return nil
}

// exportEnvFile loads key/value pairs from an env file into the process
// environment without clobbering variables that are already set.
func exportEnvFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for key, val := range v.AllSettings() {
		name := strings.ToUpper(key)
		if os.Getenv(name) != "" {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
