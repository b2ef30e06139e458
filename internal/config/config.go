// Package config loads the webhook client, session and host settings from
// flags, VSET_* environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/meltingprovince/virtualset/internal/types"
)

// Environment selects how missing host credentials are handled
type Environment string

// Environments
const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// EnvPrefix is prepended to every environment variable (VSET_WEBHOOK_URL, ...)
const EnvPrefix = "VSET"

// Configuration keys. Flags use the same names.
const (
	KeyWebhookURL      = "webhook-url"
	KeyEnvironment     = "env"
	KeyInitData        = "init-data"
	KeyHostUserID      = "host-user-id"
	KeyHostUsername    = "host-username"
	KeyOutputType      = "output-type"
	KeyPollInterval    = "poll-interval"
	KeyMaxPollFailures = "max-poll-failures"
	KeyMaxPollBackoff  = "max-poll-backoff"
	KeyRequestTimeout  = "request-timeout"
)

// Defaults
const (
	DefaultWebhookURL      = "https://meltingprovince.app.n8n.cloud/webhook"
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollFailures = 5
	DefaultMaxPollBackoff  = 30 * time.Second
	DefaultRequestTimeout  = 20 * time.Second
)

// Config holds everything the CLI needs to build a webhook client and a session
type Config struct {
	WebhookURL  string
	Environment Environment

	// InitData is the opaque host credential. It is forwarded verbatim.
	InitData     string
	HostUserID   string
	HostUsername string

	OutputType      types.OutputType
	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollBackoff  time.Duration
	RequestTimeout  time.Duration
}

// IsProduction reports whether missing credentials must fail closed
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// NewViper returns a viper instance reading VSET_* variables with defaults applied
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyWebhookURL, DefaultWebhookURL)
	v.SetDefault(KeyEnvironment, string(EnvDevelopment))
	v.SetDefault(KeyOutputType, string(types.OutputImages))
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyMaxPollFailures, DefaultMaxPollFailures)
	v.SetDefault(KeyMaxPollBackoff, DefaultMaxPollBackoff)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	return v
}

// LoadDotEnv loads variables from path into the process environment. A
// missing file is not an error; variables already set are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		WebhookURL:      strings.TrimRight(strings.TrimSpace(v.GetString(KeyWebhookURL)), "/"),
		Environment:     Environment(strings.ToLower(v.GetString(KeyEnvironment))),
		InitData:        v.GetString(KeyInitData),
		HostUserID:      v.GetString(KeyHostUserID),
		HostUsername:    v.GetString(KeyHostUsername),
		OutputType:      types.OutputType(strings.ToLower(v.GetString(KeyOutputType))),
		PollInterval:    v.GetDuration(KeyPollInterval),
		MaxPollFailures: v.GetInt(KeyMaxPollFailures),
		MaxPollBackoff:  v.GetDuration(KeyMaxPollBackoff),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise surface as confusing runtime errors
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("config error: webhook URL is required")
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil {
		return fmt.Errorf("config error: invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config error: webhook URL must be http or https, got %q", c.WebhookURL)
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("config error: env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}

	if !c.OutputType.IsValid() {
		return fmt.Errorf("config error: output type must be %q or %q, got %q", types.OutputImages, types.OutputVideo, c.OutputType)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config error: poll interval must be positive")
	}
	if c.MaxPollFailures < 1 {
		return fmt.Errorf("config error: max poll failures must be at least 1")
	}
	if c.MaxPollBackoff < c.PollInterval {
		return fmt.Errorf("config error: max poll backoff must not be shorter than the poll interval")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config error: request timeout must be positive")
	}
	return nil
}
