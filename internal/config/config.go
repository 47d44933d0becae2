package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DeepLAPIKey may be left empty when the key lives in the keystore.
	DeepLAPIKey string `envconfig:"DEEPL_API_KEY" default:""`
	// DeepLAPIURL overrides tier-based endpoint selection; used in tests and
	// against self-hosted proxies.
	DeepLAPIURL string `envconfig:"DEEPL_API_URL" default:""`

	// DatabaseURL enables the persistent translation cache when set.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`

	KeystorePath       string `envconfig:"KEYSTORE_PATH" default:""`
	KeystorePassphrase string `envconfig:"KEYSTORE_PASSPHRASE" default:""`

	MaxRetries       int           `envconfig:"HTTP_MAX_RETRIES" default:"3"`
	DocPollInterval  time.Duration `envconfig:"DOC_POLL_INTERVAL" default:"2s"`
	DocMaxPolls      int           `envconfig:"DOC_MAX_POLLS" default:"150"`
	DetectPreference string        `envconfig:"DETECT_PREFERENCE" default:"local"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must be >= 0")
	}
	if c.DocPollInterval < time.Millisecond {
		return fmt.Errorf("DOC_POLL_INTERVAL must be at least 1ms")
	}
	if c.DocMaxPolls < 1 {
		return fmt.Errorf("DOC_MAX_POLLS must be >= 1")
	}
	switch strings.ToLower(strings.TrimSpace(c.DetectPreference)) {
	case "local", "api":
	default:
		return fmt.Errorf("DETECT_PREFERENCE must be local or api")
	}
	if strings.TrimSpace(c.KeystorePath) != "" && strings.TrimSpace(c.KeystorePassphrase) == "" {
		return fmt.Errorf("KEYSTORE_PASSPHRASE is required when KEYSTORE_PATH is set")
	}
	return nil
}
