// Package config loads and validates the engine configuration from file
// and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"veritas/core"
)

// Config holds all configuration for a Veritas engine instance
type Config struct {
	Chain struct {
		// HashAlgorithm selects the content hash: sha256, sha3-256, blake2b-256.
		// Fixed for the life of a chain.
		HashAlgorithm string `mapstructure:"hash_algorithm"`
		// BlockSize is the pending-entry count that triggers a seal
		BlockSize int `mapstructure:"block_size"`
		// MaxPendingEntries is the hard buffer cap; beyond it ingestion
		// returns a backpressure error
		MaxPendingEntries int `mapstructure:"max_pending_entries"`
		// ValidationInterval is the period of background full-chain validation
		ValidationInterval time.Duration `mapstructure:"validation_interval"`
	} `mapstructure:"chain"`

	Signing struct {
		// Backend selects the signing capability: local or vault
		Backend string `mapstructure:"backend"`
		// ValidatorID identifies the signing authority on sealed blocks
		ValidatorID string `mapstructure:"validator_id"`
		Vault       struct {
			Address   string        `mapstructure:"address"`
			Token     string        `mapstructure:"token"`
			KeyName   string        `mapstructure:"key_name"`
			MountPath string        `mapstructure:"mount_path"`
			Timeout   time.Duration `mapstructure:"timeout"`
		} `mapstructure:"vault"`
		Backoff struct {
			Initial     time.Duration `mapstructure:"initial"`
			Factor      float64       `mapstructure:"factor"`
			Max         time.Duration `mapstructure:"max"`
			MaxAttempts int           `mapstructure:"max_attempts"`
		} `mapstructure:"backoff"`
	} `mapstructure:"signing"`

	Storage struct {
		// SQLitePath is the ledger database file; empty disables persistence
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"storage"`

	Notify struct {
		Webhooks []WebhookConfig `mapstructure:"webhooks"`
	} `mapstructure:"notify"`
}

// WebhookConfig configures one block-sealed webhook target
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

func setDefaults() {
	viper.SetDefault("chain.hash_algorithm", string(core.HashSHA256))
	viper.SetDefault("chain.block_size", 100)
	viper.SetDefault("chain.max_pending_entries", 10000)
	viper.SetDefault("chain.validation_interval", "5m")

	viper.SetDefault("signing.backend", "local")
	viper.SetDefault("signing.validator_id", "veritas-1")
	viper.SetDefault("signing.vault.mount_path", "transit")
	viper.SetDefault("signing.vault.timeout", "10s")
	viper.SetDefault("signing.backoff.initial", "100ms")
	viper.SetDefault("signing.backoff.factor", 2.0)
	viper.SetDefault("signing.backoff.max", "5s")
	viper.SetDefault("signing.backoff.max_attempts", 6)

	viper.SetDefault("storage.sqlite_path", "./data/veritas.db")
}

func loadFromEnv() {
	viper.SetEnvPrefix("VERITAS")
	viper.AutomaticEnv()

	_ = viper.BindEnv("chain.hash_algorithm", "VERITAS_HASH_ALGORITHM")
	_ = viper.BindEnv("chain.block_size", "VERITAS_BLOCK_SIZE")
	_ = viper.BindEnv("storage.sqlite_path", "VERITAS_SQLITE_PATH")
	_ = viper.BindEnv("signing.vault.address", "VAULT_ADDR")
	_ = viper.BindEnv("signing.vault.token", "VAULT_TOKEN")
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if !core.HashAlgorithm(c.Chain.HashAlgorithm).IsValid() {
		return fmt.Errorf("invalid hash algorithm %q", c.Chain.HashAlgorithm)
	}
	if c.Chain.BlockSize < 1 {
		return fmt.Errorf("block_size must be at least 1, got %d", c.Chain.BlockSize)
	}
	if c.Chain.MaxPendingEntries < c.Chain.BlockSize {
		return fmt.Errorf("max_pending_entries (%d) must be at least block_size (%d)",
			c.Chain.MaxPendingEntries, c.Chain.BlockSize)
	}
	if c.Chain.ValidationInterval <= 0 {
		return fmt.Errorf("validation_interval must be positive")
	}
	switch c.Signing.Backend {
	case "local":
	case "vault":
		if c.Signing.Vault.KeyName == "" {
			return fmt.Errorf("signing.vault.key_name is required for the vault backend")
		}
	default:
		return fmt.Errorf("unknown signing backend %q", c.Signing.Backend)
	}
	if c.Signing.ValidatorID == "" {
		return fmt.Errorf("signing.validator_id is required")
	}
	backoff := c.Backoff()
	if err := backoff.Validate(); err != nil {
		return fmt.Errorf("invalid signing backoff: %w", err)
	}
	return nil
}

// Backoff returns the signing retry policy from the configuration.
func (c *Config) Backoff() core.BackoffConfig {
	return core.BackoffConfig{
		Initial:     c.Signing.Backoff.Initial,
		Factor:      c.Signing.Backoff.Factor,
		Max:         c.Signing.Backoff.Max,
		MaxAttempts: c.Signing.Backoff.MaxAttempts,
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("veritas")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	// Config file is optional; defaults and env vars apply without one.
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}
