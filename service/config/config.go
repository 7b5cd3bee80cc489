package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr  string
	WatcherAddr string
	LogLevel    string

	// NATS configuration
	NATSURL string

	// XRPL configuration
	XRPLWebsocketURL string

	// Special wallet tracking
	SpecialWalletAddress string
	SpecialAmountDrops   int64
	CatAmountDrops       int64
}

// Defaults for the special wallet amount tiers.
// 1 XRP = 1,000,000 drops, so 1010 drops is 0.00101 XRP.
const (
	DefaultSpecialAmountDrops = 1010
	DefaultCatAmountDrops     = 2020
)

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.WatcherAddr = getEnvOrDefault("WATCHER_ADDR", ":9090")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// XRPL configuration
	cfg.XRPLWebsocketURL = getEnvOrDefault("XRPL_WS_URL", "wss://xrplcluster.com/")

	// Special wallet configuration
	cfg.SpecialWalletAddress = os.Getenv("SPECIAL_WALLET_ADDRESS")
	if cfg.SpecialWalletAddress == "" {
		errs = append(errs, fmt.Errorf("SPECIAL_WALLET_ADDRESS is required"))
	}

	specialDrops, err := parseInt64("SPECIAL_AMOUNT_DROPS", DefaultSpecialAmountDrops)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SpecialAmountDrops = specialDrops
	}

	catDrops, err := parseInt64("CAT_AMOUNT_DROPS", DefaultCatAmountDrops)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.CatAmountDrops = catDrops
	}

	// The two amount tiers must be distinguishable or the classifier degenerates
	if cfg.SpecialAmountDrops > 0 && cfg.SpecialAmountDrops == cfg.CatAmountDrops {
		errs = append(errs, fmt.Errorf("SPECIAL_AMOUNT_DROPS and CAT_AMOUNT_DROPS must be different"))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SpecialWalletAddress == "" {
		errs = append(errs, fmt.Errorf("SpecialWalletAddress is required"))
	}

	if c.XRPLWebsocketURL == "" {
		errs = append(errs, fmt.Errorf("XRPLWebsocketURL is required"))
	}

	if c.SpecialAmountDrops <= 0 {
		errs = append(errs, fmt.Errorf("SpecialAmountDrops must be positive"))
	}

	if c.CatAmountDrops <= 0 {
		errs = append(errs, fmt.Errorf("CatAmountDrops must be positive"))
	}

	if c.SpecialAmountDrops == c.CatAmountDrops {
		errs = append(errs, fmt.Errorf("SpecialAmountDrops and CatAmountDrops must be different"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt64 parses an integer from an environment variable or uses a default.
func parseInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
