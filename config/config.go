package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config carries the process-level settings for an exchange deployment.
type Config struct {
	Service     string   `toml:"Service"`
	Environment string   `toml:"Environment"`
	AutoSwap    AutoSwap `toml:"AutoSwap"`
}

// AutoSwap holds the constant-product market-maker parameters.
type AutoSwap struct {
	// FeeDivisor sets the swap fee as floor(amountIn / FeeDivisor); the
	// default 500 is a 0.2% fee folded back into the pool.
	FeeDivisor int64 `toml:"FeeDivisor"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Service:     "exchange",
		Environment: "local",
		AutoSwap:    AutoSwap{FeeDivisor: 500},
	}
}

// Load reads the configuration from the given path, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engines would reject.
func (c *Config) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("config: service name must not be empty")
	}
	if c.AutoSwap.FeeDivisor <= 0 {
		return fmt.Errorf("config: autoswap fee divisor must be positive, got %d", c.AutoSwap.FeeDivisor)
	}
	return nil
}
