// Package config loads the marketplace daemon configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	nativecommon "fanmarket/native/common"
)

// Gateway holds the REST edge settings.
type Gateway struct {
	ListenAddress  string   `toml:"listen_address"`
	AuthEnabled    bool     `toml:"auth_enabled"`
	AuthSecret     string   `toml:"auth_secret"`
	AuthIssuer     string   `toml:"auth_issuer"`
	AuthAudience   string   `toml:"auth_audience"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MetricsEnabled bool     `toml:"metrics_enabled"`
	LogRequests    bool     `toml:"log_requests"`
}

// Config is the daemon's full configuration.
type Config struct {
	Environment  string `toml:"environment"`
	LogLevel     string `toml:"log_level"`
	OwnerAddress string `toml:"owner_address"`
	JournalPath  string `toml:"journal_path"`
	// PausedModules lists engines rejecting all operations at startup
	// (catalog, market, resale).
	PausedModules []string `toml:"paused_modules"`
	Gateway       Gateway  `toml:"gateway"`
}

// Default returns the configuration used when a field is unset.
func Default() *Config {
	return &Config{
		Environment: "dev",
		LogLevel:    "info",
		JournalPath: "fanmarket-journal.db",
		Gateway: Gateway{
			ListenAddress:  ":8545",
			MetricsEnabled: true,
		},
	}
}

// Load reads and validates a TOML config file, filling defaults for unset
// fields.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for usability.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return fmt.Errorf("config: owner_address is required")
	}
	if !common.IsHexAddress(c.OwnerAddress) {
		return fmt.Errorf("config: owner_address %q is not a hex address", c.OwnerAddress)
	}
	if strings.TrimSpace(c.JournalPath) == "" {
		return fmt.Errorf("config: journal_path is required")
	}
	if strings.TrimSpace(c.Gateway.ListenAddress) == "" {
		return fmt.Errorf("config: gateway.listen_address is required")
	}
	if c.Gateway.AuthEnabled && strings.TrimSpace(c.Gateway.AuthSecret) == "" {
		return fmt.Errorf("config: gateway.auth_secret is required when auth is enabled")
	}
	return nil
}

// Owner resolves the configured platform owner identity.
func (c *Config) Owner() [20]byte {
	return common.HexToAddress(c.OwnerAddress)
}

// Pauses resolves the configured pause set; nil when nothing is paused.
func (c *Config) Pauses() nativecommon.Pauses {
	if len(c.PausedModules) == 0 {
		return nil
	}
	pauses := make(nativecommon.Pauses, len(c.PausedModules))
	for _, module := range c.PausedModules {
		if name := strings.ToLower(strings.TrimSpace(module)); name != "" {
			pauses[name] = true
		}
	}
	return pauses
}
