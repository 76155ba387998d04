package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the claim-link client.
type Config struct {
	// Chain configurations, keyed by protocol chain identifier.
	Chains map[string]ChainConfig `mapstructure:"chains"`

	// Escrow contract addresses, keyed by protocol version then chain
	// identifier. A link's version selects which contract generation it
	// targets, so addresses for old versions must never be removed.
	Contracts map[string]map[string]string `mapstructure:"contracts"`

	// Protocol configuration
	Protocol ProtocolConfig `mapstructure:"protocol"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ChainConfig holds configuration for one chain.
type ChainConfig struct {
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	GasLimit    uint64 `mapstructure:"gas_limit"`
	// Private key of the funding wallet submitting transactions
	PrivateKey string `mapstructure:"private_key"`
	// How long to poll for a transaction receipt before giving up
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
}

// ProtocolConfig holds link-protocol configuration.
type ProtocolConfig struct {
	// Base URL links are built on
	BaseURL string `mapstructure:"base_url"`
	// Contract generation used for newly created links
	DefaultVersion string `mapstructure:"default_version"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.claimlink")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CLAIMLINK")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("protocol.base_url", "https://claimlink.example.org/claim")
	viper.SetDefault("protocol.default_version", "v4")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// validateConfig validates the loaded configuration.
func validateConfig(config *Config) error {
	if len(config.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}
	for chainID, chain := range config.Chains {
		if chain.RPCEndpoint == "" {
			return fmt.Errorf("chains.%s.rpc_endpoint is required", chainID)
		}
		if chain.PrivateKey == "" {
			return fmt.Errorf("chains.%s.private_key is required", chainID)
		}
	}

	if config.Protocol.BaseURL == "" {
		return fmt.Errorf("protocol.base_url is required")
	}
	if config.Protocol.DefaultVersion == "" {
		return fmt.Errorf("protocol.default_version is required")
	}

	if _, ok := config.Contracts[config.Protocol.DefaultVersion]; !ok {
		return fmt.Errorf("contracts.%s is required for the default version", config.Protocol.DefaultVersion)
	}

	return nil
}

// EscrowAddress returns the escrow contract address for a protocol version
// on a chain, or false when the pair is not configured.
func (c *Config) EscrowAddress(version, chainID string) (string, bool) {
	byChain, ok := c.Contracts[version]
	if !ok {
		return "", false
	}
	addr, ok := byChain[chainID]
	return addr, ok
}
