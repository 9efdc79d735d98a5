package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"jupiter-mcp/pkg/toolerr"
)

// Network identifies a Solana cluster
type Network string

const (
	MainnetBeta Network = "mainnet-beta"
	Testnet     Network = "testnet"
	Devnet      Network = "devnet"
)

// ParseNetwork accepts the cluster names used by the Solana CLI
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet-beta", "mainnet", "":
		return MainnetBeta, nil
	case "testnet":
		return Testnet, nil
	case "devnet":
		return Devnet, nil
	default:
		return "", fmt.Errorf("invalid network: %s. Use 'mainnet-beta', 'testnet', or 'devnet'", s)
	}
}

// RPCURL returns the public RPC endpoint of the cluster
func (n Network) RPCURL() string {
	switch n {
	case Testnet:
		return "https://api.testnet.solana.com"
	case Devnet:
		return "https://api.devnet.solana.com"
	default:
		return "https://api.mainnet-beta.solana.com"
	}
}

// ExplorerURL links a transaction signature on the Solana explorer
func (n Network) ExplorerURL(signature string) string {
	url := "https://explorer.solana.com/tx/" + signature
	if n == MainnetBeta || n == "" {
		return url
	}
	return url + "?cluster=" + string(n)
}

// Config holds the application configuration
type Config struct {
	Network    Network
	RPCURL     string
	PrivateKey string
	Commitment string
	Jupiter    JupiterConfig
	Swap       SwapConfig
	Cache      CacheConfig
	Log        LogConfig
}

// JupiterConfig points at the swap aggregator
type JupiterConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SwapConfig is the retry and timeout policy of the execution pipeline
type SwapConfig struct {
	QuoteRetries    int
	QuoteBackoff    time.Duration
	QuoteTimeout    time.Duration
	SubmitRetries   int
	SubmitBackoff   time.Duration
	SubmitTimeout   time.Duration
	ConfirmInterval time.Duration
	ConfirmTimeout  time.Duration
	SkipPreflight   bool
}

// CacheConfig selects where mint decimals are cached
type CacheConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LogConfig controls process logging
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through the supplied viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetConfigName(".jupiter-mcp")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("JUPITER_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare SOLANA_* names are what MCP host configs usually carry
	_ = v.BindEnv("private_key", "JUPITER_MCP_PRIVATE_KEY", "SOLANA_PRIVATE_KEY")
	_ = v.BindEnv("network", "JUPITER_MCP_NETWORK", "SOLANA_NETWORK")
	_ = v.BindEnv("rpc_url", "JUPITER_MCP_RPC_URL", "SOLANA_RPC_URL")

	// Read config file (optional)
	_ = v.ReadInConfig()

	network, err := ParseNetwork(v.GetString("network"))
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindConfiguration, err, err.Error())
	}

	cfg := &Config{
		Network:    network,
		RPCURL:     v.GetString("rpc_url"),
		PrivateKey: strings.TrimSpace(v.GetString("private_key")),
		Commitment: strings.ToLower(v.GetString("commitment")),
		Jupiter: JupiterConfig{
			BaseURL: strings.TrimRight(v.GetString("jupiter.base_url"), "/"),
			APIKey:  v.GetString("jupiter.api_key"),
			Timeout: v.GetDuration("jupiter.timeout"),
		},
		Swap: SwapConfig{
			QuoteRetries:    v.GetInt("swap.quote_retries"),
			QuoteBackoff:    v.GetDuration("swap.quote_backoff"),
			QuoteTimeout:    v.GetDuration("swap.quote_timeout"),
			SubmitRetries:   v.GetInt("swap.submit_retries"),
			SubmitBackoff:   v.GetDuration("swap.submit_backoff"),
			SubmitTimeout:   v.GetDuration("swap.submit_timeout"),
			ConfirmInterval: v.GetDuration("swap.confirm_interval"),
			ConfirmTimeout:  v.GetDuration("swap.confirm_timeout"),
			SkipPreflight:   v.GetBool("swap.skip_preflight"),
		},
		Cache: CacheConfig{
			Driver:        strings.ToLower(v.GetString("cache.driver")),
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.RPCURL == "" {
		cfg.RPCURL = network.RPCURL()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", string(MainnetBeta))
	v.SetDefault("commitment", "confirmed")
	v.SetDefault("jupiter.base_url", "https://lite-api.jup.ag/ultra/v1")
	v.SetDefault("jupiter.timeout", 10*time.Second)
	v.SetDefault("swap.quote_retries", 3)
	v.SetDefault("swap.quote_backoff", 500*time.Millisecond)
	v.SetDefault("swap.quote_timeout", 10*time.Second)
	v.SetDefault("swap.submit_retries", 2)
	v.SetDefault("swap.submit_backoff", 250*time.Millisecond)
	v.SetDefault("swap.submit_timeout", 15*time.Second)
	v.SetDefault("swap.confirm_interval", 2*time.Second)
	v.SetDefault("swap.confirm_timeout", 90*time.Second)
	v.SetDefault("swap.skip_preflight", false)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate rejects configurations the process must not start with
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return toolerr.New(toolerr.KindConfiguration,
			"signing key not found. Please set SOLANA_PRIVATE_KEY (or JUPITER_MCP_PRIVATE_KEY) or add private_key to .jupiter-mcp.yaml")
	}

	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return toolerr.Newf(toolerr.KindConfiguration, "invalid commitment %q. Use 'processed', 'confirmed', or 'finalized'", c.Commitment)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return toolerr.Newf(toolerr.KindConfiguration, "invalid cache driver %q. Use 'memory', 'redis', or 'none'", c.Cache.Driver)
	}

	if c.Swap.QuoteRetries < 0 || c.Swap.SubmitRetries < 0 {
		return toolerr.New(toolerr.KindConfiguration, "retry counts must not be negative")
	}
	if c.Swap.ConfirmInterval <= 0 || c.Swap.ConfirmTimeout <= 0 {
		return toolerr.New(toolerr.KindConfiguration, "confirmation interval and timeout must be positive")
	}
	if c.Jupiter.BaseURL == "" {
		return toolerr.New(toolerr.KindConfiguration, "jupiter base_url must not be empty")
	}
	return nil
}
