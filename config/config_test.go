package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jupiter-mcp/pkg/toolerr"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SOLANA_PRIVATE_KEY", "key")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, MainnetBeta, cfg.Network)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCURL)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, "https://lite-api.jup.ag/ultra/v1", cfg.Jupiter.BaseURL)
	assert.Equal(t, 3, cfg.Swap.QuoteRetries)
	assert.Equal(t, 90*time.Second, cfg.Swap.ConfirmTimeout)
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JUPITER_MCP_PRIVATE_KEY", "key")
	t.Setenv("SOLANA_NETWORK", "devnet")
	t.Setenv("JUPITER_MCP_SWAP_QUOTE_RETRIES", "5")
	t.Setenv("JUPITER_MCP_SWAP_CONFIRM_TIMEOUT", "30s")
	t.Setenv("JUPITER_MCP_CACHE_DRIVER", "redis")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, Devnet, cfg.Network)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.RPCURL)
	assert.Equal(t, 5, cfg.Swap.QuoteRetries)
	assert.Equal(t, 30*time.Second, cfg.Swap.ConfirmTimeout)
	assert.Equal(t, "redis", cfg.Cache.Driver)
}

func TestLoadExplicitRPCURLWins(t *testing.T) {
	t.Setenv("SOLANA_PRIVATE_KEY", "key")
	t.Setenv("SOLANA_NETWORK", "testnet")
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example.com")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
}

func TestLoadMissingKeyIsConfigurationError(t *testing.T) {
	t.Setenv("SOLANA_PRIVATE_KEY", "")
	t.Setenv("JUPITER_MCP_PRIVATE_KEY", "")

	cfg, err := LoadFrom(viper.New())
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Equal(t, toolerr.KindConfiguration, toolerr.KindOf(err))
}

func TestLoadRejectsUnknownNetwork(t *testing.T) {
	t.Setenv("SOLANA_PRIVATE_KEY", "key")
	t.Setenv("SOLANA_NETWORK", "localnet")

	_, err := LoadFrom(viper.New())
	require.Error(t, err)
	assert.Equal(t, toolerr.KindConfiguration, toolerr.KindOf(err))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			PrivateKey: "key",
			Commitment: "confirmed",
			Jupiter:    JupiterConfig{BaseURL: "https://lite-api.jup.ag/ultra/v1"},
			Swap:       SwapConfig{ConfirmInterval: time.Second, ConfirmTimeout: time.Minute},
			Cache:      CacheConfig{Driver: "none"},
		}
	}
	require.NoError(t, base().Validate())

	bad := base()
	bad.Commitment = "max"
	assert.Error(t, bad.Validate())

	bad = base()
	bad.Cache.Driver = "memcached"
	assert.Error(t, bad.Validate())

	bad = base()
	bad.Swap.SubmitRetries = -1
	assert.Error(t, bad.Validate())

	bad = base()
	bad.Swap.ConfirmTimeout = 0
	assert.Error(t, bad.Validate())
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://explorer.solana.com/tx/abc", MainnetBeta.ExplorerURL("abc"))
	assert.Equal(t, "https://explorer.solana.com/tx/abc?cluster=devnet", Devnet.ExplorerURL("abc"))
}
