package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jupiter-mcp/config"
	"jupiter-mcp/pkg/balance"
	"jupiter-mcp/pkg/cache"
	"jupiter-mcp/pkg/chain"
	"jupiter-mcp/pkg/client"
	"jupiter-mcp/pkg/logger"
	"jupiter-mcp/pkg/mcp"
	"jupiter-mcp/pkg/signer"
	"jupiter-mcp/pkg/swap"
	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/tools"
)

// Name is reported to MCP clients as serverInfo.name
const Name = "jupiter-mcp"

// Version is overridden at build time with -ldflags
var Version = "0.1.0"

// App holds all process dependencies
type App struct {
	Config   *config.Config
	Signer   *signer.Signer
	Chain    *chain.SolanaClient
	Jupiter  *client.JupiterClient
	Cache    cache.DecimalsCache
	Balances *balance.Service
	Pipeline *swap.Pipeline
	Tools    *tools.Dispatcher
	Server   *mcp.Server
}

// New wires every dependency from cfg. A missing or invalid signing key is
// fatal: the process must not start without it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.For("app")

	wallet, err := signer.Load(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("wallet", wallet.PublicKey().String()).
		Str("network", string(cfg.Network)).
		Msg("signing key loaded")

	solanaClient, err := chain.NewSolanaClient(cfg.RPCURL, chain.Options{
		Commitment:    cfg.Commitment,
		SkipPreflight: cfg.Swap.SkipPreflight,
	})
	if err != nil {
		return nil, err
	}

	decimals := openCache(ctx, cfg.Cache, log)

	jupiter := client.NewJupiterClient(cfg.Jupiter.BaseURL, cfg.Jupiter.APIKey, cfg.Jupiter.Timeout)
	balances := balance.NewService(solanaClient, decimals)
	pipeline := swap.NewPipeline(jupiter, wallet, solanaClient, swap.PolicyFromConfig(cfg.Swap))
	dispatcher := tools.NewDispatcher(balances, jupiter, pipeline, cfg.Network.ExplorerURL)

	return &App{
		Config:   cfg,
		Signer:   wallet,
		Chain:    solanaClient,
		Jupiter:  jupiter,
		Cache:    decimals,
		Balances: balances,
		Pipeline: pipeline,
		Tools:    dispatcher,
		Server:   mcp.NewServer(dispatcher, mcp.Implementation{Name: Name, Version: Version}),
	}, nil
}

// openCache falls back to the in-memory cache when redis is unreachable
func openCache(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) cache.DecimalsCache {
	c, err := cache.New(cfg.Driver, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn().Err(err).Msg("invalid cache driver, using in-memory cache")
		return cache.NewMemoryCache()
	}

	rc, ok := c.(*cache.RedisCache)
	if !ok {
		log.Debug().Str("driver", cfg.Driver).Msg("decimals cache initialized")
		return c
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to Redis, using in-memory cache")
		_ = rc.Close()
		return cache.NewMemoryCache()
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis decimals cache initialized")
	return rc
}

// Serve runs the MCP server on stdio until the client disconnects or ctx is done
func (a *App) Serve(ctx context.Context) error {
	err := a.Server.ServeStdio(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases the cache connection
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	if err := a.Cache.Close(); err != nil {
		return toolerr.Wrap(toolerr.KindInternal, err, "failed to close cache")
	}
	return nil
}
