package balance

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"jupiter-mcp/pkg/cache"
	"jupiter-mcp/pkg/chain"
	"jupiter-mcp/pkg/logger"
	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

// NativeSymbol is the mint reported for native SOL balances
const NativeSymbol = "SOL"

// ChainReader is the read side of the chain adapter
type ChainReader interface {
	NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, bool, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, bool, error)
}

// Service answers balance queries
type Service struct {
	chain ChainReader
	cache cache.DecimalsCache
	log   zerolog.Logger
}

// NewService creates a balance service. A nil cache disables caching.
func NewService(chain ChainReader, decimals cache.DecimalsCache) *Service {
	if decimals == nil {
		decimals = cache.NoopCache{}
	}
	return &Service{
		chain: chain,
		cache: decimals,
		log:   logger.For("balance"),
	}
}

// IsNative reports whether token selects the native SOL balance
func IsNative(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "sol", "native":
		return true
	}
	return false
}

// Balance returns the wallet's balance of token, native SOL when token is
// empty or a native sentinel. A wallet without a token account holds zero.
func (s *Service) Balance(ctx context.Context, wallet solana.PublicKey, token string) (types.TokenAmount, error) {
	if IsNative(token) {
		lamports, err := s.chain.NativeBalance(ctx, wallet)
		if err != nil {
			return types.TokenAmount{}, toolerr.Ensure(err, toolerr.KindTransient, "failed to get SOL balance")
		}
		return types.NewTokenAmount(NativeSymbol, lamports, types.NativeSOLDecimals), nil
	}

	mint, err := solana.PublicKeyFromBase58(token)
	if err != nil {
		return types.TokenAmount{}, toolerr.Wrap(toolerr.KindValidation, err, "invalid token mint address")
	}

	raw, found, err := s.chain.TokenBalance(ctx, wallet, mint)
	if err != nil {
		return types.TokenAmount{}, toolerr.Ensure(err, toolerr.KindTransient, "failed to get token balance")
	}
	if !found {
		s.log.Debug().Str("wallet", wallet.String()).Str("mint", mint.String()).Msg("no token account, reporting zero")
	}

	decimals, err := s.Decimals(ctx, mint)
	if err != nil {
		return types.TokenAmount{}, err
	}
	return types.NewTokenAmount(mint.String(), raw, decimals), nil
}

// Decimals returns the precision of mint, 0 when the mint does not exist
func (s *Service) Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	if mint.Equals(chain.WrappedSOLMint) {
		return types.NativeSOLDecimals, nil
	}

	key := mint.String()
	if decimals, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("mint", key).Msg("decimals cache read failed")
	} else if ok {
		return decimals, nil
	}

	decimals, found, err := s.chain.MintDecimals(ctx, mint)
	if err != nil {
		return 0, toolerr.Ensure(err, toolerr.KindTransient, "failed to get mint decimals")
	}
	if !found {
		return 0, nil
	}

	if err := s.cache.Set(ctx, key, decimals); err != nil {
		s.log.Warn().Err(err).Str("mint", key).Msg("decimals cache write failed")
	}
	return decimals, nil
}
