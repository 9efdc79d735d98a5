package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Token is a well-known SPL token
type Token struct {
	Symbol   string
	Name     string
	Mint     string
	Decimals uint8
}

var knownTokens = []Token{
	{Symbol: "SOL", Name: "Wrapped SOL", Mint: "So11111111111111111111111111111111111111112", Decimals: 9},
	{Symbol: "USDC", Name: "USD Coin", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
	{Symbol: "USDT", Name: "Tether USD", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6},
	{Symbol: "JUP", Name: "Jupiter", Mint: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6},
	{Symbol: "BONK", Name: "Bonk", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5},
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	// Convert to uppercase for consistency
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Handle common aliases
	aliases := map[string]string{
		"WSOL":   "SOL",
		"NATIVE": "SOL",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}

// LookupToken finds a known token by symbol or mint address
func LookupToken(id string) (Token, bool) {
	symbol := NormalizeTokenSymbol(id)
	for _, t := range knownTokens {
		if t.Symbol == symbol || t.Mint == strings.TrimSpace(id) {
			return t, true
		}
	}
	return Token{}, false
}

// ResolveMint turns a symbol alias or a base58 address into a mint address
func ResolveMint(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("token must not be empty")
	}
	if t, ok := LookupToken(id); ok {
		return t.Mint, nil
	}

	if _, err := solana.PublicKeyFromBase58(id); err != nil {
		return "", fmt.Errorf("unknown token %q: not a known symbol or a valid mint address", id)
	}
	return id, nil
}

// KnownTokens returns the alias registry sorted by symbol
func KnownTokens() []Token {
	out := make([]Token, len(knownTokens))
	copy(out, knownTokens)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
