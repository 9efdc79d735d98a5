package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"jupiter-mcp/pkg/parser"
	"jupiter-mcp/pkg/toolerr"
)

// DefaultSlippageBps is used when slippage_bps is omitted (0.5%)
const DefaultSlippageBps uint16 = 50

const maxSlippageBps = 10000

// lookup returns the first present argument among name and its aliases
func lookup(args map[string]any, name string, aliases ...string) (any, bool) {
	if v, ok := args[name]; ok && v != nil {
		return v, true
	}
	for _, alias := range aliases {
		if v, ok := args[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func optionalString(args map[string]any, name string, aliases ...string) (string, bool, error) {
	v, ok := lookup(args, name, aliases...)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, toolerr.Newf(toolerr.KindValidation, "%s must be a string", name)
	}
	return strings.TrimSpace(s), true, nil
}

func requiredString(args map[string]any, name string, aliases ...string) (string, error) {
	s, ok, err := optionalString(args, name, aliases...)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", toolerr.Newf(toolerr.KindValidation, "missing required argument: %s", name)
	}
	return s, nil
}

func walletArg(args map[string]any, name string, aliases ...string) (solana.PublicKey, error) {
	s, err := requiredString(args, name, aliases...)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pub, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, toolerr.Wrap(toolerr.KindValidation, err, name+" is not a valid Solana address")
	}
	return pub, nil
}

// mintArg accepts a base58 mint or a known symbol such as USDC
func mintArg(args map[string]any, name string, aliases ...string) (string, error) {
	s, err := requiredString(args, name, aliases...)
	if err != nil {
		return "", err
	}
	mint, err := parser.ResolveMint(s)
	if err != nil {
		return "", toolerr.Wrap(toolerr.KindValidation, err, name+" is not a valid token: "+err.Error())
	}
	return mint, nil
}

// amountArg reads a positive integer in base units from a JSON number or a decimal string
func amountArg(args map[string]any, name string) (uint64, error) {
	v, ok := lookup(args, name)
	if !ok {
		return 0, toolerr.Newf(toolerr.KindValidation, "missing required argument: %s", name)
	}
	n, err := toUint64(v)
	if err != nil {
		return 0, toolerr.Newf(toolerr.KindValidation, "%s must be a positive integer in base units: %v", name, err)
	}
	if n == 0 {
		return 0, toolerr.Newf(toolerr.KindValidation, "%s must be greater than zero", name)
	}
	return n, nil
}

func slippageArg(args map[string]any) (uint16, error) {
	v, ok := lookup(args, "slippage_bps", "slippageBps")
	if !ok {
		return DefaultSlippageBps, nil
	}
	n, err := toUint64(v)
	if err != nil || n < 1 || n > maxSlippageBps {
		return 0, toolerr.Newf(toolerr.KindValidation, "slippage_bps must be an integer between 1 and %d", maxSlippageBps)
	}
	return uint16(n), nil
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		return strconv.ParseUint(strings.TrimSpace(n), 10, 64)
	case float64:
		if n < 0 || n != math.Trunc(n) || n > 1<<53 {
			return 0, strconv.ErrRange
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, strconv.ErrRange
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, strconv.ErrRange
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, strconv.ErrSyntax
	}
}
