package tools

import "encoding/json"

const mintDescription = "Token mint address (base58) or a known symbol: SOL, USDC, USDT, JUP, BONK"

var balanceSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"wallet_address": {"type": "string", "description": "Wallet address to check the balance of"},
		"token_mint": {"type": "string", "description": "SPL token mint or symbol. Omit, or pass SOL, for the native SOL balance"}
	},
	"required": ["wallet_address"]
}`)

var pairSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"input_mint": {"type": "string", "description": "` + mintDescription + `. The token to swap from"},
		"output_mint": {"type": "string", "description": "` + mintDescription + `. The token to swap to"},
		"amount": {"type": ["integer", "string"], "description": "Amount of the input token in its smallest unit (for USDC with 6 decimals, 1000000 = 1 USDC)"},
		"slippage_bps": {"type": "integer", "minimum": 1, "maximum": 10000, "default": 50, "description": "Maximum acceptable slippage in basis points (100 bps = 1%)"}
	},
	"required": ["input_mint", "output_mint", "amount"]
}`)

func definitions() []Definition {
	return []Definition{
		{
			Name:        GetBalance,
			Title:       "Get balance",
			Description: "Get the SOL or SPL token balance of a wallet. Returns the raw amount, the token decimals and the exact display amount.",
			InputSchema: balanceSchema,
			Annotations: map[string]bool{
				"readOnlyHint":  true,
				"openWorldHint": true,
			},
		},
		{
			Name:        GetQuote,
			Title:       "Get swap quote",
			Description: "Get a price quote for swapping tokens on Solana through the Jupiter aggregator: expected output, minimum output after slippage, price impact and route. Nothing is signed or sent.",
			InputSchema: pairSchema,
			Annotations: map[string]bool{
				"readOnlyHint":  true,
				"openWorldHint": true,
			},
		},
		{
			Name:  ExecuteSwap,
			Title: "Execute swap",
			Description: "Swap tokens from the server wallet through the Jupiter aggregator: fetches a fresh quote, signs and submits the transaction, then waits for confirmation. " +
				"If the result is indeterminate, check the returned signature before retrying; a retry may execute a second swap.",
			InputSchema: pairSchema,
			Annotations: map[string]bool{
				"readOnlyHint":    false,
				"destructiveHint": true,
				"idempotentHint":  false,
				"openWorldHint":   true,
			},
		},
	}
}
