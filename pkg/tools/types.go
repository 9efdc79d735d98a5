package tools

import (
	"encoding/json"

	"jupiter-mcp/pkg/types"
)

// Tool names
const (
	GetBalance  = "get_balance"
	GetQuote    = "get_quote"
	ExecuteSwap = "execute_swap"
)

// ToolRequest is one decoded tools/call. ID is the transport correlation id.
type ToolRequest struct {
	ID        any
	Method    string
	Arguments map[string]any
}

// ToolResponse carries either Result or Error, never both
type ToolResponse struct {
	ID     any
	Result any
	Error  *ToolError
}

// ToolError is the structured error returned to the agent
type ToolError struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	Retryable    bool   `json:"retryable"`
	Signature    string `json:"signature,omitempty"`
	ExplorerURL  string `json:"explorer_url,omitempty"`
	State        string `json:"state,omitempty"`
	Exhausted    bool   `json:"exhausted,omitempty"`
	FeesConsumed bool   `json:"fees_consumed,omitempty"`
}

func (e *ToolError) Error() string {
	return e.Kind + ": " + e.Message
}

// Definition describes a tool for tools/list
type Definition struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Annotations map[string]bool `json:"annotations,omitempty"`
}

// BalanceResult is the get_balance payload. Raw amounts are strings so
// values above 2^53 survive JSON clients.
type BalanceResult struct {
	Wallet        string `json:"wallet_address"`
	Mint          string `json:"mint"`
	RawAmount     string `json:"raw_amount"`
	Decimals      uint8  `json:"decimals"`
	DisplayAmount string `json:"display_amount"`
}

// QuoteResult is the get_quote payload
type QuoteResult struct {
	InputMint       string            `json:"input_mint"`
	OutputMint      string            `json:"output_mint"`
	InputAmount     string            `json:"input_amount"`
	OutputAmount    string            `json:"output_amount"`
	MinOutputAmount string            `json:"min_output_amount"`
	SlippageBps     uint16            `json:"slippage_bps"`
	PriceImpactPct  float64           `json:"price_impact_pct"`
	RouteID         string            `json:"route_id"`
	Route           []types.RouteStep `json:"route"`
}

// SwapResult is the execute_swap payload
type SwapResult struct {
	State                string `json:"state"`
	TransactionSignature string `json:"transaction_signature"`
	InputAmount          string `json:"input_amount"`
	OutputAmount         string `json:"output_amount"`
	OutputEstimated      bool   `json:"output_estimated"`
	ExplorerURL          string `json:"explorer_url"`
}
