package types

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// NativeSOLDecimals is the precision of lamport balances
const NativeSOLDecimals uint8 = 9

// TokenAmount is a raw integer quantity of a token together with its precision
type TokenAmount struct {
	Mint     string
	Raw      uint64
	Decimals uint8
}

// NewTokenAmount builds an immutable token amount
func NewTokenAmount(mint string, raw uint64, decimals uint8) TokenAmount {
	return TokenAmount{Mint: mint, Raw: raw, Decimals: decimals}
}

// Decimal returns raw / 10^decimals without any floating point rounding
func (a TokenAmount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(a.Raw), -int32(a.Decimals))
}

// Display renders the normalized amount with exactly Decimals fractional digits
func (a TokenAmount) Display() string {
	return a.Decimal().StringFixed(int32(a.Decimals))
}

// QuoteRequest describes one request to the swap aggregator
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps uint16
	// Taker is the wallet that will sign; without it the aggregator returns no transaction
	Taker string
}

// RouteStep is one hop of an aggregator route
type RouteStep struct {
	Label      string `json:"label"`
	AMMKey     string `json:"amm_key"`
	InputMint  string `json:"input_mint"`
	OutputMint string `json:"output_mint"`
	InAmount   string `json:"in_amount"`
	OutAmount  string `json:"out_amount"`
	FeeAmount  string `json:"fee_amount"`
	FeeMint    string `json:"fee_mint"`
	Percent    int    `json:"percent"`
}

// SwapQuote is a perishable price snapshot returned by the aggregator.
// It is consumed at most once and never cached.
type SwapQuote struct {
	InputMint            string
	OutputMint           string
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	SlippageBps          uint16
	PriceImpactPct       float64
	SwapMode             string
	RouteID              string
	RoutePlan            []RouteStep

	// Transaction is the unsigned, serialized transaction built for the taker
	Transaction []byte
	// TransactionError is set when the aggregator priced a route but refused to build it
	TransactionError string
}

// RouteLabels returns the AMM labels of the route in order
func (q *SwapQuote) RouteLabels() []string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		labels = append(labels, step.Label)
	}
	return labels
}

// SignedTransaction is a signed payload owned by a single pipeline invocation.
// Payload is the wire encoding; resends submit these exact bytes.
type SignedTransaction struct {
	Signature solana.Signature
	Payload   []byte
}

// TxState is the on-chain status of a submitted transaction
type TxState string

const (
	TxPending   TxState = "pending"
	TxConfirmed TxState = "confirmed"
	TxFailed    TxState = "failed"
)

// TxStatus is one observation of a transaction signature
type TxStatus struct {
	State TxState
	Slot  uint64
	// Commitment is processed, confirmed or finalized when known
	Commitment string
	// Err is the on-chain error for failed transactions
	Err string
}
