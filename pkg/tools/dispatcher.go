package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"jupiter-mcp/pkg/balance"
	"jupiter-mcp/pkg/logger"
	"jupiter-mcp/pkg/parser"
	"jupiter-mcp/pkg/swap"
	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

// BalanceService answers get_balance
type BalanceService interface {
	Balance(ctx context.Context, wallet solana.PublicKey, token string) (types.TokenAmount, error)
}

// QuoteService answers get_quote
type QuoteService interface {
	Quote(ctx context.Context, req types.QuoteRequest) (*types.SwapQuote, error)
}

// SwapExecutor answers execute_swap
type SwapExecutor interface {
	Execute(ctx context.Context, req swap.Request) (*swap.Result, error)
}

// ExplorerFunc links a transaction signature
type ExplorerFunc func(signature string) string

// Dispatcher validates tool arguments and routes them to the services.
// It is stateless and safe for concurrent use.
type Dispatcher struct {
	balances BalanceService
	quotes   QuoteService
	swaps    SwapExecutor
	explorer ExplorerFunc
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher over the three services
func NewDispatcher(balances BalanceService, quotes QuoteService, swaps SwapExecutor, explorer ExplorerFunc) *Dispatcher {
	if explorer == nil {
		explorer = func(signature string) string { return "https://solscan.io/tx/" + signature }
	}
	return &Dispatcher{
		balances: balances,
		quotes:   quotes,
		swaps:    swaps,
		explorer: explorer,
		log:      logger.For("tools"),
	}
}

// Tools returns the definitions advertised by tools/list
func (d *Dispatcher) Tools() []Definition {
	return definitions()
}

// Dispatch executes one tool call. Errors are always returned as a structured
// ToolError in the response, never as a transport failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req ToolRequest) (resp ToolResponse) {
	resp.ID = req.ID

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("tool", req.Method).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("tool panic recovered")
			resp.Result = nil
			resp.Error = toToolError(toolerr.Newf(toolerr.KindInternal, "tool execution panicked: %v", r))
		}
	}()

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case GetBalance:
		result, err = d.getBalance(ctx, args)
	case GetQuote:
		result, err = d.getQuote(ctx, args)
	case ExecuteSwap:
		return d.executeSwap(ctx, req.ID, args)
	default:
		err = toolerr.Newf(toolerr.KindValidation, "unknown tool: %s", req.Method)
	}

	if err != nil {
		d.log.Debug().Str("tool", req.Method).Err(err).Msg("tool call failed")
		resp.Error = toToolError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func (d *Dispatcher) getBalance(ctx context.Context, args map[string]any) (*BalanceResult, error) {
	wallet, err := walletArg(args, "wallet_address", "walletAddress", "wallet")
	if err != nil {
		return nil, err
	}

	token, _, err := optionalString(args, "token_mint", "tokenMint", "token")
	if err != nil {
		return nil, err
	}
	if !balance.IsNative(token) {
		if token, err = parser.ResolveMint(token); err != nil {
			return nil, toolerr.Wrap(toolerr.KindValidation, err, "token_mint is not a valid token: "+err.Error())
		}
	}

	amount, err := d.balances.Balance(ctx, wallet, token)
	if err != nil {
		return nil, err
	}

	return &BalanceResult{
		Wallet:        wallet.String(),
		Mint:          amount.Mint,
		RawAmount:     strconv.FormatUint(amount.Raw, 10),
		Decimals:      amount.Decimals,
		DisplayAmount: amount.Display(),
	}, nil
}

type pairArgs struct {
	inputMint   string
	outputMint  string
	amount      uint64
	slippageBps uint16
}

func parsePair(args map[string]any) (pairArgs, error) {
	var p pairArgs
	var err error

	if p.inputMint, err = mintArg(args, "input_mint", "inputMint"); err != nil {
		return p, err
	}
	if p.outputMint, err = mintArg(args, "output_mint", "outputMint"); err != nil {
		return p, err
	}
	if p.inputMint == p.outputMint {
		return p, toolerr.New(toolerr.KindValidation, "input_mint and output_mint must differ")
	}
	if p.amount, err = amountArg(args, "amount"); err != nil {
		return p, err
	}
	if p.slippageBps, err = slippageArg(args); err != nil {
		return p, err
	}
	return p, nil
}

func (d *Dispatcher) getQuote(ctx context.Context, args map[string]any) (*QuoteResult, error) {
	pair, err := parsePair(args)
	if err != nil {
		return nil, err
	}

	// no taker: price only, nothing to sign
	quote, err := d.quotes.Quote(ctx, types.QuoteRequest{
		InputMint:   pair.inputMint,
		OutputMint:  pair.outputMint,
		Amount:      pair.amount,
		SlippageBps: pair.slippageBps,
	})
	if err != nil {
		return nil, err
	}

	return &QuoteResult{
		InputMint:       quote.InputMint,
		OutputMint:      quote.OutputMint,
		InputAmount:     strconv.FormatUint(quote.InAmount, 10),
		OutputAmount:    strconv.FormatUint(quote.OutAmount, 10),
		MinOutputAmount: strconv.FormatUint(quote.OtherAmountThreshold, 10),
		SlippageBps:     quote.SlippageBps,
		PriceImpactPct:  quote.PriceImpactPct,
		RouteID:         quote.RouteID,
		Route:           quote.RoutePlan,
	}, nil
}

func (d *Dispatcher) executeSwap(ctx context.Context, id any, args map[string]any) ToolResponse {
	resp := ToolResponse{ID: id}

	pair, err := parsePair(args)
	if err != nil {
		resp.Error = toToolError(err)
		return resp
	}

	res, err := d.swaps.Execute(ctx, swap.Request{
		InputMint:   pair.inputMint,
		OutputMint:  pair.outputMint,
		Amount:      pair.amount,
		SlippageBps: pair.slippageBps,
	})
	if err != nil {
		te := toToolError(err)
		if res != nil {
			te.State = string(res.State)
			if te.Signature == "" {
				te.Signature = res.Signature
			}
		}
		// only link signatures that may have reached the network
		if te.Signature != "" && res != nil && res.State.Submitted() {
			te.ExplorerURL = d.explorer(te.Signature)
		}
		d.log.Info().Str("tool", ExecuteSwap).Str("kind", te.Kind).Str("state", te.State).Msg("swap did not succeed")
		resp.Error = te
		return resp
	}

	resp.Result = &SwapResult{
		State:                string(res.State),
		TransactionSignature: res.Signature,
		InputAmount:          strconv.FormatUint(pair.amount, 10),
		OutputAmount:         strconv.FormatUint(res.OutputAmount, 10),
		OutputEstimated:      res.OutputEstimated,
		ExplorerURL:          d.explorer(res.Signature),
	}
	return resp
}

// toToolError converts any error into the structured form; unclassified errors are internal
func toToolError(err error) *ToolError {
	e, ok := toolerr.From(err)
	if !ok {
		e = toolerr.Wrap(toolerr.KindInternal, err, fmt.Sprintf("internal error: %v", err))
	}
	return &ToolError{
		Kind:         string(e.Kind()),
		Message:      e.Detail(),
		Retryable:    e.Retryable(),
		Signature:    e.Signature(),
		Exhausted:    e.Exhausted(),
		FeesConsumed: e.FeesConsumed(),
	}
}
