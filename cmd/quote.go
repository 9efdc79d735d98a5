package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"jupiter-mcp/pkg/app"
	"jupiter-mcp/pkg/parser"
	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/tools"
	"jupiter-mcp/pkg/types"
)

var quoteSlippage uint16

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <input-token> to <output-token>",
	Short: "Get a swap quote without trading",
	Long: `Fetch a Jupiter quote for a swap. Nothing is signed or sent.

Amounts are in whole tokens; tokens are symbols (SOL, USDC, USDT, JUP, BONK)
or mint addresses.

Examples:
  jupiter-mcp quote 1 SOL to USDC
  jupiter-mcp quote 250 USDC for JUP --slippage 100`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Uint16Var(&quoteSlippage, "slippage", tools.DefaultSlippageBps, "Slippage tolerance in basis points")
}

// swapPair is a parsed CLI swap command with amounts converted to base units
type swapPair struct {
	input     parser.Token
	output    parser.Token
	uiAmount  string
	rawAmount uint64
}

func (p swapPair) arguments(slippage uint16) map[string]any {
	return map[string]any{
		"input_mint":   p.input.Mint,
		"output_mint":  p.output.Mint,
		"amount":       strconv.FormatUint(p.rawAmount, 10),
		"slippage_bps": int(slippage),
	}
}

// parsePair understands "1.5 SOL to USDC" and resolves decimals from the
// token list or, for unknown mints, from the chain
func parsePair(ctx context.Context, a *app.App, args []string) (swapPair, error) {
	command, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return swapPair{}, toolerr.Wrap(toolerr.KindValidation, err, "invalid swap command: "+err.Error())
	}
	if err := parser.ValidateSwapCommand(command); err != nil {
		return swapPair{}, toolerr.Wrap(toolerr.KindValidation, err, "invalid swap command: "+err.Error())
	}

	input, err := resolveToken(ctx, a, command.InputToken)
	if err != nil {
		return swapPair{}, err
	}
	output, err := resolveToken(ctx, a, command.OutputToken)
	if err != nil {
		return swapPair{}, err
	}
	if input.Mint == output.Mint {
		return swapPair{}, toolerr.New(toolerr.KindValidation, "input and output tokens must differ")
	}

	raw, err := parser.ToRawAmount(command.Amount, input.Decimals)
	if err != nil {
		return swapPair{}, toolerr.Wrap(toolerr.KindValidation, err, "invalid amount: "+err.Error())
	}

	return swapPair{input: input, output: output, uiAmount: command.Amount, rawAmount: raw}, nil
}

func resolveToken(ctx context.Context, a *app.App, id string) (parser.Token, error) {
	if t, ok := parser.LookupToken(id); ok {
		return t, nil
	}

	mint, err := solana.PublicKeyFromBase58(id)
	if err != nil {
		return parser.Token{}, toolerr.Newf(toolerr.KindValidation, "unknown token %q (try: jupiter-mcp list-tokens)", id)
	}
	decimals, err := a.Balances.Decimals(ctx, mint)
	if err != nil {
		return parser.Token{}, err
	}
	short := mint.String()
	return parser.Token{Symbol: short[:4] + "…" + short[len(short)-4:], Mint: mint.String(), Decimals: decimals}, nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

// dispatch runs a tool call behind a spinner in human mode
func dispatch(ctx context.Context, cmd *cobra.Command, a *app.App, tool, progress string, args map[string]any) tools.ToolResponse {
	s := newSpinner(progress)
	if !jsonOutput(cmd) {
		s.Start()
	}
	resp := a.Tools.Dispatch(ctx, tools.ToolRequest{ID: "cli", Method: tool, Arguments: args})
	if !jsonOutput(cmd) {
		s.Stop()
	}
	return resp
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := loadApp(ctx, cmd, true)
	if err != nil {
		return fail(cmd, err)
	}
	defer a.Close()

	pair, err := parsePair(ctx, a, args)
	if err != nil {
		return fail(cmd, err)
	}

	resp := dispatch(ctx, cmd, a, tools.GetQuote, "Fetching quote...", pair.arguments(quoteSlippage))
	if resp.Error != nil {
		return failTool(cmd, resp.Error)
	}

	quote := resp.Result.(*tools.QuoteResult)
	if jsonOutput(cmd) {
		printJSON(quote)
		return nil
	}
	displayQuote(quote, pair)
	return nil
}

func displayQuote(quote *tools.QuoteResult, pair swapPair) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", pair.uiAmount, color.YellowString(pair.input.Symbol))
	fmt.Printf("  To:                ~%s %s\n", uiAmount(quote.OutputAmount, pair.output), color.YellowString(pair.output.Symbol))
	fmt.Printf("  Minimum Received:  %s %s\n", uiAmount(quote.MinOutputAmount, pair.output), pair.output.Symbol)
	fmt.Printf("  Slippage:          %.2f%%\n", float64(quote.SlippageBps)/100)
	fmt.Printf("  Price Impact:      %s\n", priceImpact(quote.PriceImpactPct))

	if len(quote.Route) > 0 {
		labels := make([]string, 0, len(quote.Route))
		for _, step := range quote.Route {
			labels = append(labels, step.Label)
		}
		fmt.Printf("  Route:             %s\n", color.HiBlackString(strings.Join(labels, " → ")))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func uiAmount(raw string, token parser.Token) string {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return raw
	}
	return types.NewTokenAmount(token.Mint, n, token.Decimals).Display()
}

func priceImpact(pct float64) string {
	s := fmt.Sprintf("%.4f%%", pct*100)
	switch {
	case pct >= 0.05:
		return color.RedString(s)
	case pct >= 0.01:
		return color.YellowString(s)
	default:
		return color.GreenString(s)
	}
}

// failTool reports a structured tool error
func failTool(cmd *cobra.Command, te *tools.ToolError) error {
	if jsonOutput(cmd) {
		printJSON(map[string]any{"error": te})
	} else {
		fmt.Printf("\nError [%s]: %s\n", te.Kind, te.Message)
		if te.State != "" {
			fmt.Printf("  State:     %s\n", coloredState(te.State))
		}
		if te.Signature != "" {
			fmt.Printf("  Signature: %s\n", color.CyanString(te.Signature))
		}
		if te.ExplorerURL != "" {
			fmt.Printf("  Explorer:  %s\n", te.ExplorerURL)
		}
		if te.Retryable {
			color.Yellow("  This error is transient; retrying may succeed.")
		}
		fmt.Println()
	}
	return ErrReported
}
