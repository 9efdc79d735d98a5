package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jupiter-mcp/pkg/tools"
)

var (
	swapSlippage uint16
	noConfirm    bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <input-token> to <output-token>",
	Short: "Swap tokens through Jupiter",
	Long: `Quote, sign and submit a swap from the configured wallet, then wait for
confirmation.

IMPORTANT:
  - This sends a real transaction signed with SOLANA_PRIVATE_KEY
  - A swap that timed out may still land; check it with the status command
    before retrying

Examples:
  jupiter-mcp swap 1 SOL to USDC
  jupiter-mcp swap 100 USDC to SOL --slippage 30
  jupiter-mcp swap 0.5 SOL for JUP --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Uint16Var(&swapSlippage, "slippage", tools.DefaultSlippageBps, "Slippage tolerance in basis points")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) error {
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
	arguments := pair.arguments(swapSlippage)

	// Show a preview quote before asking; the pipeline fetches its own
	if !noConfirm && !jsonOutput(cmd) {
		resp := dispatch(ctx, cmd, a, tools.GetQuote, "Fetching quote...", arguments)
		if resp.Error != nil {
			return failTool(cmd, resp.Error)
		}
		displayQuote(resp.Result.(*tools.QuoteResult), pair)
		fmt.Printf("  Wallet:            %s\n", color.CyanString(a.Signer.PublicKey().String()))

		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return nil
		}
	}

	resp := dispatch(ctx, cmd, a, tools.ExecuteSwap, "Executing swap...", arguments)
	if resp.Error != nil {
		return failTool(cmd, resp.Error)
	}

	result := resp.Result.(*tools.SwapResult)
	if jsonOutput(cmd) {
		printJSON(result)
		return nil
	}
	displaySwapResult(result, pair)
	return nil
}

func displaySwapResult(result *tools.SwapResult, pair swapPair) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP COMPLETE")
	fmt.Println(strings.Repeat("=", 60))

	received := uiAmount(result.OutputAmount, pair.output)
	if result.OutputEstimated {
		received = "~" + received + " (estimated)"
	}

	fmt.Printf("\n  State:             %s\n", coloredState(result.State))
	fmt.Printf("  Sent:              %s %s\n", pair.uiAmount, color.YellowString(pair.input.Symbol))
	fmt.Printf("  Received:          %s %s\n", received, color.YellowString(pair.output.Symbol))
	fmt.Printf("  Signature:         %s\n", color.CyanString(result.TransactionSignature))
	fmt.Printf("  Explorer:          %s\n", result.ExplorerURL)

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func coloredState(state string) string {
	switch {
	case state == "SUCCEEDED" || state == "confirmed":
		return color.GreenString(state)
	case state == "FAILED_UNKNOWN" || state == "pending":
		return color.YellowString(state)
	case strings.HasPrefix(state, "FAILED") || state == "failed":
		return color.RedString(state)
	default:
		return state
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
