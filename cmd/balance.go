package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jupiter-mcp/pkg/balance"
	"jupiter-mcp/pkg/parser"
	"jupiter-mcp/pkg/tools"
)

var balanceWallet string

var balanceCmd = &cobra.Command{
	Use:   "balance [token]",
	Short: "Show a wallet's SOL or token balance",
	Long: `Show the balance of SOL or an SPL token. The wallet defaults to the
configured signing key.

Examples:
  jupiter-mcp balance
  jupiter-mcp balance USDC
  jupiter-mcp balance EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v --wallet <address>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().StringVar(&balanceWallet, "wallet", "", "Wallet address (defaults to the signing wallet)")
}

func runBalance(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := loadApp(ctx, cmd, true)
	if err != nil {
		return fail(cmd, err)
	}
	defer a.Close()

	wallet := balanceWallet
	if wallet == "" {
		wallet = a.Signer.PublicKey().String()
	}
	token := ""
	if len(args) == 1 {
		token = args[0]
	}

	resp := dispatch(ctx, cmd, a, tools.GetBalance, "Fetching balance...", map[string]any{
		"wallet_address": wallet,
		"token_mint":     token,
	})
	if resp.Error != nil {
		return failTool(cmd, resp.Error)
	}

	result := resp.Result.(*tools.BalanceResult)
	if jsonOutput(cmd) {
		printJSON(result)
		return nil
	}

	symbol := result.Mint
	if t, ok := parser.LookupToken(result.Mint); ok && result.Mint != balance.NativeSymbol {
		symbol = t.Symbol
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                       BALANCE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Wallet:   %s\n", color.CyanString(result.Wallet))
	fmt.Printf("  Balance:  %s %s\n", result.DisplayAmount, color.YellowString(symbol))
	fmt.Printf("  Raw:      %s (%d decimals)\n", color.HiBlackString(result.RawAmount), result.Decimals)
	if symbol != result.Mint {
		fmt.Printf("  Mint:     %s\n", color.HiBlackString(result.Mint))
	}
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
	return nil
}
