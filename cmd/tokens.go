package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jupiter-mcp/pkg/parser"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List the token symbols the tools accept",
	Long: `List the token symbols that can be used in place of mint addresses.
Any other SPL token works by passing its mint address.

Examples:
  jupiter-mcp list-tokens
  jupiter-mcp list-tokens --symbol US`,
	Args: cobra.NoArgs,
	RunE: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) error {
	tokens := parser.KnownTokens()

	if filterSymbol != "" {
		var filtered []parser.Token
		for _, token := range tokens {
			if strings.Contains(token.Symbol, strings.ToUpper(filterSymbol)) {
				filtered = append(filtered, token)
			}
		}
		tokens = filtered
	}

	if jsonOutput(cmd) {
		out := make([]map[string]any, 0, len(tokens))
		for _, t := range tokens {
			out = append(out, map[string]any{
				"symbol":   t.Symbol,
				"name":     t.Name,
				"mint":     t.Mint,
				"decimals": t.Decimals,
			})
		}
		printJSON(out)
		return nil
	}
	displayTokens(tokens)
	return nil
}

func displayTokens(tokens []parser.Token) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))
	fmt.Println()

	for _, token := range tokens {
		fmt.Printf("  %-10s  %-14s  %2d decimals  %s\n",
			color.YellowString(token.Symbol),
			token.Name,
			token.Decimals,
			color.HiBlackString(token.Mint))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	printSuccess(fmt.Sprintf("Total: %d tokens. Any other SPL token can be used by mint address.", len(tokens)))
}
