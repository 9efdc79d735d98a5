package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jupiter-mcp/config"
	"jupiter-mcp/pkg/app"
	"jupiter-mcp/pkg/logger"
	"jupiter-mcp/pkg/toolerr"
)

var rootCmd = &cobra.Command{
	Use:   "jupiter-mcp",
	Short: "An MCP server for token swaps on Solana through Jupiter",
	Long: `jupiter-mcp exposes get_balance, get_quote and execute_swap to MCP clients
over stdio, signing swaps with a local Solana key. Running it without a
subcommand starts the server.

The same operations are available from the command line:

Examples:
  jupiter-mcp                       # serve MCP on stdio
  jupiter-mcp balance USDC
  jupiter-mcp quote 1 SOL to USDC
  jupiter-mcp swap 0.5 SOL to USDC --slippage 100
  jupiter-mcp status <signature> --watch
  jupiter-mcp list-tokens`,
	Version: app.Version,
	RunE:    runServe,
}

// ErrReported is returned by commands that already printed their failure
var ErrReported = errors.New("error already reported")

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadApp reads configuration and wires the application. quiet keeps
// logs below warnings off the terminal unless --verbose is set.
func loadApp(ctx context.Context, cmd *cobra.Command, quiet bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := cfg.Log.Level
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "warn"
	}
	logger.Init(logger.Config{Level: level, Format: cfg.Log.Format})

	return app.New(ctx, cfg)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func printError(err error) {
	if e, ok := toolerr.From(err); ok {
		fmt.Printf("\nError [%s]: %s\n", e.Kind(), e.Detail())
		if e.Signature() != "" {
			fmt.Printf("  Signature: %s\n", color.CyanString(e.Signature()))
		}
		if e.Retryable() {
			color.Yellow("  This error is transient; retrying may succeed.")
		}
		fmt.Println()
		return
	}
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// fail reports err in the selected output format
func fail(cmd *cobra.Command, err error) error {
	if jsonOutput(cmd) {
		printJSON(map[string]any{"error": errorJSON(err)})
	} else {
		printError(err)
	}
	return ErrReported
}

func errorJSON(err error) map[string]any {
	e, ok := toolerr.From(err)
	if !ok {
		e = toolerr.Wrap(toolerr.KindInternal, err, err.Error())
	}
	out := map[string]any{
		"kind":      string(e.Kind()),
		"message":   e.Detail(),
		"retryable": e.Retryable(),
	}
	if e.Signature() != "" {
		out["signature"] = e.Signature()
	}
	return out
}
