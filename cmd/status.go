package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"jupiter-mcp/pkg/app"
	"jupiter-mcp/pkg/toolerr"
	"jupiter-mcp/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the status of a swap transaction",
	Long: `Check whether a transaction signature is pending, confirmed or failed.
Use it to resolve swaps that ended indeterminate before retrying them.

Examples:
  jupiter-mcp status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb...
  jupiter-mcp status <signature> --watch
  jupiter-mcp status <signature> --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch until the transaction confirms or fails")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

type statusOutput struct {
	Signature   string `json:"signature"`
	State       string `json:"state"`
	Slot        uint64 `json:"slot,omitempty"`
	Commitment  string `json:"commitment,omitempty"`
	Error       string `json:"error,omitempty"`
	ExplorerURL string `json:"explorer_url"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	sig, err := solana.SignatureFromBase58(args[0])
	if err != nil {
		return fail(cmd, toolerr.Wrap(toolerr.KindValidation, err, "invalid transaction signature"))
	}
	if watchStatus && jsonOutput(cmd) {
		return fail(cmd, toolerr.New(toolerr.KindValidation, "watch mode not supported with JSON output"))
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := loadApp(ctx, cmd, true)
	if err != nil {
		return fail(cmd, err)
	}
	defer a.Close()

	if watchStatus {
		watchTxStatus(ctx, a, sig)
		return nil
	}
	return checkTxStatus(ctx, cmd, a, sig)
}

func checkTxStatus(ctx context.Context, cmd *cobra.Command, a *app.App, sig solana.Signature) error {
	s := newSpinner("Checking transaction status...")
	if !jsonOutput(cmd) {
		s.Start()
	}

	status, err := a.Chain.SignatureStatus(ctx, sig)
	if !jsonOutput(cmd) {
		s.Stop()
	}

	if err != nil {
		return fail(cmd, err)
	}

	if jsonOutput(cmd) {
		printJSON(toStatusOutput(a, sig, status))
	} else {
		displayStatus(toStatusOutput(a, sig, status))
	}
	return nil
}

func watchTxStatus(ctx context.Context, a *app.App, sig solana.Signature) {
	if watchInterval < 1 {
		watchInterval = 1
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(sig.String()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	for {
		if checkAndDisplayStatus(ctx, a, sig) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// checkAndDisplayStatus prints one observation and reports whether it is final
func checkAndDisplayStatus(ctx context.Context, a *app.App, sig solana.Signature) bool {
	status, err := a.Chain.SignatureStatus(ctx, sig)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(toStatusOutput(a, sig, status))
	return status.State != types.TxPending
}

func toStatusOutput(a *app.App, sig solana.Signature, status types.TxStatus) statusOutput {
	return statusOutput{
		Signature:   sig.String(),
		State:       string(status.State),
		Slot:        status.Slot,
		Commitment:  status.Commitment,
		Error:       status.Err,
		ExplorerURL: a.Config.Network.ExplorerURL(sig.String()),
	}
}

func displayStatus(out statusOutput) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Signature:   %s\n", color.CyanString(out.Signature))
	fmt.Printf("  Status:      %s\n", coloredState(out.State))
	if out.Commitment != "" {
		fmt.Printf("  Commitment:  %s\n", out.Commitment)
	}
	if out.Slot > 0 {
		fmt.Printf("  Slot:        %d\n", out.Slot)
	}
	if out.Error != "" {
		fmt.Printf("  Error:       %s\n", color.RedString(out.Error))
	}
	fmt.Printf("  Explorer:    %s\n", color.HiBlackString(out.ExplorerURL))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
