package cmd

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools on stdio",
	Long: `Start the MCP server on stdin/stdout. This is also what runs when no
subcommand is given, so MCP host configs can point directly at the binary.

Logs are written to stderr; stdout carries only the JSON-RPC stream.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := loadApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx)
}
