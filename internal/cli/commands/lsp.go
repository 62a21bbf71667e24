package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/batonlint/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. The project
configuration is loaded from the client's workspace root (rootUri) and
reloaded whenever batonlint.yaml changes.`,
		Example: `  # Start LSP server (usually called by an editor)
  batonlint lsp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd, "")
			if err != nil {
				return err
			}
			server := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(),
				lsp.WithLogger(cmdCtx.Logger),
				lsp.WithConfig(cmdCtx.Cfg),
			)
			return server.Run()
		},
	}
}
