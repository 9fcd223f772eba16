package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petaltools/tool/mcp"
)

// NewMCPCmd creates the "mcp" subcommand, which serves the registry as an
// MCP server over stdio.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve registered operations as MCP tools over stdio",
		Long: "Registers every configured integration, then answers MCP JSON-RPC requests read from " +
			"stdin, one per line. Diagnostics go to stderr.",
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	coordinator, err := startCoordinator(cmd, s, nil)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.ServerConfig{
		Registry: coordinator.Registry(),
		Version:  cmd.Root().Version,
		Logger:   slog.Default(),
	})
	if err != nil {
		return exitError(exitRuntime, "creating MCP server: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Serve blocks on stdin, so it runs beside the signal wait.
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return exitError(exitRuntime, "mcp server: %v", err)
		}
		return nil
	}
}
