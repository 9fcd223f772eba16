// Package cli implements the petaltools command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

// NewRootCmd creates the petaltools command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "petaltools",
		Short: "Notion, Todoist and Obsidian tools for AI orchestrators",
		Long: "petaltools registers the Notion, Todoist and Obsidian integrations that are configured in " +
			"the environment and serves their operations over MCP stdio or HTTP.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage:      true,
		PersistentPreRunE: setupCommand,
	}

	root.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	root.PersistentFlags().Bool("quiet", false, "Suppress all output except errors")
	root.PersistentFlags().String("config", "", "Path to petaltools.yaml (default: ./petaltools.yaml, then ~/.petaltools/config.yaml)")
	root.PersistentFlags().String("env-file", "", "Load environment variables from this file (default: ./.env when present)")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("petaltools version %s\n", version))

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewMCPCmd())
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewIntegrationsCmd())
	root.AddCommand(NewConfigCmd())
	return root
}

// setupCommand loads the env file and installs the default logger.
func setupCommand(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(cmd); err != nil {
		return err
	}
	slog.SetDefault(newLogger(cmd))
	return nil
}

func loadEnvFile(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return exitError(exitNotFound, "env file %q not found", envFile)
			}
			return exitError(exitInputParse, "loading env file %q: %v", envFile, err)
		}
		return nil
	}

	if _, err := os.Stat(defaultEnvFile); err != nil {
		return nil
	}
	// Existing environment values win over the file.
	if err := godotenv.Load(defaultEnvFile); err != nil {
		return exitError(exitInputParse, "loading %s: %v", defaultEnvFile, err)
	}
	return nil
}

// newLogger writes text logs to stderr; stdout is reserved for command output.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
