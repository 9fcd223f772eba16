package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petaltools/tool"
)

// NewIntegrationsCmd creates the "integrations" command group.
func NewIntegrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrations",
		Short: "Inspect integration availability and registration history",
	}

	cmd.AddCommand(newIntegrationsStatusCmd())
	cmd.AddCommand(newIntegrationsHistoryCmd())

	return cmd
}

func newIntegrationsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Register integrations and report which ones loaded",
		Args:  cobra.NoArgs,
		RunE:  runIntegrationsStatus,
	}
	cmd.Flags().Bool("json", false, "Print statuses as JSON")
	return cmd
}

func runIntegrationsStatus(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	coordinator, err := startCoordinator(cmd, s, nil)
	if err != nil {
		return err
	}

	statuses := coordinator.Statuses()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, map[string]any{"integrations": statuses})
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tSTATE\tOPERATIONS\tAVAILABLE\tREASON")
	for _, status := range statuses {
		reason := status.Reason
		if reason == "" {
			reason = status.AvailabilityReason
		}
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%t\t%s\n", status.Name, status.State, status.Operations, status.Available, reason)
	}
	return writer.Flush()
}

func newIntegrationsHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded registration runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runIntegrationsHistory,
	}
	cmd.Flags().Int("limit", 10, "Maximum number of runs to show (0 uses the store default of 20)")
	cmd.Flags().String("store-path", "", "Path to SQLite registration history (default: ~/.petaltools/petaltools.db)")
	cmd.Flags().Bool("json", false, "Print runs as JSON")
	return cmd
}

func runIntegrationsHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return exitError(exitValidation, "--limit must be >= 0")
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	path, err := resolveStorePath(cmd, s.config)
	if err != nil {
		return err
	}
	store, err := tool.NewSQLiteHistoryStore(path)
	if err != nil {
		return exitError(exitRuntime, "opening registration history: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return exitError(exitRuntime, "listing registration history: %v", err)
	}
	if runs == nil {
		runs = []tool.Summary{}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, map[string]any{"registrations": runs})
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "RUN_ID\tSTARTED\tLOADED\tOPERATIONS")
	for _, run := range runs {
		loaded := strconv.Itoa(run.LoadedCount()) + "/" + strconv.Itoa(len(run.Outcomes))
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\n", run.RunID, run.StartedAt.UTC().Format(time.RFC3339), loaded, run.Operations())
	}
	return writer.Flush()
}
