package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/petaltools/daemon"
	"github.com/petal-labs/petaltools/tool"
)

// NewToolsCmd creates the "tools" command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List, inspect and call operations",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInspectCmd())
	cmd.AddCommand(newToolsCallCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered operations",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
	cmd.Flags().String("integration", "", "Only list operations of this integration")
	cmd.Flags().Bool("all", false, "Include operations of integrations that are not configured")
	cmd.Flags().Bool("json", false, "Print the catalog as JSON")
	return cmd
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	coordinator, err := startCoordinator(cmd, s, nil)
	if err != nil {
		return err
	}

	integration, _ := cmd.Flags().GetString("integration")
	integration = strings.TrimSpace(integration)
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")

	ops := coordinator.Registry().Operations()
	if all {
		ops = allOperations(coordinator)
	}
	views := make([]daemon.ToolView, 0, len(ops))
	for _, op := range ops {
		if integration != "" && op.Integration != integration {
			continue
		}
		views = append(views, daemon.NewToolView(op))
	}

	if asJSON {
		return printJSON(cmd, map[string]any{"tools": views})
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tINTEGRATION\tDESCRIPTION")
	for _, view := range views {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", view.Name, view.Integration, firstLine(view.Description))
	}
	return writer.Flush()
}

// allOperations lists every integration's fixed operation set, registered or not.
func allOperations(coordinator *tool.Coordinator) []tool.Operation {
	var ops []tool.Operation
	for _, integration := range coordinator.Integrations() {
		if lister, ok := integration.(operationLister); ok {
			ops = append(ops, lister.Operations()...)
		}
	}
	slices.SortFunc(ops, func(a, b tool.Operation) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ops
}

func newToolsInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>",
		Short: "Print an operation's description and input schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsInspect,
	}
}

func runToolsInspect(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	coordinator, err := startCoordinator(cmd, s, nil)
	if err != nil {
		return err
	}

	op, ok := findOperation(coordinator, args[0])
	if !ok {
		return exitError(exitNotFound, "unknown tool: %s", args[0])
	}
	return printJSON(cmd, daemon.NewToolView(op))
}

func newToolsCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Invoke one operation and print its result envelope",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsCall,
	}
	cmd.Flags().String("args", "", "Operation arguments as a JSON object")
	cmd.Flags().String("args-file", "", "Read operation arguments from a JSON or YAML file")
	cmd.MarkFlagsMutuallyExclusive("args", "args-file")
	return cmd
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	callArgs, err := readCallArgs(cmd)
	if err != nil {
		return err
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	coordinator, err := startCoordinator(cmd, s, nil)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(args[0])
	op, ok := findOperation(coordinator, name)
	if !ok {
		return exitError(exitNotFound, "unknown tool: %s", name)
	}

	result := op.Invoke(cmd.Context(), callArgs)
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if !result.Success {
		return exitError(exitRuntime, "%s failed: %s", name, result.Error)
	}
	return nil
}

func readCallArgs(cmd *cobra.Command) (tool.Args, error) {
	inline, _ := cmd.Flags().GetString("args")
	path, _ := cmd.Flags().GetString("args-file")

	switch {
	case strings.TrimSpace(inline) != "":
		decoder := json.NewDecoder(strings.NewReader(inline))
		decoder.UseNumber()
		var parsed map[string]any
		if err := decoder.Decode(&parsed); err != nil {
			return nil, exitError(exitInputParse, "parsing --args: %v", err)
		}
		return tool.Args(parsed), nil
	case strings.TrimSpace(path) != "":
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, exitError(exitNotFound, "args file %q not found", path)
			}
			return nil, exitError(exitInputParse, "reading args file: %v", err)
		}
		// YAML is a superset of JSON, so one decoder covers both formats.
		var parsed map[string]any
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, exitError(exitInputParse, "parsing args file %q: %v", path, err)
		}
		return tool.Args(parsed), nil
	}
	return tool.Args{}, nil
}

func printJSON(cmd *cobra.Command, value any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return line
}
