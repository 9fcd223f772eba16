package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petaltools/integrations"
	"github.com/petal-labs/petaltools/tool"
)

const unsetValue = "(unset)"

// NewConfigCmd creates the "config" command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect resolved configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print each integration's resolved settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	cmd.Flags().Bool("json", false, "Print settings as JSON")
	return cmd
}

type settingView struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Required  bool   `json:"required"`
	Sensitive bool   `json:"sensitive"`
}

type integrationSettingsView struct {
	Integration string        `json:"integration"`
	Missing     []string      `json:"missing,omitempty"`
	Settings    []settingView `json:"settings"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	declared := integrations.Settings(s.options)
	views := make([]integrationSettingsView, 0, len(declared))
	for _, integration := range integrations.Builtin(s.options) {
		settings := declared[integration.Name()]
		cfg := tool.NewEnvResolver(settings, tool.WithLookup(s.options.Lookup)).Resolve()
		redacted := cfg.Redacted()

		view := integrationSettingsView{Integration: integration.Name(), Missing: cfg.Missing()}
		for _, setting := range settings {
			view.Settings = append(view.Settings, settingView{
				Name:      setting.Name,
				Value:     redacted[setting.Name],
				Required:  setting.Required,
				Sensitive: setting.Sensitive,
			})
		}
		views = append(views, view)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, map[string]any{
			"config_path":  s.configPath,
			"integrations": views,
		})
	}

	out := cmd.OutOrStdout()
	configPath := s.configPath
	if configPath == "" {
		configPath = "(none)"
	}
	fmt.Fprintf(out, "Config file: %s\n", configPath)
	for _, view := range views {
		fmt.Fprintf(out, "\n%s:\n", view.Integration)
		for _, setting := range view.Settings {
			value := setting.Value
			if value == "" {
				value = unsetValue
			}
			suffix := ""
			if setting.Required {
				suffix = " (required)"
			}
			fmt.Fprintf(out, "  %s: %s%s\n", setting.Name, value, suffix)
		}
	}
	return nil
}
