package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petaltools/daemon"
	"github.com/petal-labs/petaltools/integrations"
	"github.com/petal-labs/petaltools/tool"
)

// EnvSQLitePath overrides the registration history location.
const EnvSQLitePath = "PETALTOOLS_SQLITE_PATH"

// settings is the resolved config file plus the integration options derived from it.
type settings struct {
	config     daemon.Config
	configPath string
	options    integrations.Options
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path, found, err := daemon.DiscoverConfigPath(explicit)
	if err != nil {
		if strings.TrimSpace(explicit) != "" {
			return settings{}, exitError(exitNotFound, "%v", err)
		}
		return settings{}, exitError(exitRuntime, "%v", err)
	}

	cfg := daemon.DefaultConfig()
	if found {
		cfg, err = daemon.LoadConfig(path)
		if err != nil {
			return settings{}, exitError(exitValidation, "%v", err)
		}
		slog.Debug("loaded config", "path", path)
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return settings{}, exitError(exitValidation, "%v", err)
	}

	return settings{
		config:     cfg,
		configPath: path,
		options: integrations.Options{
			NotionBaseURL:  cfg.Integrations.Notion.BaseURL,
			TodoistBaseURL: cfg.Integrations.Todoist.BaseURL,
			Timeout:        timeout,
		},
	}, nil
}

// diagnosticsWriter receives the human-readable registration lines.
func diagnosticsWriter(cmd *cobra.Command) io.Writer {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return io.Discard
	}
	return cmd.ErrOrStderr()
}

// startCoordinator registers every configured integration into a fresh registry.
func startCoordinator(cmd *cobra.Command, s settings, history tool.HistoryStore) (*tool.Coordinator, error) {
	coordinator, err := tool.NewCoordinator(tool.CoordinatorConfig{
		Integrations: integrations.Builtin(s.options),
		Registry:     tool.NewRegistry(),
		Diagnostics:  diagnosticsWriter(cmd),
		Logger:       slog.Default(),
		History:      history,
	})
	if err != nil {
		return nil, exitError(exitRuntime, "creating coordinator: %v", err)
	}
	coordinator.Run(cmd.Context())
	return coordinator, nil
}

// resolveStorePath picks the history database: --store-path, then
// PETALTOOLS_SQLITE_PATH, then store.path, then ~/.petaltools/petaltools.db.
func resolveStorePath(cmd *cobra.Command, cfg daemon.Config) (string, error) {
	if flag := cmd.Flags().Lookup("store-path"); flag != nil {
		if value := strings.TrimSpace(flag.Value.String()); value != "" {
			return filepath.Clean(value), nil
		}
	}
	if value := strings.TrimSpace(os.Getenv(EnvSQLitePath)); value != "" {
		return filepath.Clean(value), nil
	}
	if value := strings.TrimSpace(cfg.Store.Path); value != "" {
		return filepath.Clean(value), nil
	}
	path, err := tool.DefaultSQLitePath()
	if err != nil {
		return "", exitError(exitRuntime, "%v", err)
	}
	return path, nil
}

type operationLister interface {
	Operations() []tool.Operation
}

// findOperation looks in the registry first, then in every integration's
// fixed operation set, so operations of unavailable integrations can still
// be invoked and report what is missing.
func findOperation(coordinator *tool.Coordinator, name string) (tool.Operation, bool) {
	if op, ok := coordinator.Registry().Get(name); ok {
		return op, true
	}
	for _, integration := range coordinator.Integrations() {
		lister, ok := integration.(operationLister)
		if !ok {
			continue
		}
		for _, op := range lister.Operations() {
			if op.Name == name {
				return op, true
			}
		}
	}
	return tool.Operation{}, false
}
