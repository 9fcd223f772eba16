package integrations

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petal-labs/petaltools/tool"
)

func lookupFrom(env map[string]string) tool.LookupFunc {
	return func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}
}

func runCoordinator(t *testing.T, env map[string]string) (*tool.Coordinator, *tool.Registry, tool.Summary, string) {
	t.Helper()
	reg := tool.NewRegistry()
	var diagnostics bytes.Buffer
	coordinator, err := tool.NewCoordinator(tool.CoordinatorConfig{
		Integrations: Builtin(Options{Lookup: lookupFrom(env)}),
		Registry:     reg,
		Diagnostics:  &diagnostics,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	summary := coordinator.Run(context.Background())
	return coordinator, reg, summary, diagnostics.String()
}

func TestNoConfigurationLoadsNothing(t *testing.T) {
	coordinator, reg, summary, diagnostics := runCoordinator(t, map[string]string{})

	if summary.LoadedCount() != 0 || reg.Len() != 0 {
		t.Fatalf("loaded = %d, operations = %d", summary.LoadedCount(), reg.Len())
	}
	for _, name := range []string{"notion", "todoist", "obsidian"} {
		if got := coordinator.State(name); got != tool.StateFailed {
			t.Fatalf("State(%s) = %q, want failed", name, got)
		}
	}
	for _, want := range []string{
		"⚠ Notion tools not registered: NOTION_TOKEN environment variable is not set.",
		"⚠ Todoist tools not registered: TODOIST_TOKEN environment variable is not set.",
		"⚠ Obsidian tools not registered: OBSIDIAN_VAULT_PATH environment variable is not set.",
		"⚠ Warning: No tools loaded",
	} {
		if !strings.Contains(diagnostics, want) {
			t.Fatalf("diagnostics missing %q:\n%s", want, diagnostics)
		}
	}
}

func TestVaultOnlyScenario(t *testing.T) {
	vault := t.TempDir()
	coordinator, reg, _, diagnostics := runCoordinator(t, map[string]string{"OBSIDIAN_VAULT_PATH": vault})

	if coordinator.State("obsidian") != tool.StateLoaded {
		t.Fatalf("obsidian state = %q", coordinator.State("obsidian"))
	}
	if coordinator.State("notion") != tool.StateFailed || coordinator.State("todoist") != tool.StateFailed {
		t.Fatal("hosted integrations loaded without tokens")
	}
	if !strings.Contains(diagnostics, "✓ Obsidian tools: LOADED (10 operations)") {
		t.Fatalf("diagnostics = %s", diagnostics)
	}

	result := reg.Invoke(context.Background(), "obsidian_create_note", tool.Args{"note_path": "test", "content": "hello"})
	if !result.Success {
		t.Fatalf("create_note error = %s", result.Error)
	}
	if path := result.Payload["note"].(map[string]any)["path"]; path != "test.md" {
		t.Fatalf("note path = %v, want test.md", path)
	}

	if _, ok := reg.Get("notion_get_page"); ok {
		t.Fatal("notion operation registered without token")
	}

	// Operations stay callable directly, and report the missing setting.
	for _, integration := range coordinator.Integrations() {
		if integration.Name() != "notion" {
			continue
		}
		ops := integration.(interface{ Operations() []tool.Operation }).Operations()
		result := ops[0].Invoke(context.Background(), tool.Args{"title": "x"})
		if result.Success || !strings.Contains(result.Error, "NOTION_TOKEN") {
			t.Fatalf("notion op = %+v", result)
		}
	}
}

func TestSoftDeleteScenario(t *testing.T) {
	vault := t.TempDir()
	_, reg, _, _ := runCoordinator(t, map[string]string{"OBSIDIAN_VAULT_PATH": vault})

	if result := reg.Invoke(context.Background(), "obsidian_create_note", tool.Args{"note_path": "temp", "content": "x"}); !result.Success {
		t.Fatalf("create_note error = %s", result.Error)
	}
	result := reg.Invoke(context.Background(), "obsidian_delete_note", tool.Args{"note_path": "temp"})
	if !result.Success || result.Payload["permanent"] != false {
		t.Fatalf("delete_note = %+v", result)
	}
	if _, err := os.Stat(filepath.Join(vault, "temp.md")); !os.IsNotExist(err) {
		t.Fatalf("original still exists: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vault, "temp.md.trash")); err != nil {
		t.Fatalf("trash file: %v", err)
	}
}

func TestSettingsCoverEveryIntegration(t *testing.T) {
	settings := Settings(Options{NotionBaseURL: "http://localhost:9999"})
	if len(settings) != len(Builtin(Options{})) {
		t.Fatalf("settings for %d integrations", len(settings))
	}
	for _, setting := range settings["notion"] {
		if setting.Name == "NOTION_API_URL" && setting.Default != "http://localhost:9999" {
			t.Fatalf("NOTION_API_URL default = %q", setting.Default)
		}
	}
}
