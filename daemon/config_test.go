package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDiscoverConfigPathFrom_FirstMatchWins(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	projectConfig := writeConfig(t, cwd, "petaltools.yaml", "server: {}")
	homeConfig := writeConfig(t, home, ".petaltools/config.yaml", "server: {}")

	got, found, err := DiscoverConfigPathFrom("", cwd, home)
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if !found || got != projectConfig {
		t.Fatalf("path = %q (found %v), want %q", got, found, projectConfig)
	}

	if err := os.Remove(projectConfig); err != nil {
		t.Fatal(err)
	}
	got, found, err = DiscoverConfigPathFrom("", cwd, home)
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if !found || got != homeConfig {
		t.Fatalf("path = %q (found %v), want %q", got, found, homeConfig)
	}
}

func TestDiscoverConfigPathFrom_NothingFound(t *testing.T) {
	got, found, err := DiscoverConfigPathFrom("", t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("DiscoverConfigPathFrom() error = %v", err)
	}
	if found || got != "" {
		t.Fatalf("path = %q (found %v), want nothing", got, found)
	}
}

func TestDiscoverConfigPathFrom_ExplicitNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	_, found, err := DiscoverConfigPathFrom(missing, t.TempDir(), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
	if found {
		t.Fatal("found = true, want false")
	}
}

func TestLoadConfigExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("PETALTOOLS_TEST_COLLECTOR", "collector.local:4318")
	path := writeConfig(t, t.TempDir(), "petaltools.yaml", `
server:
  port: 9090
store:
  path: ~/data/history.db
telemetry:
  otlp_endpoint: ${PETALTOOLS_TEST_COLLECTOR}
  insecure: true
integrations:
  notion:
    base_url: http://localhost:9999/v1
http:
  timeout: 5s
monitor:
  enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Host != DefaultHost || cfg.Server.Port != 9090 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if got := cfg.Addr(); got != "127.0.0.1:9090" {
		t.Fatalf("Addr() = %q, want %q", got, "127.0.0.1:9090")
	}
	if cfg.Telemetry.OTLPEndpoint != "collector.local:4318" || !cfg.Telemetry.Insecure {
		t.Fatalf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Integrations.Notion.BaseURL != "http://localhost:9999/v1" || cfg.Integrations.Todoist.BaseURL != "" {
		t.Fatalf("integrations = %+v", cfg.Integrations)
	}
	if strings.HasPrefix(cfg.Store.Path, "~") || !strings.HasSuffix(cfg.Store.Path, filepath.Join("data", "history.db")) {
		t.Fatalf("store path = %q, want home-expanded", cfg.Store.Path)
	}
	if timeout, err := cfg.Timeout(); err != nil || timeout != 5*time.Second {
		t.Fatalf("Timeout() = %v, %v", timeout, err)
	}
	if cfg.MonitorEnabled() {
		t.Fatal("MonitorEnabled() = true, want false")
	}
	if cfg.Monitor.Schedule != DefaultConfig().Monitor.Schedule {
		t.Fatalf("schedule = %q, want default", cfg.Monitor.Schedule)
	}
}

func TestLoadConfigEmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "petaltools.yaml", "")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Addr() != DefaultConfig().Addr() || !cfg.MonitorEnabled() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "servr:\n  port: 1\n",
		"bad port":      "server:\n  port: 70000\n",
		"bad timeout":   "http:\n  timeout: soon\n",
		"bad schedule":  "monitor:\n  schedule: \"61 * * * *\"\n",
		"negative time": "http:\n  timeout: -1s\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "petaltools.yaml", content)
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("LoadConfig() error = nil, want error")
			}
		})
	}
}
