package daemon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/petaltools/tool"
)

const (
	projectConfigName = "petaltools.yaml"
	homeConfigDir     = ".petaltools"
	homeConfigName    = "config.yaml"
)

// Defaults applied before the config file is read.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8080
	DefaultHTTPTimeout = 30 * time.Second
)

// Config is the petaltools.yaml shape.
type Config struct {
	Server       ServerSettings      `yaml:"server"`
	Store        StoreSettings       `yaml:"store"`
	Monitor      MonitorSettings     `yaml:"monitor"`
	Telemetry    TelemetrySettings   `yaml:"telemetry"`
	Integrations IntegrationSettings `yaml:"integrations"`
	HTTP         HTTPSettings        `yaml:"http"`
}

// ServerSettings controls the HTTP listener.
type ServerSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreSettings locates the registration history database.
type StoreSettings struct {
	Path string `yaml:"path"`
}

// MonitorSettings controls background availability rechecks.
type MonitorSettings struct {
	Enabled  *bool  `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// TelemetrySettings configures OTLP trace export.
type TelemetrySettings struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// IntegrationSettings overrides per-integration API endpoints.
type IntegrationSettings struct {
	Notion  EndpointSettings `yaml:"notion"`
	Todoist EndpointSettings `yaml:"todoist"`
}

// EndpointSettings holds one upstream base URL.
type EndpointSettings struct {
	BaseURL string `yaml:"base_url"`
}

// HTTPSettings controls outbound requests to Notion and Todoist.
type HTTPSettings struct {
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		Server:  ServerSettings{Host: DefaultHost, Port: DefaultPort},
		Monitor: MonitorSettings{Schedule: tool.DefaultMonitorSchedule},
		HTTP:    HTTPSettings{Timeout: DefaultHTTPTimeout.String()},
	}
}

// MonitorEnabled reports whether the availability monitor should run.
// It defaults to true.
func (c Config) MonitorEnabled() bool {
	return c.Monitor.Enabled == nil || *c.Monitor.Enabled
}

// Timeout parses http.timeout.
func (c Config) Timeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.HTTP.Timeout)
	if raw == "" {
		return DefaultHTTPTimeout, nil
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("http.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("http.timeout must be positive, got %s", raw)
	}
	return timeout, nil
}

// Addr returns host:port for the listener.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	if c.MonitorEnabled() && strings.TrimSpace(c.Monitor.Schedule) != "" {
		if _, err := tool.ParseSchedule(c.Monitor.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("monitor.schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

// DiscoverConfigPath resolves the config location with first-match semantics:
// the explicit path, then ./petaltools.yaml, then ~/.petaltools/config.yaml.
func DiscoverConfigPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverConfigPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverConfigPathFrom is a testable variant of DiscoverConfigPath.
func DiscoverConfigPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	explicit := strings.TrimSpace(explicitPath)
	candidates := make([]string, 0, 2)
	if explicit != "" {
		candidates = append(candidates, filepath.Clean(explicit))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if explicit != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// LoadConfig reads path over DefaultConfig. String values pass through
// os.ExpandEnv; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.expandEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expandEnv() {
	for _, value := range []*string{
		&c.Server.Host,
		&c.Store.Path,
		&c.Monitor.Schedule,
		&c.Telemetry.OTLPEndpoint,
		&c.Telemetry.ServiceName,
		&c.Integrations.Notion.BaseURL,
		&c.Integrations.Todoist.BaseURL,
		&c.HTTP.Timeout,
	} {
		*value = strings.TrimSpace(expandEnvValue(*value))
	}
	c.Store.Path = expandHome(c.Store.Path)
}

func expandEnvValue(value string) string {
	return os.ExpandEnv(value)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
