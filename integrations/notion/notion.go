// Package notion exposes Notion pages and databases as gateway operations.
package notion

import (
	"net/http"
	"strings"
	"time"

	"github.com/petal-labs/petaltools/tool"
)

// Name is the integration's registry name.
const Name = "notion"

// Environment settings read by the integration.
const (
	EnvToken       = "NOTION_TOKEN"
	EnvDatabaseID  = "NOTION_DATABASE_ID"
	EnvAPIURL      = "NOTION_API_URL"
	DefaultBaseURL = "https://api.notion.com/v1"
)

// Settings returns the declared settings. baseURL replaces the default API
// URL when non-empty; NOTION_API_URL still takes precedence.
func Settings(baseURL string) []tool.Setting {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return []tool.Setting{
		{
			Name:      EnvToken,
			Required:  true,
			Sensitive: true,
			Hint:      "Get one from https://www.notion.so/my-integrations",
		},
		{Name: EnvDatabaseID},
		{Name: EnvAPIURL, Default: baseURL},
	}
}

// Config customizes an Integration.
type Config struct {
	Lookup     tool.LookupFunc
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Integration owns the Notion configuration, gate and shared client.
type Integration struct {
	gate   *tool.Gate
	client *tool.LazyClient[*Client]
}

// New creates the Notion integration. Nothing is read until first use.
func New(cfg Config) *Integration {
	var opts []tool.ResolverOption
	if cfg.Lookup != nil {
		opts = append(opts, tool.WithLookup(cfg.Lookup))
	}
	gate := tool.NewGate(tool.NewEnvResolver(Settings(cfg.BaseURL), opts...), probe)
	return &Integration{
		gate: gate,
		client: tool.NewLazyClient(gate, func(c tool.Config) (*Client, error) {
			return NewClient(ClientConfig{
				BaseURL:    c.Get(EnvAPIURL),
				Token:      c.Get(EnvToken),
				Timeout:    cfg.Timeout,
				HTTPClient: cfg.HTTPClient,
			})
		}),
	}
}

// probe builds a throwaway client so a bad URL or token surfaces before
// any operation is registered.
func probe(cfg tool.Config) error {
	if _, err := NewClient(ClientConfig{BaseURL: cfg.Get(EnvAPIURL), Token: cfg.Get(EnvToken)}); err != nil {
		return tool.ConfigurationError(tool.ToolErrorCodeConfigurationInvalid, EnvAPIURL+": "+err.Error())
	}
	return nil
}

func (i *Integration) Name() string  { return Name }
func (i *Integration) Title() string { return "Notion" }

// CheckAvailability reports whether a token is configured.
func (i *Integration) CheckAvailability() tool.Availability {
	return i.gate.Check()
}

// AvailabilityGate exposes the gate for error classification.
func (i *Integration) AvailabilityGate() *tool.Gate {
	return i.gate
}

// Reset drops the cached configuration and client.
func (i *Integration) Reset() {
	i.client.Reset()
}

// RegisterInto adds every Notion operation to reg when a token is configured.
func (i *Integration) RegisterInto(reg *tool.Registry) (bool, error) {
	return tool.RegisterIfAvailable(reg, i.gate, i.Operations())
}

func (i *Integration) defaultDatabaseID() string {
	return i.gate.Resolver().Resolve().Get(EnvDatabaseID)
}

var (
	_ tool.Integration = (*Integration)(nil)
	_ tool.Resettable  = (*Integration)(nil)
	_ tool.Gated       = (*Integration)(nil)
)
