// Package todoist exposes Todoist tasks and projects as gateway operations.
package todoist

import (
	"net/http"
	"strings"
	"time"

	"github.com/petal-labs/petaltools/tool"
)

// Name is the integration's registry name.
const Name = "todoist"

// Environment settings read by the integration.
const (
	EnvToken       = "TODOIST_TOKEN"
	EnvAPIURL      = "TODOIST_API_URL"
	DefaultBaseURL = "https://api.todoist.com/rest/v2"
)

// Settings returns the declared settings. baseURL replaces the default API
// URL when non-empty; TODOIST_API_URL still takes precedence.
func Settings(baseURL string) []tool.Setting {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return []tool.Setting{
		{
			Name:      EnvToken,
			Required:  true,
			Sensitive: true,
			Hint:      "Get one from https://todoist.com/app/settings/integrations",
		},
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

// Integration owns the Todoist configuration, gate and shared client.
type Integration struct {
	gate   *tool.Gate
	client *tool.LazyClient[*Client]
}

// New creates the Todoist integration. Nothing is read until first use.
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

func probe(c tool.Config) error {
	if _, err := NewClient(ClientConfig{BaseURL: c.Get(EnvAPIURL), Token: c.Get(EnvToken)}); err != nil {
		return tool.ConfigurationError(tool.ToolErrorCodeConfigurationInvalid, EnvAPIURL+": "+err.Error())
	}
	return nil
}

func (i *Integration) Name() string  { return Name }
func (i *Integration) Title() string { return "Todoist" }

func (i *Integration) CheckAvailability() tool.Availability {
	return i.gate.Check()
}

func (i *Integration) AvailabilityGate() *tool.Gate {
	return i.gate
}

func (i *Integration) Reset() {
	i.client.Reset()
}

// RegisterInto adds every Todoist operation to reg when a token is configured.
func (i *Integration) RegisterInto(reg *tool.Registry) (bool, error) {
	return tool.RegisterIfAvailable(reg, i.gate, i.Operations())
}

var (
	_ tool.Integration = (*Integration)(nil)
	_ tool.Resettable  = (*Integration)(nil)
	_ tool.Gated       = (*Integration)(nil)
)
