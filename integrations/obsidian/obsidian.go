// Package obsidian exposes a local Obsidian vault as a set of note operations.
package obsidian

import (
	"os"
	"path/filepath"
	"time"

	"github.com/petal-labs/petaltools/tool"
)

// Name is the integration's registry name.
const Name = "obsidian"

// Environment settings read by the integration.
const (
	EnvVaultPath         = "OBSIDIAN_VAULT_PATH"
	EnvTemplatesPath     = "OBSIDIAN_TEMPLATES_PATH"
	DefaultTemplatesPath = "templates/"
)

// Settings returns the integration's declared environment settings.
func Settings() []tool.Setting {
	return []tool.Setting{
		{
			Name:     EnvVaultPath,
			Required: true,
			Hint:     "Set it to your vault path (e.g., /Users/username/Documents/Obsidian/Vault)",
		},
		{Name: EnvTemplatesPath, Default: DefaultTemplatesPath},
	}
}

// Config customizes an Integration. The zero value reads the process
// environment.
type Config struct {
	Lookup tool.LookupFunc
	Now    func() time.Time
}

// Integration owns the vault configuration, its availability gate and the
// lazily opened vault shared by every operation.
type Integration struct {
	gate  *tool.Gate
	vault *tool.LazyClient[*Vault]
	now   func() time.Time
}

// New creates the Obsidian integration. Nothing is read until first use.
func New(cfg Config) *Integration {
	var opts []tool.ResolverOption
	if cfg.Lookup != nil {
		opts = append(opts, tool.WithLookup(cfg.Lookup))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	gate := tool.NewGate(tool.NewEnvResolver(Settings(), opts...), probeVault)
	return &Integration{
		gate: gate,
		vault: tool.NewLazyClient(gate, func(c tool.Config) (*Vault, error) {
			return OpenVault(c.Get(EnvVaultPath), c.Get(EnvTemplatesPath))
		}),
		now: cfg.Now,
	}
}

func probeVault(cfg tool.Config) error {
	path := cfg.Get(EnvVaultPath)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return tool.ConfigurationError(tool.ToolErrorCodeConfigurationInvalid,
			"Obsidian vault path does not exist: "+path)
	}
	root, err := filepath.EvalSymlinks(path)
	if err != nil {
		return tool.ConfigurationError(tool.ToolErrorCodeConfigurationInvalid,
			"Obsidian vault path cannot be resolved: "+path)
	}
	_, err = resolveTemplatesDir(root, cfg.Get(EnvTemplatesPath))
	return err
}

func (i *Integration) Name() string  { return Name }
func (i *Integration) Title() string { return "Obsidian" }

// CheckAvailability reports whether the vault is configured and present.
func (i *Integration) CheckAvailability() tool.Availability {
	return i.gate.Check()
}

// AvailabilityGate exposes the gate for error classification.
func (i *Integration) AvailabilityGate() *tool.Gate {
	return i.gate
}

// Reset drops the cached configuration and vault handle.
func (i *Integration) Reset() {
	i.vault.Reset()
}

// Vault returns the shared vault handle.
func (i *Integration) Vault() (*Vault, error) {
	return i.vault.Get()
}

// RegisterInto adds every Obsidian operation to reg when the vault is available.
func (i *Integration) RegisterInto(reg *tool.Registry) (bool, error) {
	return tool.RegisterIfAvailable(reg, i.gate, i.Operations())
}

var (
	_ tool.Integration = (*Integration)(nil)
	_ tool.Resettable  = (*Integration)(nil)
	_ tool.Gated       = (*Integration)(nil)
	_ tool.Titled      = (*Integration)(nil)
)
