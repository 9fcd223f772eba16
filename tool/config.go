package tool

import (
	"os"
	"strings"
	"sync"
)

// Setting declares one environment-derived value an integration reads.
type Setting struct {
	Name      string
	Required  bool
	Default   string
	Sensitive bool
	// Hint tells the operator how to obtain a missing value.
	Hint string
}

// Config is a frozen snapshot of resolved settings.
type Config struct {
	settings []Setting
	values   map[string]string
}

// Get returns the resolved value for name, or "" when absent.
func (c Config) Get(name string) string {
	return c.values[name]
}

// Lookup returns the resolved value and whether it is non-empty.
func (c Config) Lookup(name string) (string, bool) {
	value := c.values[name]
	return value, value != ""
}

// Missing returns the names of required settings that resolved empty, in
// declaration order.
func (c Config) Missing() []string {
	var missing []string
	for _, setting := range c.settings {
		if setting.Required && strings.TrimSpace(c.values[setting.Name]) == "" {
			missing = append(missing, setting.Name)
		}
	}
	return missing
}

// Setting returns the declaration for name.
func (c Config) Setting(name string) (Setting, bool) {
	for _, setting := range c.settings {
		if setting.Name == name {
			return setting, true
		}
	}
	return Setting{}, false
}

// Redacted returns the resolved values with sensitive entries masked.
func (c Config) Redacted() map[string]string {
	return MaskSensitiveSettings(c.settings, c.values)
}

// LookupFunc reads one variable. It matches os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// ResolverOption configures an EnvResolver.
type ResolverOption func(*EnvResolver)

// WithLookup replaces os.LookupEnv as the variable source.
func WithLookup(lookup LookupFunc) ResolverOption {
	return func(r *EnvResolver) {
		if lookup != nil {
			r.lookup = lookup
		}
	}
}

// EnvResolver resolves an integration's settings on first access and caches
// the snapshot until Reset.
type EnvResolver struct {
	settings []Setting
	lookup   LookupFunc

	mu         sync.Mutex
	resolved   bool
	cached     Config
	generation uint64
}

// NewEnvResolver creates a resolver over the given settings.
func NewEnvResolver(settings []Setting, opts ...ResolverOption) *EnvResolver {
	r := &EnvResolver{
		settings: append([]Setting(nil), settings...),
		lookup:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the cached snapshot, reading every setting on the first call.
func (r *EnvResolver) Resolve() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return r.cached
	}

	values := make(map[string]string, len(r.settings))
	for _, setting := range r.settings {
		value, ok := r.lookup(setting.Name)
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			value = setting.Default
		}
		values[setting.Name] = value
	}
	r.cached = Config{settings: r.settings, values: values}
	r.resolved = true
	return r.cached
}

// Reset discards the cached snapshot so the next Resolve re-reads the environment.
func (r *EnvResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = false
	r.cached = Config{}
	r.generation++
}

// Generation identifies the current snapshot. It changes on every Reset.
func (r *EnvResolver) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Settings returns the declared settings.
func (r *EnvResolver) Settings() []Setting {
	return append([]Setting(nil), r.settings...)
}

func missingSettingMessage(setting Setting) string {
	msg := setting.Name + " environment variable is not set."
	if hint := strings.TrimSpace(setting.Hint); hint != "" {
		msg += " " + hint
	}
	return msg
}
