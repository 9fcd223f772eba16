package tool

import (
	"fmt"
	"sync"
)

// Availability reports whether an integration can currently serve requests.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Available returns the available status.
func Available() Availability {
	return Availability{Available: true}
}

// Unavailable returns an unavailable status with the given reason.
func Unavailable(reason string) Availability {
	return Availability{Reason: reason}
}

// ProbeFunc is an integration's cheap validation step, run once all required
// settings are present.
type ProbeFunc func(cfg Config) error

// Gate combines a resolver with a probe into a single availability check.
// The outcome is cached per configuration snapshot.
type Gate struct {
	resolver *EnvResolver
	probe    ProbeFunc

	mu         sync.Mutex
	checked    bool
	generation uint64
	status     Availability
	err        *ToolError
	probes     int
}

// NewGate creates a gate. A nil probe accepts any complete configuration.
func NewGate(resolver *EnvResolver, probe ProbeFunc) *Gate {
	if probe == nil {
		probe = func(Config) error { return nil }
	}
	return &Gate{resolver: resolver, probe: probe}
}

// Resolver returns the gate's resolver.
func (g *Gate) Resolver() *EnvResolver {
	return g.resolver
}

// Check returns the availability for the current configuration snapshot.
func (g *Gate) Check() Availability {
	status, _ := g.check()
	return status
}

// Err returns the configuration error behind an unavailable status, or nil.
func (g *Gate) Err() *ToolError {
	_, err := g.check()
	return err
}

// Probes reports how many times the probe has run.
func (g *Gate) Probes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probes
}

func (g *Gate) check() (Availability, *ToolError) {
	g.mu.Lock()
	defer g.mu.Unlock()

	generation := g.resolver.Generation()
	if g.checked && g.generation == generation {
		return g.status, g.err
	}

	cfg := g.resolver.Resolve()
	status, err := g.evaluate(cfg)
	g.status = status
	g.err = err
	g.generation = generation
	g.checked = true
	return status, err
}

func (g *Gate) evaluate(cfg Config) (Availability, *ToolError) {
	if missing := cfg.Missing(); len(missing) > 0 {
		setting, _ := cfg.Setting(missing[0])
		err := ConfigurationError(ToolErrorCodeConfigurationMissing, missingSettingMessage(setting))
		WithDetails(err, map[string]any{"missing": missing})
		return Unavailable(err.Message), err
	}

	g.probes++
	if probeErr := runProbe(g.probe, cfg); probeErr != nil {
		err := ConfigurationError(ToolErrorCodeConfigurationInvalid, messageOf(probeErr))
		err.Cause = probeErr
		return Unavailable(err.Message), err
	}
	return Available(), nil
}

func runProbe(probe ProbeFunc, cfg Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validation panic: %v", r)
		}
	}()
	return probe(cfg)
}
