package tool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Integration is one of the fixed external systems fronted by the gateway.
type Integration interface {
	Name() string
	CheckAvailability() Availability
	// RegisterInto adds the integration's operations to reg and reports
	// whether it did. Nothing is added when it returns false.
	RegisterInto(reg *Registry) (bool, error)
}

// Resettable is implemented by integrations whose cached configuration and
// client can be discarded.
type Resettable interface {
	Reset()
}

// Gated is implemented by integrations that expose their availability gate.
type Gated interface {
	AvailabilityGate() *Gate
}

// Titled lets an integration choose its display name in diagnostics.
type Titled interface {
	Title() string
}

// RegisterIfAvailable is the shared body of Integration.RegisterInto.
func RegisterIfAvailable(reg *Registry, gate *Gate, ops []Operation) (bool, error) {
	if reg == nil {
		return false, errors.New("tool: registry is nil")
	}
	if !gate.Check().Available {
		return false, nil
	}
	reg.Register(ops...)
	return true, nil
}

// RegistrationState tracks one integration through startup.
type RegistrationState string

const (
	StateNotAttempted RegistrationState = "not_attempted"
	StateLoaded       RegistrationState = "loaded"
	StateFailed       RegistrationState = "failed"
)

// Outcome is one integration's registration result.
type Outcome struct {
	Integration string            `json:"integration"`
	State       RegistrationState `json:"state"`
	Loaded      bool              `json:"loaded"`
	Reason      string            `json:"reason,omitempty"`
	Operations  int               `json:"operations"`
}

// Summary aggregates one coordinator run.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// LoadedCount returns how many integrations loaded.
func (s Summary) LoadedCount() int {
	count := 0
	for _, outcome := range s.Outcomes {
		if outcome.Loaded {
			count++
		}
	}
	return count
}

// Operations returns the total number of registered operations.
func (s Summary) Operations() int {
	total := 0
	for _, outcome := range s.Outcomes {
		total += outcome.Operations
	}
	return total
}

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	Integrations []Integration
	Registry     *Registry
	// Diagnostics receives human-readable startup lines. Defaults to stderr.
	Diagnostics io.Writer
	Logger      *slog.Logger
	History     HistoryStore
	Now         func() time.Time
}

// Coordinator registers every integration in isolation and reports the outcome.
type Coordinator struct {
	integrations []Integration
	registry     *Registry
	diagnostics  io.Writer
	logger       *slog.Logger
	history      HistoryStore
	now          func() time.Time

	mu     sync.RWMutex
	states map[string]RegistrationState
	last   Summary
}

// NewCoordinator validates cfg and returns a coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("tool: coordinator registry is nil")
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	states := make(map[string]RegistrationState, len(cfg.Integrations))
	for i, integration := range cfg.Integrations {
		states[integrationName(integration, i)] = StateNotAttempted
	}

	return &Coordinator{
		integrations: append([]Integration(nil), cfg.Integrations...),
		registry:     cfg.Registry,
		diagnostics:  cfg.Diagnostics,
		logger:       cfg.Logger,
		history:      cfg.History,
		now:          cfg.Now,
		states:       states,
	}, nil
}

// Run attempts every integration once. It never fails: faults are recorded
// in the summary.
func (c *Coordinator) Run(ctx context.Context) Summary {
	summary := Summary{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
	}

	for i, integration := range c.integrations {
		outcome := c.register(integration, i)
		summary.Outcomes = append(summary.Outcomes, outcome)

		c.mu.Lock()
		c.states[outcome.Integration] = outcome.State
		c.mu.Unlock()

		c.report(integration, outcome)
	}
	summary.FinishedAt = c.now()

	if summary.LoadedCount() == 0 {
		fmt.Fprintln(c.diagnostics, "⚠ Warning: No tools loaded")
		c.logger.Warn("no integrations loaded", "integrations", len(summary.Outcomes))
	} else {
		c.logger.Info("integrations registered",
			"run_id", summary.RunID,
			"loaded", summary.LoadedCount(),
			"operations", summary.Operations(),
		)
	}

	c.mu.Lock()
	c.last = summary
	c.mu.Unlock()

	if c.history != nil {
		if err := c.history.Append(ctx, summary); err != nil {
			c.logger.Warn("recording registration history failed", "error", err)
		}
	}
	return summary
}

func (c *Coordinator) register(integration Integration, index int) (outcome Outcome) {
	name := integrationName(integration, index)
	outcome = Outcome{Integration: name, State: StateFailed}

	// A failed integration leaves no operations behind, even ones it
	// registered before failing.
	saved := c.registry.snapshot()
	defer func() {
		if r := recover(); r != nil {
			err := NewToolError(ToolErrorCodeRegistrationFailure, fmt.Sprintf("panic: %v", r), false, nil)
			outcome = Outcome{Integration: name, State: StateFailed, Reason: err.Message}
		}
		if !outcome.Loaded {
			c.registry.restore(saved)
		}
	}()

	if integration == nil {
		outcome.Reason = "integration is nil"
		return outcome
	}

	before := c.registry.Len()
	ok, err := integration.RegisterInto(c.registry)
	switch {
	case err != nil:
		outcome.Reason = messageOf(err)
	case !ok:
		outcome.Reason = integration.CheckAvailability().Reason
		if strings.TrimSpace(outcome.Reason) == "" {
			outcome.Reason = "registration declined"
		}
	default:
		outcome.State = StateLoaded
		outcome.Loaded = true
		outcome.Operations = c.registry.Len() - before
	}
	return outcome
}

func (c *Coordinator) report(integration Integration, outcome Outcome) {
	title := displayTitle(integration, outcome.Integration)
	code := ""
	if outcome.Loaded {
		fmt.Fprintf(c.diagnostics, "✓ %s tools: LOADED (%d operations)\n", title, outcome.Operations)
		c.logger.Info("integration loaded", "integration", outcome.Integration, "operations", outcome.Operations)
	} else {
		code = ToolErrorCodeRegistrationFailure
		fmt.Fprintf(c.diagnostics, "⚠ %s tools not registered: %s\n", title, outcome.Reason)
		c.logger.Warn("integration not registered", "integration", outcome.Integration, "reason", outcome.Reason)
	}
	emitRegistrationObservation(RegistrationObservation{
		Integration: outcome.Integration,
		Loaded:      outcome.Loaded,
		Operations:  outcome.Operations,
		ErrorCode:   code,
	})
}

// State returns an integration's registration state.
func (c *Coordinator) State(name string) RegistrationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[name]
	if !ok {
		return StateNotAttempted
	}
	return state
}

// Summary returns the most recent run's summary.
func (c *Coordinator) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Outcomes returns the most recent run's per-integration outcomes.
func (c *Coordinator) Outcomes() []Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Outcome(nil), c.last.Outcomes...)
}

// Integrations returns the coordinated integrations.
func (c *Coordinator) Integrations() []Integration {
	return append([]Integration(nil), c.integrations...)
}

// Registry returns the registry the coordinator fills.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// IntegrationStatus joins an integration's last registration outcome with a
// live availability check.
type IntegrationStatus struct {
	Name               string            `json:"name"`
	Title              string            `json:"title"`
	State              RegistrationState `json:"state"`
	Reason             string            `json:"reason,omitempty"`
	Operations         int               `json:"operations"`
	Available          bool              `json:"available"`
	AvailabilityReason string            `json:"availability_reason,omitempty"`
}

// Statuses reports every integration in configuration order.
func (c *Coordinator) Statuses() []IntegrationStatus {
	c.mu.RLock()
	outcomes := make(map[string]Outcome, len(c.last.Outcomes))
	for _, outcome := range c.last.Outcomes {
		outcomes[outcome.Integration] = outcome
	}
	c.mu.RUnlock()

	out := make([]IntegrationStatus, 0, len(c.integrations))
	for i, integration := range c.integrations {
		name := integrationName(integration, i)
		status := IntegrationStatus{
			Name:  name,
			Title: displayTitle(integration, name),
			State: c.State(name),
		}
		if outcome, ok := outcomes[name]; ok {
			status.Reason = outcome.Reason
			status.Operations = outcome.Operations
		}
		availability := checkAvailability(integration)
		status.Available = availability.Available
		status.AvailabilityReason = availability.Reason
		out = append(out, status)
	}
	return out
}

func checkAvailability(integration Integration) (status Availability) {
	defer func() {
		if r := recover(); r != nil {
			status = Unavailable(fmt.Sprintf("availability check panic: %v", r))
		}
	}()
	if integration == nil {
		return Unavailable("integration is nil")
	}
	return integration.CheckAvailability()
}

func integrationName(integration Integration, index int) (name string) {
	defer func() {
		if recover() != nil {
			name = fmt.Sprintf("integration-%d", index)
		}
	}()
	if integration == nil {
		return fmt.Sprintf("integration-%d", index)
	}
	return integration.Name()
}

func displayTitle(integration Integration, name string) (title string) {
	defer func() {
		if recover() != nil {
			title = name
		}
	}()
	if titled, ok := integration.(Titled); ok {
		if title := strings.TrimSpace(titled.Title()); title != "" {
			return title
		}
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
