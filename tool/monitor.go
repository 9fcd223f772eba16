package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultMonitorSchedule rechecks availability every five minutes.
const DefaultMonitorSchedule = "*/5 * * * *"

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// ParseSchedule parses a five-field UTC cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// MonitorConfig controls background availability rechecks.
type MonitorConfig struct {
	Integrations []Integration
	Schedule     string
	Logger       *slog.Logger
	Now          func() time.Time
}

// MonitorSnapshot is the result of the latest recheck pass.
type MonitorSnapshot struct {
	CheckedAt time.Time               `json:"checked_at"`
	Statuses  map[string]Availability `json:"statuses"`
}

// Monitor periodically resets each integration's cached configuration and
// re-checks its availability, logging transitions. It never changes what is
// registered.
type Monitor struct {
	integrations []Integration
	schedule     cron.Schedule
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	statusMu  sync.RWMutex
	statuses  map[string]Availability
	checkedAt time.Time
}

// NewMonitor creates an availability monitor.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if len(cfg.Integrations) == 0 {
		return nil, errors.New("tool: monitor has no integrations")
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = DefaultMonitorSchedule
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("tool: monitor schedule: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Monitor{
		integrations: append([]Integration(nil), cfg.Integrations...),
		schedule:     schedule,
		logger:       cfg.Logger,
		now:          cfg.Now,
		statuses:     make(map[string]Availability),
	}, nil
}

// Start runs one pass immediately, then one per schedule tick.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("tool: monitor is nil")
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		_ = m.RunOnce(loopCtx)

		for {
			now := m.now()
			timer := time.NewTimer(m.schedule.Next(now).Sub(now))
			select {
			case <-loopCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				_ = m.RunOnce(loopCtx)
			}
		}
	}()

	return nil
}

// Stop terminates the background loop.
func (m *Monitor) Stop(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one recheck pass over every integration.
func (m *Monitor) RunOnce(ctx context.Context) error {
	if m == nil {
		return errors.New("tool: monitor is nil")
	}

	for i, integration := range m.integrations {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := integrationName(integration, i)
		status, code := recheck(integration)

		m.statusMu.Lock()
		previous, seen := m.statuses[name]
		m.statuses[name] = status
		m.statusMu.Unlock()

		changed := seen && previous.Available != status.Available
		if changed {
			m.logger.Info("integration availability changed",
				"integration", name,
				"available", status.Available,
				"reason", status.Reason,
			)
		} else {
			m.logger.Debug("integration availability checked", "integration", name, "available", status.Available)
		}

		emitAvailabilityObservation(AvailabilityObservation{
			Integration: name,
			Available:   status.Available,
			Previous:    previous.Available,
			Changed:     changed,
			ErrorCode:   code,
		})
	}

	m.statusMu.Lock()
	m.checkedAt = m.now()
	m.statusMu.Unlock()
	return nil
}

// Snapshot returns the statuses recorded by the latest pass.
func (m *Monitor) Snapshot() MonitorSnapshot {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	statuses := make(map[string]Availability, len(m.statuses))
	for name, status := range m.statuses {
		statuses[name] = status
	}
	return MonitorSnapshot{CheckedAt: m.checkedAt, Statuses: statuses}
}

func recheck(integration Integration) (status Availability, code string) {
	defer func() {
		if r := recover(); r != nil {
			status = Unavailable(fmt.Sprintf("availability check panic: %v", r))
			code = ToolErrorCodeConfigurationInvalid
		}
	}()
	if resettable, ok := integration.(Resettable); ok {
		resettable.Reset()
	}
	status = integration.CheckAvailability()
	if status.Available {
		return status, ""
	}
	code = ToolErrorCodeConfigurationInvalid
	if gated, ok := integration.(Gated); ok {
		if err := gated.AvailabilityGate().Err(); err != nil {
			code = err.Code
		}
	}
	return status, code
}
