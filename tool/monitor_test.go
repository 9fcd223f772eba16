package tool

import (
	"context"
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	if _, err := ParseSchedule("*/5 * * * *"); err != nil {
		t.Fatalf("ParseSchedule(valid) error = %v", err)
	}
	for _, expr := range []string{"", "CRON_TZ=UTC * * * * *", "not a schedule"} {
		if _, err := ParseSchedule(expr); err == nil {
			t.Fatalf("ParseSchedule(%q) error = nil", expr)
		}
	}
}

func TestMonitorRunOnceResetsAndTracksTransitions(t *testing.T) {
	observer := useRecordingObserver(t)
	env := map[string]string{}
	integration := &fakeIntegration{
		name: "pages",
		gate: NewGate(NewEnvResolver(testSettings, WithLookup(mapLookup(env, nil))), nil),
	}

	monitor, err := NewMonitor(MonitorConfig{
		Integrations: []Integration{integration},
		Logger:       discardLogger(),
		Now:          func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}

	if err := monitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if status := monitor.Snapshot().Statuses["pages"]; status.Available {
		t.Fatalf("first status = %+v, want unavailable", status)
	}

	env["DEMO_TOKEN"] = "late-token"
	if err := monitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	snapshot := monitor.Snapshot()
	if status := snapshot.Statuses["pages"]; !status.Available {
		t.Fatalf("second status = %+v, want available", status)
	}
	if snapshot.CheckedAt.IsZero() {
		t.Fatal("snapshot CheckedAt is zero")
	}
	if integration.resets != 2 {
		t.Fatalf("resets = %d, want 2", integration.resets)
	}

	if len(observer.availability) != 2 {
		t.Fatalf("availability observations = %d, want 2", len(observer.availability))
	}
	if first := observer.availability[0]; first.Changed || first.ErrorCode != ToolErrorCodeConfigurationMissing {
		t.Fatalf("first observation = %+v", first)
	}
	if second := observer.availability[1]; !second.Changed || !second.Available {
		t.Fatalf("second observation = %+v", second)
	}
}

func TestMonitorStartStop(t *testing.T) {
	integration := &fakeIntegration{name: "pages", gate: newDemoGate(map[string]string{})}
	monitor, err := NewMonitor(MonitorConfig{
		Integrations: []Integration{integration},
		Schedule:     "0 0 1 1 *",
		Logger:       discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for monitor.Snapshot().CheckedAt.IsZero() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if monitor.Snapshot().CheckedAt.IsZero() {
		t.Fatal("monitor did not run its initial pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := monitor.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestNewMonitorRejectsBadSchedule(t *testing.T) {
	_, err := NewMonitor(MonitorConfig{
		Integrations: []Integration{&fakeIntegration{name: "x", gate: newDemoGate(nil)}},
		Schedule:     "61 * * * *",
	})
	if err == nil {
		t.Fatal("NewMonitor() error = nil, want schedule error")
	}
}
