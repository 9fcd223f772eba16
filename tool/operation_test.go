package tool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type recordingObserver struct {
	mu            sync.Mutex
	invocations   []InvokeObservation
	registrations []RegistrationObservation
	availability  []AvailabilityObservation
}

func (o *recordingObserver) ObserveInvoke(observation InvokeObservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invocations = append(o.invocations, observation)
}

func (o *recordingObserver) ObserveRegistration(observation RegistrationObservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registrations = append(o.registrations, observation)
}

func (o *recordingObserver) ObserveAvailability(observation AvailabilityObservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.availability = append(o.availability, observation)
}

func useRecordingObserver(t *testing.T) *recordingObserver {
	t.Helper()
	observer := &recordingObserver{}
	SetObserver(observer)
	t.Cleanup(func() { SetObserver(nil) })
	return observer
}

func newDemoGate(env map[string]string) *Gate {
	return NewGate(NewEnvResolver(testSettings, WithLookup(mapLookup(env, nil))), nil)
}

func TestOperationInvokeUnavailableSkipsHandler(t *testing.T) {
	observer := useRecordingObserver(t)
	called := false
	op := Operation{
		Name:        "demo_get",
		Integration: "demo",
		Gate:        newDemoGate(map[string]string{}),
		Handler: func(context.Context, Args) (map[string]any, error) {
			called = true
			return nil, nil
		},
	}

	result := op.Invoke(context.Background(), Args{})
	if result.Success {
		t.Fatal("Invoke() success = true, want false")
	}
	if !strings.Contains(result.Error, "DEMO_TOKEN") {
		t.Fatalf("Invoke() error = %q, want missing setting", result.Error)
	}
	if len(result.Payload) != 0 {
		t.Fatalf("Invoke() payload = %v, want empty", result.Payload)
	}
	if called {
		t.Fatal("handler called while unavailable")
	}
	if len(observer.invocations) != 1 || observer.invocations[0].ErrorCode != ToolErrorCodeConfigurationMissing {
		t.Fatalf("observations = %+v", observer.invocations)
	}
}

func TestOperationInvokeValidatesInputs(t *testing.T) {
	op := Operation{
		Name: "demo_create",
		Gate: newDemoGate(map[string]string{"DEMO_TOKEN": "x"}),
		Inputs: map[string]FieldSpec{
			"title":    {Type: TypeString, Required: true},
			"priority": {Type: TypeInteger},
		},
		Handler: func(_ context.Context, args Args) (map[string]any, error) {
			title, _ := args.String("title")
			return map[string]any{"title": title}, nil
		},
	}

	result := op.Invoke(context.Background(), Args{"priority": 2})
	if result.Success || result.Error != "missing required parameter: title" {
		t.Fatalf("Invoke(missing title) = %+v", result)
	}

	result = op.Invoke(context.Background(), Args{"title": "x", "priority": "high"})
	if result.Success || result.Code() != ToolErrorCodeInputInvalid {
		t.Fatalf("Invoke(bad priority) = %+v", result)
	}

	result = op.Invoke(context.Background(), Args{"title": "x", "unknown": 1})
	if !result.Success || result.Payload["title"] != "x" {
		t.Fatalf("Invoke(valid) = %+v", result)
	}
}

func TestOperationInvokeConvertsErrorsAndPanics(t *testing.T) {
	gate := newDemoGate(map[string]string{"DEMO_TOKEN": "x"})

	failing := Operation{
		Name: "demo_fail",
		Gate: gate,
		Handler: func(context.Context, Args) (map[string]any, error) {
			return nil, UpstreamError("demo: HTTP 404 object_not_found: page missing", false, nil)
		},
	}
	result := failing.Invoke(context.Background(), nil)
	if result.Success || result.Error != "demo: HTTP 404 object_not_found: page missing" {
		t.Fatalf("Invoke(failing) = %+v", result)
	}

	plain := Operation{
		Name: "demo_plain",
		Gate: gate,
		Handler: func(context.Context, Args) (map[string]any, error) {
			return nil, errors.New("permission denied")
		},
	}
	if result := plain.Invoke(context.Background(), nil); result.Error != "permission denied" {
		t.Fatalf("Invoke(plain) error = %q", result.Error)
	}

	panicking := Operation{
		Name: "demo_panic",
		Gate: gate,
		Handler: func(context.Context, Args) (map[string]any, error) {
			panic("nil map write")
		},
	}
	result = panicking.Invoke(context.Background(), nil)
	if result.Success || !strings.Contains(result.Error, "nil map write") {
		t.Fatalf("Invoke(panicking) = %+v", result)
	}
	if result.Code() != ToolErrorCodeInvocationFailed {
		t.Fatalf("Code() = %q, want %q", result.Code(), ToolErrorCodeInvocationFailed)
	}
}

func TestOperationSchema(t *testing.T) {
	op := Operation{
		Inputs: map[string]FieldSpec{
			"note_path": {Type: TypeString, Required: true, Description: "Path"},
			"labels":    {Type: TypeArray, Items: &FieldSpec{Type: TypeString}},
		},
	}
	schema := op.Schema()
	if schema["type"] != "object" {
		t.Fatalf("schema type = %v", schema["type"])
	}
	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "note_path" {
		t.Fatalf("schema required = %v", schema["required"])
	}
	props := schema["properties"].(map[string]any)
	labels := props["labels"].(map[string]any)
	if labels["type"] != "array" {
		t.Fatalf("labels schema = %v", labels)
	}
}
