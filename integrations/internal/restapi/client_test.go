package restapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/petal-labs/petaltools/tool"
)

func TestClientDoSendsAuthQueryAndBody(t *testing.T) {
	var gotAuth, gotQuery, gotHeader string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotHeader = r.Header.Get("X-Api-Version")
		gotQuery = r.URL.Query().Get("project_id")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		if r.URL.Path != "/v1/items" {
			t.Errorf("path = %q, want /v1/items", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer server.Close()

	client, err := New(Config{
		Service: "demo",
		BaseURL: server.URL + "/v1/",
		Token:   "secret",
		Headers: map[string]string{"X-Api-Version": "7"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var out map[string]any
	err = client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/items",
		Query:  url.Values{"project_id": {"p1"}},
		Body:   map[string]any{"content": "buy milk"},
	}, &out)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if out["id"] != "42" {
		t.Fatalf("out = %v", out)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotHeader != "7" || gotQuery != "p1" || gotBody["content"] != "buy milk" {
		t.Fatalf("header = %q, query = %q, body = %v", gotHeader, gotQuery, gotBody)
	}
}

func TestClientDoMapsErrors(t *testing.T) {
	status := http.StatusBadRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("Task not found"))
	}))
	defer server.Close()

	client, err := New(Config{Service: "demo", BaseURL: server.URL, Token: "t"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/1"}, nil)
	toolErr, ok := tool.AsToolError(err)
	if !ok {
		t.Fatalf("Do() error = %v, want ToolError", err)
	}
	if toolErr.Message != "demo: HTTP 400: Task not found" {
		t.Fatalf("message = %q", toolErr.Message)
	}
	if toolErr.Code != tool.ToolErrorCodeUpstreamFailure || toolErr.Retryable {
		t.Fatalf("error = %+v", toolErr)
	}

	status = http.StatusServiceUnavailable
	err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/1"}, nil)
	if toolErr, _ := tool.AsToolError(err); toolErr == nil || !toolErr.Retryable {
		t.Fatalf("503 error = %v, want retryable", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Service: "demo", BaseURL: "not a url", Token: "t"}); err == nil {
		t.Fatal("New(bad url) error = nil")
	}
	if _, err := New(Config{Service: "demo", BaseURL: "https://example.com"}); err == nil {
		t.Fatal("New(no token) error = nil")
	}
}
