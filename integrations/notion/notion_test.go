package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/petal-labs/petaltools/tool"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeNotion struct {
	server *httptest.Server
	hits   atomic.Int64

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeNotion(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeNotion {
	t.Helper()
	fake := &fakeNotion{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.hits.Add(1)
		if got := r.Header.Get("Notion-Version"); got != APIVersion {
			t.Errorf("Notion-Version = %q, want %q", got, APIVersion)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]any
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		fake.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeNotion) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newIntegration(env map[string]string) *Integration {
	return New(Config{Lookup: func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}})
}

func invoke(integration *Integration, name string, args tool.Args) tool.Result {
	reg := tool.NewRegistry()
	reg.Register(integration.Operations()...)
	return reg.Invoke(context.Background(), name, args)
}

func TestOperationsFailWithoutTokenAndMakeNoRequests(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {})
	integration := newIntegration(map[string]string{EnvAPIURL: fake.server.URL})

	for _, op := range integration.Operations() {
		result := op.Invoke(context.Background(), tool.Args{"page_id": "abc", "title": "x", "properties": map[string]any{"a": 1}})
		if result.Success {
			t.Fatalf("%s succeeded without token", op.Name)
		}
		if !strings.Contains(result.Error, "NOTION_TOKEN") {
			t.Fatalf("%s error = %q, want NOTION_TOKEN named", op.Name, result.Error)
		}
		if !strings.Contains(result.Error, "https://www.notion.so/my-integrations") {
			t.Fatalf("%s error = %q, want hint", op.Name, result.Error)
		}
	}
	if got := fake.hits.Load(); got != 0 {
		t.Fatalf("upstream hits = %d, want 0", got)
	}

	reg := tool.NewRegistry()
	ok, err := integration.RegisterInto(reg)
	if ok || err != nil || reg.Len() != 0 {
		t.Fatalf("RegisterInto() = %v, %v, len %d", ok, err, reg.Len())
	}
}

func TestCreateDatabasePage(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"page-1","url":"https://www.notion.so/page-1","created_time":"2026-01-01T00:00:00.000Z"}`))
	})
	integration := newIntegration(map[string]string{
		EnvToken:      "secret-token",
		EnvAPIURL:     fake.server.URL,
		EnvDatabaseID: "https://www.notion.so/workspace/db123?v=9",
	})

	result := invoke(integration, "notion_create_database_page", tool.Args{
		"title":      "Weekly review",
		"properties": `{"Status":{"select":{"name":"Open"}}}`,
	})
	if !result.Success {
		t.Fatalf("create_database_page error = %s", result.Error)
	}
	if result.Payload["page_id"] != "page-1" || result.Payload["created_time"] == "" {
		t.Fatalf("payload = %v", result.Payload)
	}

	req := fake.last()
	if req.Method != http.MethodPost || req.Path != "/pages" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	parent := req.Body["parent"].(map[string]any)
	if parent["database_id"] != "db123" {
		t.Fatalf("parent = %v", parent)
	}
	props := req.Body["properties"].(map[string]any)
	if _, ok := props["Status"]; !ok {
		t.Fatalf("properties = %v, want Status merged", props)
	}
	title := props["title"].(map[string]any)["title"].([]any)[0].(map[string]any)
	if title["text"].(map[string]any)["content"] != "Weekly review" {
		t.Fatalf("title property = %v", title)
	}
}

func TestCreateDatabasePageRequiresDatabase(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {})
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: fake.server.URL})

	result := invoke(integration, "notion_create_database_page", tool.Args{"title": "x"})
	if result.Success || result.Code() != tool.ToolErrorCodeInputInvalid {
		t.Fatalf("result = %+v", result)
	}
	if result.Error != "No database_id provided and NOTION_DATABASE_ID environment variable is not set" {
		t.Fatalf("error = %q", result.Error)
	}
	if fake.hits.Load() != 0 {
		t.Fatal("request sent without database id")
	}
}

func TestGetDatabase(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"p1","url":"u1","created_time":"t1","properties":{"Name":{}}}],"has_more":true}`))
	})
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: fake.server.URL})

	result := invoke(integration, "notion_get_database", tool.Args{
		"database_id": "db9",
		"filter_json": `{"property":"Done","checkbox":{"equals":false}}`,
		"sorts":       []any{map[string]any{"property": "Name", "direction": "ascending"}},
	})
	if !result.Success {
		t.Fatalf("get_database error = %s", result.Error)
	}
	pages := result.Payload["pages"].([]map[string]any)
	if len(pages) != 1 || pages[0]["id"] != "p1" || result.Payload["has_more"] != true {
		t.Fatalf("payload = %v", result.Payload)
	}
	req := fake.last()
	if req.Path != "/databases/db9/query" {
		t.Fatalf("path = %q", req.Path)
	}
	if _, ok := req.Body["filter"].(map[string]any); !ok {
		t.Fatalf("body = %v, want filter", req.Body)
	}
	if sorts, ok := req.Body["sorts"].([]any); !ok || len(sorts) != 1 {
		t.Fatalf("body = %v, want sorts", req.Body)
	}

	result = invoke(integration, "notion_get_database", tool.Args{"database_id": "db9", "filter_json": "{broken"})
	if result.Success || result.Error != "filter_json must be a valid JSON string" {
		t.Fatalf("bad filter = %+v", result)
	}
}

func TestGetPageNormalizesURL(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/children") {
			_, _ = w.Write([]byte(`{"results":[{"type":"paragraph"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"ABC123","url":"u","created_time":"c","last_edited_time":"e","properties":{}}`))
	})
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: fake.server.URL})

	result := invoke(integration, "notion_get_page", tool.Args{"page_id": "https://www.notion.so/workspace/ABC123?query=1"})
	if !result.Success {
		t.Fatalf("get_page error = %s", result.Error)
	}
	page := result.Payload["page"].(map[string]any)
	if page["id"] != "ABC123" || page["last_edited_time"] != "e" {
		t.Fatalf("page = %v", page)
	}
	if blocks := page["content_blocks"].([]any); len(blocks) != 1 {
		t.Fatalf("content_blocks = %v", blocks)
	}
	if got := fake.last().Path; got != "/blocks/ABC123/children" {
		t.Fatalf("last path = %q", got)
	}
}

func TestUpstreamErrorIsReported(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"body failed validation"}`))
	})
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: fake.server.URL})

	result := invoke(integration, "notion_update_page", tool.Args{"page_id": "p1", "properties": map[string]any{"Done": true}})
	if result.Success {
		t.Fatal("update_page succeeded on 400")
	}
	if want := "notion: HTTP 400 validation_error: body failed validation"; result.Error != want {
		t.Fatalf("error = %q, want %q", result.Error, want)
	}
	if result.Code() != tool.ToolErrorCodeUpstreamFailure {
		t.Fatalf("Code() = %q", result.Code())
	}
	if req := fake.last(); req.Method != http.MethodPatch || req.Path != "/pages/p1" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
}

func TestCreatePageAndArchive(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			_, _ = w.Write([]byte(`{"id":"p2","archived":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"p2","url":"u2","created_time":"c2"}`))
	})
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: fake.server.URL})

	result := invoke(integration, "notion_create_page", tool.Args{"title": "Notes", "content": "hello"})
	if !result.Success || result.Payload["page_id"] != "p2" {
		t.Fatalf("create_page = %+v", result)
	}
	req := fake.last()
	if parent := req.Body["parent"].(map[string]any); parent["workspace"] != true {
		t.Fatalf("parent = %v, want workspace", parent)
	}
	if children := req.Body["children"].([]any); len(children) != 1 {
		t.Fatalf("children = %v", children)
	}

	result = invoke(integration, "notion_create_page", tool.Args{"title": "Child", "parent_page_id": "https://www.notion.so/x/PARENT1"})
	if !result.Success {
		t.Fatalf("create_page with parent error = %s", result.Error)
	}
	if parent := fake.last().Body["parent"].(map[string]any); parent["page_id"] != "PARENT1" {
		t.Fatalf("parent = %v", parent)
	}
	if _, ok := fake.last().Body["children"]; ok {
		t.Fatal("children sent without content")
	}

	result = invoke(integration, "notion_archive_page", tool.Args{"page_id": "p2"})
	if !result.Success || result.Payload["archived"] != true {
		t.Fatalf("archive_page = %+v", result)
	}
	if body := fake.last().Body; body["archived"] != true {
		t.Fatalf("archive body = %v", body)
	}
}

func TestLazyClientBuiltOnceAndReset(t *testing.T) {
	fake := newFakeNotion(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p","archived":true}`))
	})
	env := map[string]string{EnvToken: "secret-token", EnvAPIURL: fake.server.URL}
	integration := newIntegration(env)

	for range 3 {
		if result := invoke(integration, "notion_archive_page", tool.Args{"page_id": "p"}); !result.Success {
			t.Fatalf("archive_page error = %s", result.Error)
		}
	}
	if got := integration.client.Builds(); got != 1 {
		t.Fatalf("Builds() = %d, want 1", got)
	}

	delete(env, EnvToken)
	integration.Reset()
	if integration.CheckAvailability().Available {
		t.Fatal("available after token removed and Reset")
	}
}

func TestInvalidAPIURLIsConfigurationInvalid(t *testing.T) {
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: "ftp://nowhere"})
	status := integration.CheckAvailability()
	if status.Available || !strings.Contains(status.Reason, EnvAPIURL) {
		t.Fatalf("status = %+v", status)
	}
	if err := integration.AvailabilityGate().Err(); err == nil || err.Code != tool.ToolErrorCodeConfigurationInvalid {
		t.Fatalf("gate error = %v", err)
	}
	if !strings.Contains(status.Reason, "must be an absolute http(s) URL") {
		t.Fatalf("reason = %q, want client construction error", status.Reason)
	}
}

func TestAvailabilityCheckDoesNotKeepAClient(t *testing.T) {
	integration := newIntegration(map[string]string{EnvToken: "secret-token", EnvAPIURL: "https://notion.example"})
	if status := integration.CheckAvailability(); !status.Available {
		t.Fatalf("status = %+v, want available", status)
	}
	if got := integration.client.Builds(); got != 0 {
		t.Fatalf("Builds() = %d, want 0", got)
	}
}
