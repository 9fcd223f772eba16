package todoist

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/petal-labs/petaltools/integrations/internal/restapi"
)

// Task is a Todoist task as returned by the REST API.
type Task struct {
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	Description  string         `json:"description"`
	ProjectID    string         `json:"project_id"`
	SectionID    *string        `json:"section_id"`
	ParentID     *string        `json:"parent_id"`
	Order        int            `json:"order"`
	Labels       []string       `json:"labels"`
	Priority     int            `json:"priority"`
	Due          map[string]any `json:"due"`
	URL          string         `json:"url"`
	CommentCount int            `json:"comment_count"`
	IsCompleted  bool           `json:"is_completed"`
	CreatedAt    string         `json:"created_at"`
}

// Map renders the task in the gateway's payload shape.
func (t Task) Map() map[string]any {
	labels := t.Labels
	if labels == nil {
		labels = []string{}
	}
	var due any
	if t.Due != nil {
		due = t.Due
	}
	var createdAt any
	if t.CreatedAt != "" {
		createdAt = t.CreatedAt
	}
	return map[string]any{
		"id":            t.ID,
		"content":       t.Content,
		"description":   t.Description,
		"project_id":    t.ProjectID,
		"section_id":    optional(t.SectionID),
		"parent_id":     optional(t.ParentID),
		"order":         t.Order,
		"labels":        labels,
		"priority":      t.Priority,
		"due":           due,
		"url":           t.URL,
		"comment_count": t.CommentCount,
		"completed":     t.IsCompleted,
		"created_at":    createdAt,
	}
}

// Project is a Todoist project.
type Project struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Color          string  `json:"color"`
	ParentID       *string `json:"parent_id"`
	Order          int     `json:"order"`
	CommentCount   int     `json:"comment_count"`
	IsShared       bool    `json:"is_shared"`
	IsFavorite     bool    `json:"is_favorite"`
	URL            string  `json:"url"`
	IsInboxProject bool    `json:"is_inbox_project"`
	IsTeamInbox    bool    `json:"is_team_inbox"`
}

// Map renders the project in the gateway's payload shape.
func (p Project) Map() map[string]any {
	return map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"color":            p.Color,
		"parent_id":        optional(p.ParentID),
		"order":            p.Order,
		"comment_count":    p.CommentCount,
		"is_shared":        p.IsShared,
		"is_favorite":      p.IsFavorite,
		"url":              p.URL,
		"is_inbox_project": p.IsInboxProject,
		"is_team_inbox":    p.IsTeamInbox,
	}
}

func optional(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// TaskFilter narrows GetTasks.
type TaskFilter struct {
	ProjectID string
	SectionID string
	Label     string
	Filter    string
	Lang      string
	IDs       []string
}

func (f TaskFilter) values() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			q.Set(key, value)
		}
	}
	set("project_id", f.ProjectID)
	set("section_id", f.SectionID)
	set("label", f.Label)
	set("filter", f.Filter)
	set("lang", f.Lang)
	if len(f.IDs) > 0 {
		q.Set("ids", strings.Join(f.IDs, ","))
	}
	return q
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a thin Todoist REST client.
type Client struct {
	api *restapi.Client
}

// NewClient builds a client. It performs no I/O.
func NewClient(cfg ClientConfig) (*Client, error) {
	api, err := restapi.New(restapi.Config{
		Service:    "todoist",
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// AddTask creates a task from fields.
func (c *Client) AddTask(ctx context.Context, fields map[string]any) (Task, error) {
	var task Task
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodPost, Path: "/tasks", Body: fields}, &task)
	return task, err
}

// GetTasks lists active tasks.
func (c *Client) GetTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var tasks []Task
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodGet, Path: "/tasks", Query: filter.values()}, &tasks)
	return tasks, err
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var task Task
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodGet, Path: taskPath(id)}, &task)
	return task, err
}

// UpdateTask changes the given fields of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (Task, error) {
	var task Task
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodPost, Path: taskPath(id), Body: fields}, &task)
	return task, err
}

// CloseTask completes a task.
func (c *Client) CloseTask(ctx context.Context, id string) error {
	return c.api.Do(ctx, restapi.Request{Method: http.MethodPost, Path: taskPath(id) + "/close"}, nil)
}

// ReopenTask reopens a completed task.
func (c *Client) ReopenTask(ctx context.Context, id string) error {
	return c.api.Do(ctx, restapi.Request{Method: http.MethodPost, Path: taskPath(id) + "/reopen"}, nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.api.Do(ctx, restapi.Request{Method: http.MethodDelete, Path: taskPath(id)}, nil)
}

// GetProjects lists every project.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodGet, Path: "/projects"}, &projects)
	return projects, err
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}
