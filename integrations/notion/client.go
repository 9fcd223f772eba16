package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/petal-labs/petaltools/integrations/internal/restapi"
)

// APIVersion is sent as the Notion-Version header.
const APIVersion = "2022-06-28"

// Client is a thin Notion REST client.
type Client struct {
	api *restapi.Client
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient builds a client. It performs no I/O.
func NewClient(cfg ClientConfig) (*Client, error) {
	api, err := restapi.New(restapi.Config{
		Service:    "notion",
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
		Headers:    map[string]string{"Notion-Version": APIVersion},
		FormatErr:  formatError,
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// formatError renders Notion's {"code","message"} error body.
func formatError(status int, body []byte) string {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		return restapi.PlainErrorFormatter("notion")(status, body)
	}
	return fmt.Sprintf("notion: HTTP %d %s: %s", status, apiErr.Code, apiErr.Message)
}

// Object is a decoded Notion API object.
type Object map[string]any

// CreatePage creates a page under parent.
func (c *Client) CreatePage(ctx context.Context, parent, properties map[string]any, children []map[string]any) (Object, error) {
	body := map[string]any{"parent": parent, "properties": properties}
	if len(children) > 0 {
		body["children"] = children
	}
	var out Object
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodPost, Path: "/pages", Body: body}, &out)
	return out, err
}

// QueryDatabase runs a database query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, query map[string]any) (Object, error) {
	if query == nil {
		query = map[string]any{}
	}
	var out Object
	err := c.api.Do(ctx, restapi.Request{
		Method: http.MethodPost,
		Path:   "/databases/" + url.PathEscape(databaseID) + "/query",
		Body:   query,
	}, &out)
	return out, err
}

// RetrievePage fetches a page's properties.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (Object, error) {
	var out Object
	err := c.api.Do(ctx, restapi.Request{Method: http.MethodGet, Path: "/pages/" + url.PathEscape(pageID)}, &out)
	return out, err
}

// BlockChildren lists the first page of a block's children.
func (c *Client) BlockChildren(ctx context.Context, blockID string) (Object, error) {
	var out Object
	err := c.api.Do(ctx, restapi.Request{
		Method: http.MethodGet,
		Path:   "/blocks/" + url.PathEscape(blockID) + "/children",
	}, &out)
	return out, err
}

// UpdatePage patches a page with fields such as properties or archived.
func (c *Client) UpdatePage(ctx context.Context, pageID string, fields map[string]any) (Object, error) {
	var out Object
	err := c.api.Do(ctx, restapi.Request{
		Method: http.MethodPatch,
		Path:   "/pages/" + url.PathEscape(pageID),
		Body:   fields,
	}, &out)
	return out, err
}

func (o Object) str(key string) string {
	value, _ := o[key].(string)
	return value
}

func (o Object) object(key string) map[string]any {
	if value, ok := o[key].(map[string]any); ok {
		return value
	}
	return map[string]any{}
}

func (o Object) list(key string) []any {
	if value, ok := o[key].([]any); ok {
		return value
	}
	return []any{}
}

func titleProperty(title string) map[string]any {
	return map[string]any{
		"title": []any{map[string]any{"text": map[string]any{"content": title}}},
	}
}
