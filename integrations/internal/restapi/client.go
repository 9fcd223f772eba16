// Package restapi is the JSON-over-HTTP client shared by the hosted integrations.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/petal-labs/petaltools/tool"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// ErrorFormatter renders a non-2xx response as the message callers see.
type ErrorFormatter func(status int, body []byte) string

// Config describes one upstream API.
type Config struct {
	// Service prefixes every error message, e.g. "notion".
	Service    string
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Headers    map[string]string
	HTTPClient *http.Client
	FormatErr  ErrorFormatter
}

// Client issues authenticated JSON requests against one base URL.
type Client struct {
	service   string
	http      *resty.Client
	formatErr ErrorFormatter
}

// New validates cfg and builds a client. It performs no I/O.
func New(cfg Config) (*Client, error) {
	service := strings.TrimSpace(cfg.Service)
	if service == "" {
		service = "api"
	}
	base, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", service, err)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%s: token is required", service)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimSuffix(base.String(), "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "petaltools")
	for key, value := range cfg.Headers {
		rc.SetHeader(key, value)
	}

	formatErr := cfg.FormatErr
	if formatErr == nil {
		formatErr = PlainErrorFormatter(service)
	}
	return &Client{service: service, http: rc, formatErr: formatErr}, nil
}

// ParseBaseURL accepts absolute http(s) URLs only.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be an absolute http(s) URL", raw)
	}
	return u, nil
}

// Request is one upstream call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Do sends req and decodes a JSON response into out (which may be nil).
// Failures come back as UPSTREAM_FAILURE tool errors; 429 and 5xx are
// marked retryable.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	r := c.http.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tool.UpstreamError(fmt.Sprintf("%s: %v", c.service, ctxErr), false, ctxErr)
		}
		return tool.UpstreamError(fmt.Sprintf("%s: request failed: %v", c.service, err), true, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		retryable := status == http.StatusTooManyRequests || status >= 500
		return tool.WithDetails(
			tool.UpstreamError(c.formatErr(status, resp.Body()), retryable, nil),
			map[string]any{"status": status},
		)
	}

	body := resp.Body()
	if out == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return tool.UpstreamError(fmt.Sprintf("%s: decode response: %v", c.service, err), false, err)
	}
	return nil
}

// PlainErrorFormatter renders "<service>: HTTP <status>: <body>".
func PlainErrorFormatter(service string) ErrorFormatter {
	return func(status int, body []byte) string {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(status)
		}
		return fmt.Sprintf("%s: HTTP %d: %s", service, status, text)
	}
}
