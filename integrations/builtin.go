// Package integrations lists the integrations compiled into petaltools.
package integrations

import (
	"net/http"
	"time"

	"github.com/petal-labs/petaltools/integrations/notion"
	"github.com/petal-labs/petaltools/integrations/obsidian"
	"github.com/petal-labs/petaltools/integrations/todoist"
	"github.com/petal-labs/petaltools/tool"
)

// Options are shared by every built-in integration.
type Options struct {
	// Lookup replaces os.LookupEnv.
	Lookup         tool.LookupFunc
	NotionBaseURL  string
	TodoistBaseURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Builtin returns Notion, Todoist and Obsidian, in that order.
func Builtin(opts Options) []tool.Integration {
	return []tool.Integration{
		notion.New(notion.Config{
			Lookup:     opts.Lookup,
			BaseURL:    opts.NotionBaseURL,
			Timeout:    opts.Timeout,
			HTTPClient: opts.HTTPClient,
		}),
		todoist.New(todoist.Config{
			Lookup:     opts.Lookup,
			BaseURL:    opts.TodoistBaseURL,
			Timeout:    opts.Timeout,
			HTTPClient: opts.HTTPClient,
		}),
		obsidian.New(obsidian.Config{Lookup: opts.Lookup}),
	}
}

// Settings returns every built-in integration's declared settings, keyed by
// integration name.
func Settings(opts Options) map[string][]tool.Setting {
	return map[string][]tool.Setting{
		notion.Name:   notion.Settings(opts.NotionBaseURL),
		todoist.Name:  todoist.Settings(opts.TodoistBaseURL),
		obsidian.Name: obsidian.Settings(),
	}
}
