package notion

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/petal-labs/petaltools/tool"
)

// Operations returns the fixed set of Notion operations bound to this integration.
func (i *Integration) Operations() []tool.Operation {
	pageID := tool.FieldSpec{Type: tool.TypeString, Required: true, Description: "Page ID or full page URL"}
	databaseID := tool.FieldSpec{Type: tool.TypeString, Description: "Database ID or URL; defaults to NOTION_DATABASE_ID"}

	ops := []tool.Operation{
		{
			Name:        "notion_create_database_page",
			Description: "Create a new page in a Notion database.",
			Inputs: map[string]tool.FieldSpec{
				"title":       {Type: tool.TypeString, Required: true, Description: "Title of the page"},
				"database_id": databaseID,
				"properties":  {Type: tool.TypeObject, Description: "Additional page properties, as an object or JSON string"},
			},
			Handler: i.createDatabasePage,
		},
		{
			Name:        "notion_get_database",
			Description: "Query a Notion database and return its pages.",
			Inputs: map[string]tool.FieldSpec{
				"database_id": databaseID,
				"filter_json": {Type: tool.TypeString, Description: "Notion filter object as a JSON string"},
				"sorts": {
					Type:        tool.TypeArray,
					Items:       &tool.FieldSpec{Type: tool.TypeObject},
					Description: `Sort objects, e.g. [{"property": "Name", "direction": "ascending"}]`,
				},
			},
			Handler: i.getDatabase,
		},
		{
			Name:        "notion_get_page",
			Description: "Get a Notion page and its content blocks.",
			Inputs:      map[string]tool.FieldSpec{"page_id": pageID},
			Handler:     i.getPage,
		},
		{
			Name:        "notion_update_page",
			Description: "Update properties of a Notion page.",
			Inputs: map[string]tool.FieldSpec{
				"page_id":    pageID,
				"properties": {Type: tool.TypeObject, Required: true, Description: "Properties to update, as an object or JSON string"},
			},
			Handler: i.updatePage,
		},
		{
			Name:        "notion_create_page",
			Description: "Create a standalone Notion page under a parent page or the workspace.",
			Inputs: map[string]tool.FieldSpec{
				"title":          {Type: tool.TypeString, Required: true, Description: "Title of the page"},
				"parent_page_id": {Type: tool.TypeString, Description: "Parent page ID or URL; the workspace root when omitted"},
				"content":        {Type: tool.TypeString, Description: "Text for a single paragraph block"},
			},
			Handler: i.createPage,
		},
		{
			Name:        "notion_archive_page",
			Description: "Archive (delete) a Notion page.",
			Inputs:      map[string]tool.FieldSpec{"page_id": pageID},
			Handler:     i.archivePage,
		},
	}
	for idx := range ops {
		ops[idx].Integration = Name
		ops[idx].Gate = i.gate
	}
	return ops
}

func (i *Integration) resolveDatabaseID(args tool.Args) (string, error) {
	raw, _, err := args.OptionalString("database_id")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		raw = i.defaultDatabaseID()
	}
	id := tool.NormalizeID(raw)
	if id == "" {
		return "", tool.InputError("No database_id provided and NOTION_DATABASE_ID environment variable is not set")
	}
	return id, nil
}

func requiredID(args tool.Args, name string) (string, error) {
	raw, err := args.String(name)
	if err != nil {
		return "", err
	}
	id := tool.NormalizeID(raw)
	if id == "" {
		return "", tool.InputError("parameter %s does not contain an ID", name)
	}
	return id, nil
}

func properties(args tool.Args) (map[string]any, error) {
	props, err := args.Object("properties")
	if err != nil {
		return nil, tool.InputError("Properties must be valid JSON string or an object")
	}
	return props, nil
}

func (i *Integration) createDatabasePage(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	title, err := args.String("title")
	if err != nil {
		return nil, err
	}
	databaseID, err := i.resolveDatabaseID(args)
	if err != nil {
		return nil, err
	}
	extra, err := properties(args)
	if err != nil {
		return nil, err
	}

	props := map[string]any{"title": titleProperty(title)}
	for key, value := range extra {
		props[key] = value
	}

	page, err := client.CreatePage(ctx, map[string]any{"database_id": databaseID}, props, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"page_id":      page.str("id"),
		"url":          page.str("url"),
		"created_time": page.str("created_time"),
	}, nil
}

func (i *Integration) getDatabase(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	databaseID, err := i.resolveDatabaseID(args)
	if err != nil {
		return nil, err
	}

	query := map[string]any{}
	filter, ok, err := args.OptionalString("filter_json")
	if err != nil {
		return nil, err
	}
	if ok && strings.TrimSpace(filter) != "" {
		var decoded any
		if err := json.Unmarshal([]byte(filter), &decoded); err != nil {
			return nil, tool.InputError("filter_json must be a valid JSON string")
		}
		query["filter"] = decoded
	}
	sorts, err := args.ObjectSlice("sorts")
	if err != nil {
		return nil, err
	}
	if len(sorts) > 0 {
		query["sorts"] = sorts
	}

	resp, err := client.QueryDatabase(ctx, databaseID, query)
	if err != nil {
		return nil, err
	}
	pages := make([]map[string]any, 0)
	for _, raw := range resp.list("results") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		page := Object(entry)
		pages = append(pages, map[string]any{
			"id":           page.str("id"),
			"url":          page.str("url"),
			"created_time": page.str("created_time"),
			"properties":   page.object("properties"),
		})
	}
	hasMore, _ := resp["has_more"].(bool)
	return map[string]any{"pages": pages, "has_more": hasMore}, nil
}

func (i *Integration) getPage(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	pageID, err := requiredID(args, "page_id")
	if err != nil {
		return nil, err
	}

	page, err := client.RetrievePage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	blocks, err := client.BlockChildren(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"page": map[string]any{
			"id":               page.str("id"),
			"url":              page.str("url"),
			"created_time":     page.str("created_time"),
			"last_edited_time": page.str("last_edited_time"),
			"properties":       page.object("properties"),
			"content_blocks":   blocks.list("results"),
		},
	}, nil
}

func (i *Integration) updatePage(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	pageID, err := requiredID(args, "page_id")
	if err != nil {
		return nil, err
	}
	props, err := properties(args)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, tool.InputError("missing required parameter: properties")
	}

	page, err := client.UpdatePage(ctx, pageID, map[string]any{"properties": props})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"page_id":          page.str("id"),
		"url":              page.str("url"),
		"last_edited_time": page.str("last_edited_time"),
	}, nil
}

func (i *Integration) createPage(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	title, err := args.String("title")
	if err != nil {
		return nil, err
	}
	parentRaw, _, err := args.OptionalString("parent_page_id")
	if err != nil {
		return nil, err
	}
	content, _, err := args.OptionalString("content")
	if err != nil {
		return nil, err
	}

	parent := map[string]any{"type": "workspace", "workspace": true}
	if parentID := tool.NormalizeID(parentRaw); parentID != "" {
		parent = map[string]any{"page_id": parentID}
	}
	var children []map[string]any
	if content != "" {
		children = []map[string]any{paragraphBlock(content)}
	}

	page, err := client.CreatePage(ctx, parent, map[string]any{"title": titleProperty(title)}, children)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"page_id":      page.str("id"),
		"url":          page.str("url"),
		"created_time": page.str("created_time"),
	}, nil
}

func (i *Integration) archivePage(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	pageID, err := requiredID(args, "page_id")
	if err != nil {
		return nil, err
	}
	page, err := client.UpdatePage(ctx, pageID, map[string]any{"archived": true})
	if err != nil {
		return nil, err
	}
	archived, _ := page["archived"].(bool)
	return map[string]any{"page_id": page.str("id"), "archived": archived}, nil
}

func paragraphBlock(content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []any{map[string]any{"type": "text", "text": map[string]any{"content": content}}},
		},
	}
}
