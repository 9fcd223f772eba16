package obsidian

import (
	"context"

	"github.com/petal-labs/petaltools/tool"
)

var notePathInput = tool.FieldSpec{
	Type:        tool.TypeString,
	Required:    true,
	Description: `Path to the note relative to the vault root, e.g. "folder/note" or "folder/note.md"`,
}

var patternInput = tool.FieldSpec{
	Type:        tool.TypeString,
	Description: `Glob over vault-relative paths, e.g. "projects/**/*.md"`,
}

// Operations returns the fixed set of Obsidian operations bound to this
// integration.
func (i *Integration) Operations() []tool.Operation {
	ops := []tool.Operation{
		{
			Name:        "obsidian_read_note",
			Description: "Read the content of an Obsidian note.",
			Inputs:      map[string]tool.FieldSpec{"note_path": notePathInput},
			Handler:     i.readNote,
		},
		{
			Name:        "obsidian_create_note",
			Description: "Create a new Obsidian note, optionally with YAML frontmatter.",
			Inputs: map[string]tool.FieldSpec{
				"note_path":   notePathInput,
				"content":     {Type: tool.TypeString, Required: true, Description: "Content of the note"},
				"overwrite":   {Type: tool.TypeBoolean, Default: false, Description: "Replace the note if it already exists"},
				"frontmatter": {Type: tool.TypeObject, Description: "Frontmatter fields, as an object or JSON string"},
			},
			Handler: i.createNote,
		},
		{
			Name:        "obsidian_update_note",
			Description: "Replace the entire content of an existing Obsidian note.",
			Inputs: map[string]tool.FieldSpec{
				"note_path": notePathInput,
				"content":   {Type: tool.TypeString, Required: true, Description: "New content for the note"},
			},
			Handler: i.updateNote,
		},
		{
			Name:        "obsidian_append_to_note",
			Description: "Append content to the end of an existing Obsidian note.",
			Inputs: map[string]tool.FieldSpec{
				"note_path":   notePathInput,
				"content":     {Type: tool.TypeString, Required: true, Description: "Content to append"},
				"add_newline": {Type: tool.TypeBoolean, Default: true, Description: "Insert a newline before the appended content"},
			},
			Handler: i.appendToNote,
		},
		{
			Name:        "obsidian_list_notes",
			Description: "List notes in a folder, or in the whole vault.",
			Inputs: map[string]tool.FieldSpec{
				"folder":  {Type: tool.TypeString, Default: "", Description: "Folder relative to the vault root; empty for the whole vault"},
				"pattern": patternInput,
			},
			Handler: i.listNotes,
		},
		{
			Name:        "obsidian_search_notes",
			Description: "Search notes for text and return the matching lines.",
			Inputs: map[string]tool.FieldSpec{
				"query":          {Type: tool.TypeString, Required: true, Description: "Text to search for"},
				"case_sensitive": {Type: tool.TypeBoolean, Default: false},
				"pattern":        patternInput,
			},
			Handler: i.searchNotes,
		},
		{
			Name:        "obsidian_delete_note",
			Description: "Delete a note. It is moved aside to <note>.trash when possible.",
			Inputs:      map[string]tool.FieldSpec{"note_path": notePathInput},
			Handler:     i.deleteNote,
		},
		{
			Name:        "obsidian_get_note_metadata",
			Description: "Get a note's metadata (word count, line count, frontmatter) without its content.",
			Inputs:      map[string]tool.FieldSpec{"note_path": notePathInput},
			Handler:     i.noteMetadata,
		},
		{
			Name:        "obsidian_list_templates",
			Description: "List the notes available as templates.",
			Handler:     i.listTemplates,
		},
		{
			Name:        "obsidian_create_from_template",
			Description: "Create a note from a template, filling {{placeholders}} from variables.",
			Inputs: map[string]tool.FieldSpec{
				"note_path": notePathInput,
				"template":  {Type: tool.TypeString, Required: true, Description: "Template name relative to the templates folder"},
				"variables": {Type: tool.TypeObject, Description: "Placeholder values, as an object or JSON string"},
				"overwrite": {Type: tool.TypeBoolean, Default: false},
			},
			Handler: i.createFromTemplate,
		},
	}
	for idx := range ops {
		ops[idx].Integration = Name
		ops[idx].Gate = i.gate
	}
	return ops
}

func (i *Integration) readNote(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	note, err := vault.Read(name)
	if err != nil {
		return nil, err
	}
	out := note.summary(true)
	out["content"] = note.Content
	return map[string]any{"note": out}, nil
}

func (i *Integration) createNote(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	content, _, err := args.OptionalString("content")
	if err != nil {
		return nil, err
	}
	overwrite, err := args.Bool("overwrite", false)
	if err != nil {
		return nil, err
	}
	frontmatter, err := args.Object("frontmatter")
	if err != nil {
		return nil, err
	}

	info, err := vault.Create(name, content, overwrite, frontmatter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"note": info.summary(true)}, nil
}

func (i *Integration) updateNote(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	content, _, err := args.OptionalString("content")
	if err != nil {
		return nil, err
	}
	info, err := vault.Update(name, content)
	if err != nil {
		return nil, err
	}
	return map[string]any{"note": info.summary(false)}, nil
}

func (i *Integration) appendToNote(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	content, _, err := args.OptionalString("content")
	if err != nil {
		return nil, err
	}
	addNewline, err := args.Bool("add_newline", true)
	if err != nil {
		return nil, err
	}
	info, err := vault.Append(name, content, addNewline)
	if err != nil {
		return nil, err
	}
	return map[string]any{"note": info.summary(false)}, nil
}

func (i *Integration) listNotes(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	folder, _, err := args.OptionalString("folder")
	if err != nil {
		return nil, err
	}
	pattern, _, err := args.OptionalString("pattern")
	if err != nil {
		return nil, err
	}

	notes, err := vault.List(folder, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		out = append(out, note.summary(true))
	}
	return map[string]any{"notes": out, "count": len(out)}, nil
}

func (i *Integration) searchNotes(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	query, err := args.String("query")
	if err != nil {
		return nil, err
	}
	caseSensitive, err := args.Bool("case_sensitive", false)
	if err != nil {
		return nil, err
	}
	pattern, _, err := args.OptionalString("pattern")
	if err != nil {
		return nil, err
	}

	hits, err := vault.Search(query, caseSensitive, pattern)
	if err != nil {
		return nil, err
	}
	notes := make([]map[string]any, 0, len(hits))
	for _, hit := range hits {
		entry := hit.summary(false)
		entry["matches"] = hit.Matches
		entry["match_count"] = len(hit.Matches)
		notes = append(notes, entry)
	}
	return map[string]any{"query": query, "notes": notes, "count": len(notes)}, nil
}

func (i *Integration) deleteNote(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	result, err := vault.Delete(name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted_path": result.DeletedPath, "permanent": result.Permanent}, nil
}

func (i *Integration) noteMetadata(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	meta, err := vault.Metadata(name)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"path":            meta.Path,
		"size_bytes":      meta.Size,
		"modified":        formatTime(meta.Modified),
		"created":         formatTime(meta.Created),
		"word_count":      meta.WordCount,
		"line_count":      meta.LineCount,
		"has_frontmatter": meta.HasFrontmatter,
	}
	if meta.Frontmatter != nil {
		out["frontmatter"] = meta.Frontmatter
	}
	return map[string]any{"metadata": out}, nil
}

func (i *Integration) listTemplates(_ context.Context, _ tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	names, err := vault.Templates()
	if err != nil {
		return nil, err
	}
	return map[string]any{"templates": names, "count": len(names)}, nil
}

func (i *Integration) createFromTemplate(_ context.Context, args tool.Args) (map[string]any, error) {
	vault, err := i.vault.Get()
	if err != nil {
		return nil, err
	}
	name, err := args.String("note_path")
	if err != nil {
		return nil, err
	}
	template, err := args.String("template")
	if err != nil {
		return nil, err
	}
	vars, err := args.Object("variables")
	if err != nil {
		return nil, err
	}
	overwrite, err := args.Bool("overwrite", false)
	if err != nil {
		return nil, err
	}

	info, err := vault.CreateFromTemplate(name, template, vars, overwrite, i.now())
	if err != nil {
		return nil, err
	}
	out := info.summary(true)
	out["template"] = template
	return map[string]any{"note": out}, nil
}
