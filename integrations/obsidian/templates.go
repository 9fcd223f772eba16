package obsidian

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/petal-labs/petaltools/tool"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Templates lists the template notes below the templates directory, relative
// to it. A missing directory has no templates.
func (v *Vault) Templates() ([]string, error) {
	info, err := os.Stat(v.templates)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("obsidian: stat templates: %w", err)
	}
	if !info.IsDir() {
		return []string{}, nil
	}

	names := []string{}
	err = filepath.WalkDir(v.templates, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), noteExt) {
			return nil
		}
		rel, err := filepath.Rel(v.templates, path)
		if err != nil {
			return nil
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("obsidian: list templates: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// CreateFromTemplate renders a template into a new note. Placeholders are
// {{name}}; title and date are filled in unless vars overrides them, and
// unknown placeholders are kept as written.
func (v *Vault) CreateFromTemplate(name, template string, vars map[string]any, overwrite bool, now time.Time) (NoteInfo, error) {
	body, err := v.readTemplate(template)
	if err != nil {
		return NoteInfo{}, err
	}

	values := map[string]string{
		"title": noteTitle(name),
		"date":  now.Format(time.DateOnly),
	}
	for key, value := range vars {
		values[key] = fmt.Sprint(value)
	}

	rendered := placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := values[key]; ok {
			return value
		}
		return match
	})
	return v.Create(name, rendered, overwrite, nil)
}

func (v *Vault) readTemplate(template string) (string, error) {
	clean := strings.TrimSpace(template)
	if clean == "" {
		return "", tool.InputError("missing required parameter: template")
	}
	if !strings.HasSuffix(clean, noteExt) {
		clean += noteExt
	}
	if filepath.IsAbs(clean) {
		return "", escapeError(template)
	}
	abs := filepath.Join(v.templates, filepath.Clean(filepath.FromSlash(clean)))
	if !within(v.templates, abs) {
		return "", escapeError(template)
	}
	target, err := evalExisting(abs)
	if err != nil {
		return "", fmt.Errorf("obsidian: resolve template: %w", err)
	}
	templatesDir, err := evalExisting(v.templates)
	if err != nil {
		return "", fmt.Errorf("obsidian: resolve template: %w", err)
	}
	if !within(templatesDir, target) || !within(v.root, target) {
		return "", escapeError(template)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound("Template", template)
		}
		return "", fmt.Errorf("obsidian: read template: %w", err)
	}
	return string(data), nil
}

func noteTitle(name string) string {
	base := filepath.Base(filepath.FromSlash(strings.TrimSpace(name)))
	return strings.TrimSuffix(base, noteExt)
}
