package obsidian

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/petal-labs/petaltools/tool"
)

const noteExt = ".md"

// Vault is a directory of markdown notes. Every path it accepts is relative
// to the vault root and must stay inside it.
type Vault struct {
	root      string
	templates string
}

// OpenVault resolves root and the templates directory. A relative
// templatesDir is taken relative to root.
func OpenVault(root, templatesDir string) (*Vault, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("obsidian: vault path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("obsidian: resolve vault path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("obsidian: resolve vault path: %w", err)
	}

	templates, err := resolveTemplatesDir(resolved, templatesDir)
	if err != nil {
		return nil, err
	}
	return &Vault{root: resolved, templates: templates}, nil
}

// resolveTemplatesDir places templatesDir under the resolved vault root and
// rejects any location, symlinks included, that ends up outside it.
func resolveTemplatesDir(root, templatesDir string) (string, error) {
	templates := strings.TrimSpace(templatesDir)
	if templates == "" {
		templates = DefaultTemplatesPath
	}
	if !filepath.IsAbs(templates) {
		templates = filepath.Join(root, templates)
	}
	target, err := evalExisting(filepath.Clean(templates))
	if err != nil {
		return "", fmt.Errorf("obsidian: resolve templates path: %w", err)
	}
	if !within(root, target) {
		return "", tool.ConfigurationError(tool.ToolErrorCodeConfigurationInvalid,
			"Obsidian templates path is outside the vault: "+templatesDir)
	}
	return target, nil
}

// Root returns the resolved vault directory.
func (v *Vault) Root() string {
	return v.root
}

// NoteInfo describes one note on disk.
type NoteInfo struct {
	Path     string
	Size     int64
	Modified time.Time
	Created  time.Time
}

func (n NoteInfo) summary(created bool) map[string]any {
	out := map[string]any{
		"path":     n.Path,
		"size":     n.Size,
		"modified": formatTime(n.Modified),
	}
	if created {
		out["created"] = formatTime(n.Created)
	}
	return out
}

// notePath maps a caller-supplied note name to its absolute and
// vault-relative paths. "x" and "x.md" name the same note.
func (v *Vault) notePath(name string) (string, string, error) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return "", "", tool.InputError("missing required parameter: note_path")
	}
	if !strings.HasSuffix(clean, noteExt) {
		clean += noteExt
	}
	return v.resolve(v.root, clean, name)
}

// folderPath is notePath for directories; "" is the vault root.
func (v *Vault) folderPath(name string) (string, string, error) {
	if strings.TrimSpace(name) == "" {
		return v.root, "", nil
	}
	return v.resolve(v.root, strings.TrimSpace(name), name)
}

func (v *Vault) resolve(base, rel, original string) (string, string, error) {
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", "", escapeError(original)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", escapeError(original)
	}

	abs := filepath.Join(base, clean)
	target, err := evalExisting(abs)
	if err != nil {
		return "", "", fmt.Errorf("obsidian: resolve %s: %w", original, err)
	}
	if !within(v.root, target) {
		return "", "", escapeError(original)
	}

	relToRoot, err := filepath.Rel(v.root, abs)
	if err != nil {
		return "", "", escapeError(original)
	}
	return abs, filepath.ToSlash(relToRoot), nil
}

// evalExisting resolves symlinks in the longest existing prefix of path and
// re-attaches the rest.
func evalExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := evalExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func escapeError(path string) error {
	return tool.InputError("note path escapes vault: %s", path)
}

func notFound(kind, path string) error {
	return tool.UpstreamError(fmt.Sprintf("%s not found: %s", kind, path), false, nil)
}

func statNote(abs, rel string) (NoteInfo, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return NoteInfo{}, err
	}
	return NoteInfo{
		Path:     rel,
		Size:     info.Size(),
		Modified: info.ModTime(),
		Created:  createdTime(info),
	}, nil
}

// createdTime falls back to the modification time; birth time is not
// portable across the platforms the vault lives on.
func createdTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func exists(abs string) (bool, error) {
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// writeAtomic replaces abs with data via a temporary file in the same directory.
func writeAtomic(abs string, data []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("obsidian: create folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".petaltools-*.tmp")
	if err != nil {
		return fmt.Errorf("obsidian: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("obsidian: write note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("obsidian: write note: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("obsidian: write note: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		cleanup()
		return fmt.Errorf("obsidian: write note: %w", err)
	}
	return nil
}
