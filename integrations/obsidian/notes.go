package obsidian

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/petal-labs/petaltools/tool"
)

const maxMatchLineRunes = 200

// Note is a note's content plus its file details.
type Note struct {
	NoteInfo
	Content string
}

// Read returns a note's content.
func (v *Vault) Read(name string) (Note, error) {
	abs, rel, err := v.notePath(name)
	if err != nil {
		return Note{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Note{}, notFound("Note", name)
		}
		return Note{}, fmt.Errorf("obsidian: read note: %w", err)
	}
	info, err := statNote(abs, rel)
	if err != nil {
		return Note{}, fmt.Errorf("obsidian: stat note: %w", err)
	}
	return Note{NoteInfo: info, Content: string(data)}, nil
}

// Create writes a new note, optionally prefixed with frontmatter.
func (v *Vault) Create(name, content string, overwrite bool, frontmatter map[string]any) (NoteInfo, error) {
	abs, rel, err := v.notePath(name)
	if err != nil {
		return NoteInfo{}, err
	}
	found, err := exists(abs)
	if err != nil {
		return NoteInfo{}, fmt.Errorf("obsidian: stat note: %w", err)
	}
	if found && !overwrite {
		return NoteInfo{}, tool.UpstreamError(
			fmt.Sprintf("Note already exists: %s. Use overwrite=true to replace it.", name), false, nil)
	}

	body, err := renderFrontmatter(frontmatter, content)
	if err != nil {
		return NoteInfo{}, err
	}
	if err := writeAtomic(abs, []byte(body)); err != nil {
		return NoteInfo{}, err
	}
	return statNote(abs, rel)
}

// Update replaces the content of an existing note.
func (v *Vault) Update(name, content string) (NoteInfo, error) {
	abs, rel, err := v.existingNote(name)
	if err != nil {
		return NoteInfo{}, err
	}
	if err := writeAtomic(abs, []byte(content)); err != nil {
		return NoteInfo{}, err
	}
	return statNote(abs, rel)
}

// Append adds content to the end of an existing note.
func (v *Vault) Append(name, content string, addNewline bool) (NoteInfo, error) {
	abs, rel, err := v.existingNote(name)
	if err != nil {
		return NoteInfo{}, err
	}

	f, err := os.OpenFile(abs, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return NoteInfo{}, fmt.Errorf("obsidian: open note: %w", err)
	}
	if addNewline {
		content = "\n" + content
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return NoteInfo{}, fmt.Errorf("obsidian: append note: %w", err)
	}
	if err := f.Close(); err != nil {
		return NoteInfo{}, fmt.Errorf("obsidian: append note: %w", err)
	}
	return statNote(abs, rel)
}

// List returns every note under folder, sorted by path. A non-empty pattern
// keeps only notes whose vault-relative path matches it.
func (v *Vault) List(folder, pattern string) ([]NoteInfo, error) {
	abs, _, err := v.folderPath(folder)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil, notFound("Folder", folder)
		}
		return nil, fmt.Errorf("obsidian: stat folder: %w", err)
	}
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	var notes []NoteInfo
	err = v.walkNotes(abs, pattern, func(path, rel string) {
		note, err := statNote(path, rel)
		if err != nil {
			return
		}
		notes = append(notes, note)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, nil
}

// Match is one matching line.
type Match struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// SearchHit is a note with at least one matching line.
type SearchHit struct {
	NoteInfo
	Matches []Match
}

// Search scans every note for query, line by line.
func (v *Vault) Search(query string, caseSensitive bool, pattern string) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, tool.InputError("missing required parameter: query")
	}
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	needle := query
	if !caseSensitive {
		needle = strings.ToLower(query)
	}

	var hits []SearchHit
	err := v.walkNotes(v.root, pattern, func(path, rel string) {
		data, err := os.ReadFile(path)
		if err != nil || !utf8.Valid(data) {
			return
		}
		var matches []Match
		for i, line := range strings.Split(string(data), "\n") {
			haystack := line
			if !caseSensitive {
				haystack = strings.ToLower(line)
			}
			if strings.Contains(haystack, needle) {
				matches = append(matches, Match{Line: i + 1, Content: truncateRunes(line, maxMatchLineRunes)})
			}
		}
		if len(matches) == 0 {
			return
		}
		info, err := statNote(path, rel)
		if err != nil {
			return
		}
		hits = append(hits, SearchHit{NoteInfo: info, Matches: matches})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Path < hits[j].Path })
	sort.SliceStable(hits, func(i, j int) bool { return len(hits[i].Matches) > len(hits[j].Matches) })
	return hits, nil
}

// DeleteResult reports where a deleted note went.
type DeleteResult struct {
	DeletedPath string
	Permanent   bool
}

// Delete moves a note aside to "<note>.trash". When the move fails for any
// reason other than permissions the note is removed outright.
func (v *Vault) Delete(name string) (DeleteResult, error) {
	abs, rel, err := v.existingNote(name)
	if err != nil {
		return DeleteResult{}, err
	}

	const trashSuffix = ".trash"
	err = os.Rename(abs, abs+trashSuffix)
	switch {
	case err == nil:
		return DeleteResult{DeletedPath: rel + trashSuffix}, nil
	case errors.Is(err, fs.ErrNotExist):
		return DeleteResult{}, notFound("Note", name)
	case errors.Is(err, fs.ErrPermission):
		return DeleteResult{}, tool.UpstreamError(fmt.Sprintf("Could not delete note %s: %v", name, err), false, err)
	}

	if err := os.Remove(abs); err != nil {
		return DeleteResult{}, tool.UpstreamError(fmt.Sprintf("Could not delete note %s: %v", name, err), false, err)
	}
	return DeleteResult{DeletedPath: rel, Permanent: true}, nil
}

// Metadata describes a note without returning its content.
type Metadata struct {
	NoteInfo
	WordCount      int
	LineCount      int
	HasFrontmatter bool
	Frontmatter    map[string]any
}

// Metadata computes a note's word and line counts and parses its frontmatter.
func (v *Vault) Metadata(name string) (Metadata, error) {
	note, err := v.Read(name)
	if err != nil {
		return Metadata{}, err
	}
	fields, hasFrontmatter := parseFrontmatter(note.Content)
	return Metadata{
		NoteInfo:       note.NoteInfo,
		WordCount:      len(strings.Fields(note.Content)),
		LineCount:      len(strings.Split(note.Content, "\n")),
		HasFrontmatter: hasFrontmatter,
		Frontmatter:    fields,
	}, nil
}

func (v *Vault) existingNote(name string) (string, string, error) {
	abs, rel, err := v.notePath(name)
	if err != nil {
		return "", "", err
	}
	found, err := exists(abs)
	if err != nil {
		return "", "", fmt.Errorf("obsidian: stat note: %w", err)
	}
	if !found {
		return "", "", notFound("Note", name)
	}
	return abs, rel, nil
}

// walkNotes calls fn for every regular .md file below dir. Symlinks are not
// followed.
func (v *Vault) walkNotes(dir, pattern string, fn func(path, rel string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), noteExt) {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				return nil
			}
		}
		fn(path, rel)
		return nil
	})
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return tool.InputError("invalid pattern: %s", pattern)
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
