package obsidian

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---\n"

// renderFrontmatter prefixes content with a YAML frontmatter block. An empty
// map leaves content untouched.
func renderFrontmatter(frontmatter map[string]any, content string) (string, error) {
	if len(frontmatter) == 0 {
		return content, nil
	}
	encoded, err := yaml.Marshal(frontmatter)
	if err != nil {
		return "", fmt.Errorf("obsidian: encode frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString(frontmatterFence)
	b.Write(encoded)
	b.WriteString(frontmatterFence)
	b.WriteString("\n")
	b.WriteString(content)
	return b.String(), nil
}

// parseFrontmatter splits a leading frontmatter block from content. ok
// reports whether the note opens with a fence; fields is nil when the block
// is not a YAML mapping.
func parseFrontmatter(content string) (fields map[string]any, ok bool) {
	if !strings.HasPrefix(content, frontmatterFence) {
		return nil, false
	}
	rest := content[len(frontmatterFence):]
	end := strings.Index(rest, "\n"+strings.TrimSuffix(frontmatterFence, "\n"))
	if end < 0 {
		return nil, true
	}
	block := rest[:end]
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		return nil, true
	}
	return fields, true
}
