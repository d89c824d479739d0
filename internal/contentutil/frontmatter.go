package contentutil

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type FrontmatterBounds struct {
	Start int
	End   int
	Found bool
}

// Frontmatter holds the front matter keys livepad understands.
type Frontmatter struct {
	Title     string `yaml:"title"`
	Encrypted bool   `yaml:"encrypted"`
}

// FindFrontmatter finds the bounds of the frontmatter section in the given lines
func FindFrontmatter(lines []string) FrontmatterBounds {
	if len(lines) == 0 {
		return FrontmatterBounds{}
	}

	// Skip any blank lines at the start
	startIdx := 0
	for startIdx < len(lines) && strings.TrimSpace(lines[startIdx]) == "" {
		startIdx++
	}

	// Return empty bounds if no frontmatter found, i.e., the first non-blank line is not "---"
	if startIdx >= len(lines) || strings.TrimSpace(lines[startIdx]) != "---" {
		return FrontmatterBounds{}
	}

	// Look for the closing frontmatter delimiter
	for i := startIdx + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return FrontmatterBounds{
				Start: startIdx,
				End:   i + 1,
				Found: true,
			}
		}
	}

	// Return empty bounds if no closing delimiter found
	return FrontmatterBounds{}
}

// ParseFrontmatter decodes the front matter of content. Content without
// front matter yields a zero Frontmatter.
func ParseFrontmatter(content string) (Frontmatter, error) {
	var fm Frontmatter

	lines := SplitLines(content)
	bounds := FindFrontmatter(lines)
	if !bounds.Found {
		return fm, nil
	}

	block := strings.Join(lines[bounds.Start+1:bounds.End-1], "\n")
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return Frontmatter{}, fmt.Errorf("failed to parse front matter: %w", err)
	}
	return fm, nil
}

// HasEncryptedFrontmatter checks if content has encrypted: true in frontmatter
func HasEncryptedFrontmatter(content string) bool {
	fm, err := ParseFrontmatter(content)
	return err == nil && fm.Encrypted
}
