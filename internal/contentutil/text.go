package contentutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// NormalizeLineEndings normalizes line endings in a string.
func NormalizeLineEndings(content string) string {
	// Replace Windows CRLF
	content = strings.ReplaceAll(content, "\r\n", "\n")

	// Replace legacy Mac CR
	content = strings.ReplaceAll(content, "\r", "\n")
	return content
}

// SplitLines splits a string into lines, normalizing line endings.
func SplitLines(content string) []string {
	return strings.Split(NormalizeLineEndings(content), "\n")
}

// DisplayName turns a document path such as "notes/road-runner.md" into
// "Notes/Road Runner".
func DisplayName(path string) string {
	path = strings.TrimSuffix(path, ".md")
	parts := strings.Split(path, "/")
	for i, part := range parts {
		parts[i] = TitleCase(strings.NewReplacer("-", " ", "_", " ").Replace(part))
	}
	return strings.Join(parts, "/")
}
