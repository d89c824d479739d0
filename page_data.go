package livepad

import (
	"html/template"

	"github.com/patrickward/livepad/internal/files"
)

// PageData holds data passed to templates for rendering
type PageData struct {
	Title             string // Rendered H1, then metadata title, then the file name
	CurrentDoc        files.DocumentInfo
	Documents         []files.DocumentInfo
	Content           template.HTML // Annotated preview HTML
	RawContent        string
	SectionHeaders    []string // H2 headers in the current document
	TasksTotal        int
	TasksCompleted    int
	IsEditing         bool
	EncryptionEnabled bool
	FlashMessage      string
	FlashMessageType  string
	ErrorMessage      string
}

func (p PageData) HasTasks() bool {
	return p.TasksTotal > 0
}
