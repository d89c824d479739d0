package protocol

import (
	"errors"
	"fmt"
	"slices"
)

// Content replaces the whole document held by the server.
type Content struct {
	Text       string `json:"text"`
	CursorLine int    `json:"cursorLine"`
}

func (*Content) MessageType() Type { return TypeContent }

func (m *Content) Validate() error {
	if m.CursorLine < 0 {
		return fmt.Errorf("cursor line %d is negative", m.CursorLine)
	}
	return nil
}

// Cursor reports that the editor cursor moved to Line.
type Cursor struct {
	Line int `json:"line"`
}

func (*Cursor) MessageType() Type { return TypeCursor }

func (m *Cursor) Validate() error {
	if m.Line < 1 {
		return fmt.Errorf("line %d is below 1", m.Line)
	}
	return nil
}

// Click reports a click on the preview element at Path.
type Click struct {
	Path []int `json:"path"`
}

func (*Click) MessageType() Type { return TypeClick }

func (m *Click) Validate() error {
	return validatePath(m.Path)
}

// Sync asks for an immediate editor to preview sync.
type Sync struct{}

func (*Sync) MessageType() Type { return TypeSync }
func (*Sync) Validate() error   { return nil }

// Save asks the server to persist the current document.
type Save struct{}

func (*Save) MessageType() Type { return TypeSave }
func (*Save) Validate() error   { return nil }

type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Render carries freshly rendered preview HTML.
type Render struct {
	HTML  string    `json:"html"`
	Title string    `json:"title"`
	Tasks TaskStats `json:"tasks"`
}

func (*Render) MessageType() Type { return TypeRender }
func (*Render) Validate() error   { return nil }

// ScrollPreview centers the preview on the element at Path. StartLine and
// EndLine let the browser drop a path that a newer render made stale.
type ScrollPreview struct {
	Path      []int `json:"path"`
	StartLine int   `json:"startLine"`
	EndLine   int   `json:"endLine"`
}

func (*ScrollPreview) MessageType() Type { return TypeScrollPreview }

func (m *ScrollPreview) Validate() error {
	if err := validatePath(m.Path); err != nil {
		return err
	}
	if m.StartLine < 1 || m.EndLine < m.StartLine {
		return fmt.Errorf("invalid range %d-%d", m.StartLine, m.EndLine)
	}
	return nil
}

// Highlight toggles the transient highlight of the element at Path.
type Highlight struct {
	Path []int `json:"path"`
	On   bool  `json:"on"`
}

func (*Highlight) MessageType() Type { return TypeHighlight }

func (m *Highlight) Validate() error {
	return validatePath(m.Path)
}

// SetCursor moves the editor cursor to Offset, the start of Line, scrolls
// it into view and focuses the editor.
type SetCursor struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

func (*SetCursor) MessageType() Type { return TypeSetCursor }

func (m *SetCursor) Validate() error {
	if m.Line < 1 || m.Offset < 0 {
		return fmt.Errorf("invalid cursor line %d offset %d", m.Line, m.Offset)
	}
	return nil
}

// Saved confirms that the document was persisted.
type Saved struct {
	ID string `json:"id"`
}

func (*Saved) MessageType() Type { return TypeSaved }

func (m *Saved) Validate() error {
	if m.ID == "" {
		return errors.New("missing document id")
	}
	return nil
}

type Error struct {
	Message string `json:"message"`
}

func (*Error) MessageType() Type { return TypeError }

func (m *Error) Validate() error {
	if m.Message == "" {
		return errors.New("missing error message")
	}
	return nil
}

func validatePath(path []int) error {
	if len(path) == 0 {
		return errors.New("missing element path")
	}
	if slices.ContainsFunc(path, func(i int) bool { return i < 0 }) {
		return fmt.Errorf("negative index in element path %v", path)
	}
	return nil
}
