package rendering

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	pextension "github.com/patrickward/livepad/extension"
	"github.com/patrickward/livepad/internal/contentutil"
)

// MarkdownRenderer converts Markdown into sanitized preview HTML in which
// every block carries the source lines it came from. It holds no
// per-document state and is safe for concurrent use.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

type RenderedContent struct {
	Title          string         // The extracted title, if any.
	HTML           template.HTML  // The rendered HTML content.
	SectionHeaders []string       // List of section headers (H2).
	TasksTotal     int            // Number of tasks in the content.
	TasksCompleted int            // Number of completed tasks in the content.
	TasksPending   int            // Number of pending tasks in the content.
	Metadata       map[string]any // Additional metadata extracted from front matter.
}

// NewMarkdownRenderer creates a new MarkdownRenderer instance.
func NewMarkdownRenderer() *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Linkify,
			extension.Table,
			extension.Strikethrough,
			extension.Typographer,
			extension.DefinitionList,
			pextension.TaskList,
			pextension.ImageSize,
			pextension.SourcePos,
			meta.Meta,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(), // Allow raw HTML, but sanitize later
		),
	)

	return &MarkdownRenderer{
		md:        md,
		sanitizer: createSanitizerPolicy(),
	}
}

// Render renders the given Markdown content. Line endings are normalized
// first so line numbers match what a browser editor reports.
func (mr *MarkdownRenderer) Render(content string) RenderedContent {
	source := []byte(contentutil.NormalizeLineEndings(content))

	ctx := parser.NewContext()
	doc := mr.md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))
	outline := collectOutline(doc, source)

	var buf bytes.Buffer
	if err := mr.md.Renderer().Render(&buf, source, doc); err != nil {
		return mr.renderError(ctx, string(source), outline, err)
	}

	sanitized := mr.sanitizer.Sanitize(buf.String())
	metadata := meta.Get(ctx)
	taskStats := pextension.TaskStats(ctx)

	return RenderedContent{
		Title:          renderedTitle(outline.title, metadata),
		HTML:           template.HTML(sanitized),
		SectionHeaders: outline.sections,
		TasksTotal:     taskStats.Total,
		TasksCompleted: taskStats.Completed,
		TasksPending:   taskStats.Pending,
		Metadata:       metadata,
	}
}

type outline struct {
	title    string
	sections []string
}

// collectOutline finds the first H1 and every H2 of the document.
func collectOutline(doc gast.Node, source []byte) outline {
	var out outline
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		heading, ok := n.(*gast.Heading)
		if !ok {
			return gast.WalkContinue, nil
		}

		switch heading.Level {
		case 1:
			if out.title == "" {
				out.title = headingText(heading, source)
			}
		case 2:
			out.sections = append(out.sections, headingText(heading, source))
		}
		return gast.WalkSkipChildren, nil
	})
	return out
}

func headingText(h *gast.Heading, source []byte) string {
	var sb strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimSpace(sb.String())
}

// renderError renders an error message for the given content.
func (mr *MarkdownRenderer) renderError(ctx parser.Context, content string, outline outline, err error) RenderedContent {
	metadata := meta.Get(ctx)

	// Prepend the error message to the content
	content = fmt.Sprintf("<div class=\"callout danger\">%s</div><pre>%s</pre>",
		template.HTMLEscapeString(err.Error()), template.HTMLEscapeString(content))

	taskStats := pextension.TaskStats(ctx)

	return RenderedContent{
		Title:          renderedTitle(outline.title, metadata),
		HTML:           template.HTML(content),
		SectionHeaders: outline.sections,
		TasksTotal:     taskStats.Total,
		TasksCompleted: taskStats.Completed,
		TasksPending:   taskStats.Pending,
		Metadata:       metadata,
	}
}

var imageWidthStyle = regexp.MustCompile(`^\d+(\.\d+)?%$`)

// createSanitizerPolicy creates a new sanitizer policy for HTML rendering.
func createSanitizerPolicy() *bluemonday.Policy {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowAttrs("class", "id").OnElements("span", "div", "i", "code", "pre", "p", "h1", "h2", "h3", "h4", "h5", "h6")

	// Source positions and task indexes travel as data attributes.
	sanitizer.AllowDataAttributes()

	// Read-only checkboxes for task lists.
	sanitizer.AllowElements("input", "label")
	sanitizer.AllowAttrs("type", "checked", "disabled").OnElements("input")

	// Sized images from the image shorthand.
	sanitizer.AllowAttrs("width", "height").OnElements("img")
	sanitizer.AllowStyles("width").Matching(imageWidthStyle).OnElements("img")

	// Allow media elements
	sanitizer.AllowElements("audio", "video")
	sanitizer.AllowAttrs("autoplay", "controls", "loop", "muted", "preload", "src", "type", "width", "height").OnElements("audio", "video")
	return sanitizer
}

// renderedTitle decides the title to use based on the first heading and metadata.
// 1. If the document has a level one heading, use it.
// 2. Else if metadata contains a non-empty "title", use that.
// 3. Otherwise, return an empty string and the file name will be used as a fallback.
func renderedTitle(title string, metadata map[string]any) string {
	if strings.TrimSpace(title) != "" {
		return title
	}

	if metaTitle, ok := metadata["title"].(string); ok && metaTitle != "" {
		return metaTitle
	}
	return ""
}
