package rendering_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickward/livepad/internal/rendering"
	"github.com/patrickward/livepad/internal/sourcemap"
)

func TestMarkdownRenderer_Render(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	content := mr.Render("# Daily Notes\n\nSome *text*\n\n## Tasks\n\n- [x] one\n- [ ] two\n")

	assert.Equal(t, "Daily Notes", content.Title)
	assert.Equal(t, []string{"Tasks"}, content.SectionHeaders)
	assert.Equal(t, 2, content.TasksTotal)
	assert.Equal(t, 1, content.TasksCompleted)
	assert.Equal(t, 1, content.TasksPending)

	html := string(content.HTML)
	assert.Contains(t, html, `data-pos-start="1"`)
	assert.Contains(t, html, `data-task-index="2"`)
	assert.Contains(t, html, `type="checkbox"`)
}

func TestMarkdownRenderer_PositionsSurviveSanitizing(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	source := "# Title\n\npara one\n\n> quote\n> more\n\n```go\nx := 1\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	content := mr.Render(source)

	m, _, err := sourcemap.BuildFromHTML(string(content.HTML))
	require.NoError(t, err)

	byTag := map[string]sourcemap.Range{}
	for _, rec := range m.Records() {
		if _, seen := byTag[rec.Node.Data]; !seen {
			byTag[rec.Node.Data] = rec.Range
		}
	}

	assert.Equal(t, sourcemap.Range{Start: 1, End: 1}, byTag["h1"])
	assert.Equal(t, sourcemap.Range{Start: 3, End: 3}, byTag["p"])
	assert.Equal(t, sourcemap.Range{Start: 5, End: 6}, byTag["blockquote"])
	assert.Equal(t, sourcemap.Range{Start: 8, End: 10}, byTag["pre"])
	assert.Equal(t, sourcemap.Range{Start: 12, End: 14}, byTag["table"])

	rec, ok := sourcemap.Locate(m, 9)
	require.True(t, ok)
	assert.Equal(t, "pre", rec.Node.Data)
}

func TestMarkdownRenderer_FrontMatter(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	content := mr.Render("---\ntitle: From Meta\ntags: [a]\n---\nbody text\n")

	assert.Equal(t, "From Meta", content.Title)
	assert.Equal(t, "From Meta", content.Metadata["title"])
	assert.Contains(t, string(content.HTML), `<p data-pos-start="5" data-pos-end="5">body text</p>`)
	assert.NotContains(t, string(content.HTML), "tags")
}

func TestMarkdownRenderer_HeadingWinsOverMeta(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	content := mr.Render("---\ntitle: From Meta\n---\n# From Heading\n")

	assert.Equal(t, "From Heading", content.Title)
}

func TestMarkdownRenderer_CRLF(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	content := mr.Render("one\r\n\r\ntwo\r\n")

	assert.Contains(t, string(content.HTML), `<p data-pos-start="3" data-pos-end="3">two</p>`)
}

func TestMarkdownRenderer_Sanitizes(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	content := mr.Render("hello\n\n<script>alert(1)</script>\n\n<div onclick=\"x()\">raw</div>\n")
	html := string(content.HTML)

	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "onclick")
	assert.Contains(t, html, "raw")
}

func TestMarkdownRenderer_ImageSizes(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	html := string(mr.Render("![[cat.png|300]]\n\n![[dog.png|50%]]\n").HTML)

	assert.Contains(t, html, `width="300"`)
	assert.Contains(t, html, "50%")
	assert.Equal(t, 2, strings.Count(html, "<img"))
}

func TestMarkdownRenderer_Empty(t *testing.T) {
	t.Parallel()
	mr := rendering.NewMarkdownRenderer()

	content := mr.Render("")

	assert.Empty(t, strings.TrimSpace(string(content.HTML)))
	assert.Empty(t, content.Title)
}
