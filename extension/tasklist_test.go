package extension_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/patrickward/livepad/extension"
)

func TestTaskList_Render(t *testing.T) {
	t.Parallel()
	md := goldmark.New(goldmark.WithExtensions(extension.TaskList))

	out := render(t, md, "- [x] done <b>\n- [ ] todo\n- plain\n")

	assert.Contains(t, out, `<input checked="" disabled="" type="checkbox" data-task-index="1"> <span class="tasklist-label">done &lt;b&gt;</span>`)
	assert.Contains(t, out, `<input disabled="" type="checkbox" data-task-index="2"> <span class="tasklist-label">todo</span>`)
	assert.Contains(t, out, `<li>plain</li>`)
}

func TestTaskList_IgnoresOutsideLists(t *testing.T) {
	t.Parallel()
	md := goldmark.New(goldmark.WithExtensions(extension.TaskList))

	out := render(t, md, "[x] not a task\n")

	assert.NotContains(t, out, "checkbox")
}

func TestTaskStats(t *testing.T) {
	t.Parallel()
	md := goldmark.New(goldmark.WithExtensions(extension.TaskList))
	source := []byte("- [x] one\n- [X] two\n- [ ] three\n\n1. [ ] four\n")

	pc := parser.NewContext()
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))
	require.NotNil(t, doc)

	stats := extension.TaskStats(pc)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 2, stats.Pending)

	var buf bytes.Buffer
	require.NoError(t, md.Renderer().Render(&buf, source, doc))
	assert.Contains(t, buf.String(), `data-task-index="4"`)
}

func TestTaskStats_NoTasks(t *testing.T) {
	t.Parallel()

	stats := extension.TaskStats(parser.NewContext())
	assert.Equal(t, extension.TasksStatsInfo{}, stats)
}
