package extension

// Credit: Original from github.com/yuin/goldmark/extension/tasklist
// Modified to count tasks per document and render read-only checkboxes in the live preview.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/patrickward/livepad/extension/ast"
)

var TasksCountKey = parser.NewContextKey()
var CompletedTasksCountKey = parser.NewContextKey()

var taskListRegexp = regexp.MustCompile(`^\[([\sxX])\]([^\r\n]*)`)

type taskCheckBoxParser struct {
}

var defaultTaskCheckBoxParser = &taskCheckBoxParser{}

type TasksStatsInfo struct {
	Total     int
	Completed int
	Pending   int
}

// TaskStats returns the task counts collected while parsing a document.
func TaskStats(pc parser.Context) TasksStatsInfo {
	total := contextCount(pc, TasksCountKey)
	completed := contextCount(pc, CompletedTasksCountKey)

	return TasksStatsInfo{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}
}

func contextCount(pc parser.Context, key parser.ContextKey) int {
	if val := pc.Get(key); val != nil {
		if count, ok := val.(int); ok {
			return count
		}
	}
	return 0
}

// NewTaskCheckBoxParser returns a new  InlineParser that can parse
// checkboxes in list items.
// This parser must take precedence over the parser.LinkParser.
func NewTaskCheckBoxParser() parser.InlineParser {
	return defaultTaskCheckBoxParser
}

func (s *taskCheckBoxParser) Trigger() []byte {
	return []byte{'['}
}

func (s *taskCheckBoxParser) Parse(parent gast.Node, block text.Reader, pc parser.Context) gast.Node {
	// Given AST structure must be like
	// - List
	//   - ListItem         : parent.Parent
	//     - TextBlock      : parent
	//       (current line)
	if parent.Parent() == nil || parent.Parent().FirstChild() != parent {
		return nil
	}

	if parent.HasChildren() {
		return nil
	}
	if _, ok := parent.Parent().(*gast.ListItem); !ok {
		return nil
	}
	line, _ := block.PeekLine()
	m := taskListRegexp.FindSubmatchIndex(line)
	if m == nil {
		return nil
	}

	index := contextCount(pc, TasksCountKey) + 1
	pc.Set(TasksCountKey, index)

	value := line[m[2]:m[3]][0]
	label := strings.TrimSpace(string(line[m[4]:m[5]]))
	block.Advance(m[1])
	checked := value == 'x' || value == 'X'
	if checked {
		pc.Set(CompletedTasksCountKey, contextCount(pc, CompletedTasksCountKey)+1)
	}
	return ast.NewTaskCheckBox(checked, index, label)
}

func (s *taskCheckBoxParser) CloseBlock(parent gast.Node, pc parser.Context) {
	// nothing to do
}

// TaskCheckBoxHTMLRenderer is a renderer.NodeRenderer implementation that
// renders checkboxes in list items.
type TaskCheckBoxHTMLRenderer struct {
	html.Config
}

// NewTaskCheckBoxHTMLRenderer returns a new TaskCheckBoxHTMLRenderer.
func NewTaskCheckBoxHTMLRenderer(opts ...html.Option) renderer.NodeRenderer {
	r := &TaskCheckBoxHTMLRenderer{
		Config: html.NewConfig(),
	}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

// RegisterFuncs implements renderer.NodeRenderer.RegisterFuncs.
func (r *TaskCheckBoxHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindTaskCheckBox, r.renderTaskCheckBox)
}

func (r *TaskCheckBoxHTMLRenderer) renderTaskCheckBox(
	w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	if !entering {
		return gast.WalkContinue, nil
	}
	n := node.(*ast.TaskCheckBox)

	_, _ = w.WriteString(`<span class="tasklist-item">`)

	if n.IsChecked {
		_, _ = w.WriteString(`<input checked="" disabled="" type="checkbox"`)
	} else {
		_, _ = w.WriteString(`<input disabled="" type="checkbox"`)
	}
	_, _ = fmt.Fprintf(w, ` data-task-index="%d"`, n.Index)

	if r.XHTML {
		_, _ = w.WriteString(" /> ")
	} else {
		_, _ = w.WriteString("> ")
	}

	_, _ = w.WriteString(`<span class="tasklist-label">`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Label)))
	_, _ = w.WriteString(`</span></span>`)

	return gast.WalkContinue, nil
}

type taskList struct {
}

// TaskList is an extension that allow you to use GFM task lists.
var TaskList = &taskList{}

func (e *taskList) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(NewTaskCheckBoxParser(), 0),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewTaskCheckBoxHTMLRenderer(), 500),
	))
}
