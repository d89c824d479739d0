package ast

// Credit: Original from github.com/yuin/goldmark/extension/ast/tasklist
// Modified so every checkbox carries a stable index for the live preview.

import (
	"fmt"

	gast "github.com/yuin/goldmark/ast"
)

// A TaskCheckBox struct represents a checkbox of a task list.
type TaskCheckBox struct {
	gast.BaseInline
	IsChecked bool
	Index     int
	Label     string
}

// Dump implements Node.Dump.
func (n *TaskCheckBox) Dump(source []byte, level int) {
	m := map[string]string{
		"Checked": fmt.Sprintf("%v", n.IsChecked),
		"Index":   fmt.Sprintf("%d", n.Index),
	}
	gast.DumpHelper(n, source, level, m, nil)
}

// KindTaskCheckBox is a NodeKind of the TaskCheckBox node.
var KindTaskCheckBox = gast.NewNodeKind("TaskCheckBox")

// Kind implements Node.Kind.
func (n *TaskCheckBox) Kind() gast.NodeKind {
	return KindTaskCheckBox
}

// NewTaskCheckBox returns a new TaskCheckBox node.
func NewTaskCheckBox(checked bool, index int, label string) *TaskCheckBox {
	return &TaskCheckBox{
		IsChecked: checked,
		Index:     index,
		Label:     label,
	}
}
