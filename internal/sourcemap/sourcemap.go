// Package sourcemap indexes rendered preview elements by the source lines
// they were produced from, and locates the element for a given line.
package sourcemap

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/patrickward/livepad/extension"
)

// Range is an inclusive span of 1-based source lines.
type Range struct {
	Start int
	End   int
}

// Contains reports whether line falls inside the range.
func (r Range) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Distance is the line distance from line to the closer end of the range.
func (r Range) Distance(line int) int {
	return min(abs(line-r.Start), abs(line-r.End))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Record ties a source range to a rendered element. The element is not
// owned by the record; a record is only meaningful for the tree it was
// built from.
type Record struct {
	Range
	Seq  int        // document-order index among indexed elements
	Node *html.Node // rendered element
}

// SourceMap is an immutable index of records sorted by Start. It is
// rebuilt wholesale whenever the rendered tree changes.
type SourceMap struct {
	records []Record
}

// Len returns the number of records.
func (m *SourceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.records)
}

// At returns the i-th record in Start order.
func (m *SourceMap) At(i int) Record {
	return m.records[i]
}

// Records returns a copy of the records in Start order.
func (m *SourceMap) Records() []Record {
	if m == nil {
		return nil
	}
	return slices.Clone(m.records)
}

// ParseRange reads the position attributes of an element. It fails for
// non-element nodes, a missing or malformed start, or a start below 1. A
// missing or malformed end falls back to the start; an end before the
// start is clamped to it.
func ParseRange(n *html.Node) (Range, bool) {
	if n == nil || n.Type != html.ElementNode {
		return Range{}, false
	}

	rawStart, ok := attr(n, extension.AttrPosStart)
	if !ok {
		return Range{}, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(rawStart))
	if err != nil || start < 1 {
		return Range{}, false
	}

	end := start
	if rawEnd, ok := attr(n, extension.AttrPosEnd); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(rawEnd)); err == nil && v > start {
			end = v
		}
	}

	return Range{Start: start, End: end}, true
}

// HasRange reports whether the element carries both position attributes.
func HasRange(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, hasStart := attr(n, extension.AttrPosStart)
	_, hasEnd := attr(n, extension.AttrPosEnd)
	return hasStart && hasEnd
}

// Enclosing returns the element itself or its nearest ancestor carrying a
// start position, together with its parsed range.
func Enclosing(n *html.Node) (*html.Node, Range, bool) {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(n, extension.AttrPosStart); !ok {
			continue
		}
		r, ok := ParseRange(n)
		return n, r, ok
	}
	return nil, Range{}, false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
