package extension

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Attribute names carrying the 1-based source lines of a rendered element.
const (
	AttrPosStart = "data-pos-start"
	AttrPosEnd   = "data-pos-end"
)

// lineTable maps byte offsets of a source to 1-based line numbers.
type lineTable []int

func newLineTable(source []byte) lineTable {
	starts := lineTable{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// line returns the line holding the byte at offset.
func (lt lineTable) line(offset int) int {
	return sort.Search(len(lt), func(i int) bool { return lt[i] > offset })
}

// text returns the content of the given line without its line ending.
func (lt lineTable) text(source []byte, line int) []byte {
	if line < 1 || line > len(lt) {
		return nil
	}
	start := lt[line-1]
	end := len(source)
	if line < len(lt) {
		end = lt[line]
	}
	return bytes.TrimRight(source[start:end], "\r\n")
}

type lineSpan struct {
	first int
	last  int
}

func (s lineSpan) valid() bool {
	return s.first > 0
}

func (s lineSpan) union(o lineSpan) lineSpan {
	if !s.valid() {
		return o
	}
	if !o.valid() {
		return s
	}
	if o.first < s.first {
		s.first = o.first
	}
	if o.last > s.last {
		s.last = o.last
	}
	return s
}

type sourcePosTransformer struct{}

// NewSourcePosTransformer returns an ASTTransformer that tags every node
// carrying source positions with AttrPosStart and AttrPosEnd.
func NewSourcePosTransformer() parser.ASTTransformer {
	return &sourcePosTransformer{}
}

func (t *sourcePosTransformer) Transform(doc *gast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	lines := newLineTable(source)
	spans := make(map[gast.Node]lineSpan)
	// Last line covered by any node exited so far. Nodes exit in document
	// order, so a node without segments starts after it.
	seen := 0

	// Spans are computed bottom-up so every node is visited once.
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if entering {
			return gast.WalkContinue, nil
		}

		span := ownSpan(n, source, lines, seen)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			span = span.union(spans[c])
		}
		if !span.valid() {
			return gast.WalkContinue, nil
		}
		spans[n] = span
		if span.last > seen {
			seen = span.last
		}

		if annotatable(n) {
			annotate(n, span)
		}
		return gast.WalkContinue, nil
	})
}

func annotatable(n gast.Node) bool {
	switch n.Kind() {
	case gast.KindDocument, gast.KindText, gast.KindString:
		return false
	}
	return true
}

func annotate(n gast.Node, span lineSpan) {
	if _, ok := n.AttributeString(AttrPosStart); ok {
		return
	}
	n.SetAttributeString(AttrPosStart, []byte(strconv.Itoa(span.first)))
	n.SetAttributeString(AttrPosEnd, []byte(strconv.Itoa(span.last)))
}

// ownSpan returns the lines covered by the node's own segments, excluding
// its children. after is the last line of the preceding nodes.
func ownSpan(n gast.Node, source []byte, lines lineTable, after int) lineSpan {
	switch node := n.(type) {
	case *gast.Text:
		return segmentSpan(node.Segment, lines)
	case *gast.FencedCodeBlock:
		return fencedSpan(node, source, lines, after)
	}

	if n.Type() != gast.TypeBlock {
		return lineSpan{}
	}

	span := segmentsSpan(n.Lines(), lines)
	if hb, ok := n.(*gast.HTMLBlock); ok && hb.HasClosure() {
		span = span.union(segmentSpan(hb.ClosureLine, lines))
	}
	return span
}

func segmentSpan(seg text.Segment, lines lineTable) lineSpan {
	if seg.Start < 0 || seg.Stop < seg.Start {
		return lineSpan{}
	}
	last := seg.Stop - 1
	if last < seg.Start {
		last = seg.Start
	}
	return lineSpan{first: lines.line(seg.Start), last: lines.line(last)}
}

func segmentsSpan(segs *text.Segments, lines lineTable) lineSpan {
	if segs == nil || segs.Len() == 0 {
		return lineSpan{}
	}
	first := segmentSpan(segs.At(0), lines)
	last := segmentSpan(segs.At(segs.Len()-1), lines)
	return first.union(last)
}

// fencedSpan widens the content lines of a fenced code block to cover the
// opening fence and, if present, the closing fence. A block with neither
// info string nor content is found by scanning for its opening fence past
// the line after.
func fencedSpan(n *gast.FencedCodeBlock, source []byte, lines lineTable, after int) lineSpan {
	span := segmentsSpan(n.Lines(), lines)

	switch {
	case n.Info != nil:
		open := lines.line(n.Info.Segment.Start)
		span = lineSpan{first: open, last: open}.union(span)
	case span.valid() && span.first > 1:
		span.first--
	case !span.valid():
		for l := after + 1; l <= len(lines); l++ {
			if _, _, ok := fenceMarker(lines.text(source, l)); ok {
				span = lineSpan{first: l, last: l}
				break
			}
		}
		if !span.valid() {
			return lineSpan{}
		}
	}

	char, size, ok := fenceMarker(lines.text(source, span.first))
	if !ok {
		char, size = 0, 3
	}
	next := span.last + 1
	if isClosingFence(lines.text(source, next), char, size) {
		span.last = next
	}
	return span
}

// stripContainers drops the blockquote and list prefixes in front of a
// nested fence.
func stripContainers(line []byte) []byte {
	for {
		line = bytes.TrimLeft(line, " \t")
		switch {
		case len(line) > 0 && line[0] == '>':
			line = line[1:]
		case len(line) > 1 && (line[0] == '-' || line[0] == '*' || line[0] == '+') && (line[1] == ' ' || line[1] == '\t'):
			line = line[2:]
		default:
			i := 0
			for i < len(line) && i < 9 && line[i] >= '0' && line[i] <= '9' {
				i++
			}
			if i == 0 || i+1 >= len(line) || (line[i] != '.' && line[i] != ')') || (line[i+1] != ' ' && line[i+1] != '\t') {
				return line
			}
			line = line[i+2:]
		}
	}
}

// fenceMarker returns the fence character and run length that open line.
func fenceMarker(line []byte) (byte, int, bool) {
	line = stripContainers(line)
	if len(line) == 0 || (line[0] != '`' && line[0] != '~') {
		return 0, 0, false
	}
	size := 0
	for size < len(line) && line[size] == line[0] {
		size++
	}
	if size < 3 {
		return 0, 0, false
	}
	return line[0], size, true
}

// isClosingFence reports whether line closes a fence of char and size. A
// zero char accepts either fence character.
func isClosingFence(line []byte, char byte, size int) bool {
	c, n, ok := fenceMarker(line)
	if !ok || n < size || (char != 0 && c != char) {
		return false
	}
	return len(bytes.TrimSpace(stripContainers(line)[n:])) == 0
}

// CodeBlockHTMLRenderer renders indented and fenced code blocks with their
// node attributes on the <pre> element. goldmark's own code block
// renderers drop attributes.
type CodeBlockHTMLRenderer struct {
	html.Config
}

// NewCodeBlockHTMLRenderer returns a new CodeBlockHTMLRenderer.
func NewCodeBlockHTMLRenderer(opts ...html.Option) renderer.NodeRenderer {
	r := &CodeBlockHTMLRenderer{
		Config: html.NewConfig(),
	}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

// RegisterFuncs implements renderer.NodeRenderer.RegisterFuncs.
func (r *CodeBlockHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(gast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *CodeBlockHTMLRenderer) openPre(w util.BufWriter, n gast.Node) {
	_, _ = w.WriteString("<pre")
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, html.GlobalAttributeFilter)
	}
	_ = w.WriteByte('>')
}

func (r *CodeBlockHTMLRenderer) writeLines(w util.BufWriter, source []byte, n gast.Node) {
	l := n.Lines().Len()
	for i := 0; i < l; i++ {
		line := n.Lines().At(i)
		r.Writer.RawWrite(w, line.Value(source))
	}
}

func (r *CodeBlockHTMLRenderer) renderCodeBlock(
	w util.BufWriter, source []byte, n gast.Node, entering bool) (gast.WalkStatus, error) {
	if entering {
		r.openPre(w, n)
		_, _ = w.WriteString("<code>")
		r.writeLines(w, source, n)
	} else {
		_, _ = w.WriteString("</code></pre>\n")
	}
	return gast.WalkContinue, nil
}

func (r *CodeBlockHTMLRenderer) renderFencedCodeBlock(
	w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	n := node.(*gast.FencedCodeBlock)
	if entering {
		r.openPre(w, n)
		_, _ = w.WriteString("<code")
		if language := n.Language(source); language != nil {
			_, _ = w.WriteString(` class="language-`)
			r.Writer.Write(w, language)
			_ = w.WriteByte('"')
		}
		_ = w.WriteByte('>')
		r.writeLines(w, source, n)
	} else {
		_, _ = w.WriteString("</code></pre>\n")
	}
	return gast.WalkContinue, nil
}

type sourcePos struct {
}

// SourcePos is an extension that exposes the source lines of every
// rendered block as data-pos-start/data-pos-end attributes.
var SourcePos = &sourcePos{}

func (e *sourcePos) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(NewSourcePosTransformer(), 10000),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewCodeBlockHTMLRenderer(), 500),
	))
}
