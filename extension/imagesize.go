package extension

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	// ![[path]], ![[path|300]], ![[path|70%]] and the pathless ![[|300]]
	imageShorthandRegexp = regexp.MustCompile(`^!\[\[([^|\]]*)(?:\|([\d.]+%?))?\]\]`)

	// alt text of ![[|300]](url)
	imageAltSizeRegexp = regexp.MustCompile(`^\s*\[\|([\d.]+%?)\]\s*$`)
)

// SetImageWidth sizes an image node. Percentages become an inline width
// style, anything else the width attribute.
func SetImageWidth(img *gast.Image, width string) {
	if strings.HasSuffix(width, "%") {
		img.SetAttributeString("style", []byte("width:"+width+";"))
		return
	}
	img.SetAttributeString("width", []byte(width))
}

type imageSizeParser struct {
}

var defaultImageSizeParser = &imageSizeParser{}

// NewImageSizeParser returns an InlineParser for the ![[path|size]] image
// shorthand. It must take precedence over parser.LinkParser.
func NewImageSizeParser() parser.InlineParser {
	return defaultImageSizeParser
}

func (p *imageSizeParser) Trigger() []byte {
	return []byte{'!'}
}

func (p *imageSizeParser) Parse(parent gast.Node, block text.Reader, pc parser.Context) gast.Node {
	line, seg := block.PeekLine()
	m := imageShorthandRegexp.FindSubmatchIndex(line)
	if m == nil {
		return nil
	}

	path := strings.TrimSpace(string(line[m[2]:m[3]]))
	width := ""
	if m[4] >= 0 {
		width = string(line[m[4]:m[5]])
	}

	if path == "" {
		// A pathless directive sizes the image right before it.
		prev, ok := parent.LastChild().(*gast.Image)
		if !ok || width == "" {
			return nil
		}
		SetImageWidth(prev, width)
		block.Advance(m[1])
		return gast.NewString(nil)
	}

	link := gast.NewLink()
	link.Destination = []byte(path)
	img := gast.NewImage(link)
	// An empty text child keeps the image's source position without
	// producing alt text.
	img.AppendChild(img, gast.NewTextSegment(text.NewSegment(seg.Start, seg.Start)))
	if width != "" {
		SetImageWidth(img, width)
	}

	block.Advance(m[1])
	return img
}

func (p *imageSizeParser) CloseBlock(parent gast.Node, pc parser.Context) {
	// nothing to do
}

type imageAltSizeTransformer struct {
}

// NewImageAltSizeTransformer returns an ASTTransformer that sizes images
// written as ![[|300]](url) and clears the size from their alt text.
func NewImageAltSizeTransformer() parser.ASTTransformer {
	return &imageAltSizeTransformer{}
}

func (t *imageAltSizeTransformer) Transform(doc *gast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch n.Kind() {
		case gast.KindCodeSpan, gast.KindCodeBlock, gast.KindFencedCodeBlock:
			return gast.WalkSkipChildren, nil
		}

		img, ok := n.(*gast.Image)
		if !ok {
			return gast.WalkContinue, nil
		}

		m := imageAltSizeRegexp.FindStringSubmatch(altText(img, source))
		if m == nil {
			return gast.WalkSkipChildren, nil
		}

		SetImageWidth(img, m[1])
		clearAlt(img)
		return gast.WalkSkipChildren, nil
	})
}

func altText(img *gast.Image, source []byte) string {
	var sb strings.Builder
	for c := img.FirstChild(); c != nil; c = c.NextSibling() {
		switch child := c.(type) {
		case *gast.Text:
			sb.Write(child.Segment.Value(source))
		case *gast.String:
			sb.Write(child.Value)
		}
	}
	return sb.String()
}

// clearAlt replaces the image's children with an empty text node placed
// where the first child started.
func clearAlt(img *gast.Image) {
	start := -1
	if t, ok := img.FirstChild().(*gast.Text); ok {
		start = t.Segment.Start
	}
	img.RemoveChildren(img)
	if start >= 0 {
		img.AppendChild(img, gast.NewTextSegment(text.NewSegment(start, start)))
	}
}

type imageSize struct {
}

// ImageSize is an extension for the ![[path|size]] image shorthand.
var ImageSize = &imageSize{}

func (e *imageSize) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(NewImageSizeParser(), 150),
		),
		parser.WithASTTransformers(
			util.Prioritized(NewImageAltSizeTransformer(), 500),
		),
	)
}
