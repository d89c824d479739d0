package sourcemap

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Build scans the tree under root, root excluded, and indexes every
// element carrying both position attributes. Elements with malformed
// positions are skipped. Records are stably sorted by Start, so an outer
// element precedes an inner one starting on the same line.
func Build(root *html.Node) *SourceMap {
	m := &SourceMap{}
	if root == nil {
		return m
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if HasRange(c) {
				if r, ok := ParseRange(c); ok {
					m.records = append(m.records, Record{Range: r, Seq: len(m.records), Node: c})
				}
			}
			walk(c)
		}
	}
	walk(root)

	slices.SortStableFunc(m.records, func(a, b Record) int {
		return a.Start - b.Start
	})
	return m
}

// ParseFragment parses rendered HTML the way a browser fills a preview
// <div> and returns that <div> as the root of the tree.
func ParseFragment(fragment string) (*html.Node, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered html: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// BuildFromHTML parses a rendered fragment and indexes it.
func BuildFromHTML(fragment string) (*SourceMap, *html.Node, error) {
	root, err := ParseFragment(fragment)
	if err != nil {
		return nil, nil, err
	}
	return Build(root), root, nil
}
