package sourcemap

import (
	"slices"

	"golang.org/x/net/html"
)

// Path returns the element-child indexes leading from the top of n's tree
// down to n. The browser parses the same HTML into the same shape, so a
// path addresses the same element on both sides.
func Path(n *html.Node) []int {
	var path []int
	for n != nil && n.Parent != nil {
		idx := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				idx++
			}
		}
		path = append(path, idx)
		n = n.Parent
	}
	slices.Reverse(path)
	return path
}

// Resolve follows a path from root. It returns nil when the path does not
// exist in the tree.
func Resolve(root *html.Node, path []int) *html.Node {
	n := root
	for _, idx := range path {
		if n == nil || idx < 0 {
			return nil
		}
		n = elementChild(n, idx)
	}
	return n
}

func elementChild(n *html.Node, idx int) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if idx == 0 {
			return c
		}
		idx--
	}
	return nil
}
