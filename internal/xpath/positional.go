// Package xpath synthesizes positional XPath expressions for parsed HTML
// nodes.
package xpath

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Positional returns the absolute positional XPath of node within its own
// document, e.g. /html[1]/body[1]/div[2]/p[1]. Every step carries a 1-based
// index among preceding element siblings with the same tag, so the result is
// reproducible against any structurally identical copy of the markup.
func Positional(node *html.Node) string {
	if node == nil {
		return ""
	}

	var steps []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		steps = append(steps, Step(n))
	}

	if len(steps) == 0 {
		return "/"
	}

	var b strings.Builder
	for i := len(steps) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(steps[i])
	}
	return b.String()
}

// Step returns the single location step for an element node: its lowercase
// tag name followed by its same-tag sibling position.
func Step(n *html.Node) string {
	tag := strings.ToLower(n.Data)
	return tag + "[" + strconv.Itoa(SiblingIndex(n)) + "]"
}

// SiblingIndex returns the 1-based position of n among its element siblings
// sharing the same tag name.
func SiblingIndex(n *html.Node) int {
	tag := strings.ToLower(n.Data)
	index := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
			index++
		}
	}
	return index
}

// Join appends a document-relative path to the XPath of the frame that owns
// the document. An empty prefix means the root document.
func Join(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + path
}
