// Package dom locates iframes in pasted markup without a browser.
//
// Unlike the live scan, which numbers each step among its siblings, XPaths
// produced here use a flat document-order ordinal: /html/body//iframe[k] is
// the k-th iframe element anywhere in the markup.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// ErrInvalidInput is the scanner's input sentinel; lookups wrap it the same
// way scans do.
var ErrInvalidInput = scanner.ErrInvalidInput

// XPathFormat renders the flat iframe ordinal.
const XPathFormat = "/html/body//iframe[%d]"

// Lookup is the result of a DOM-only search.
type Lookup struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	XPaths  []string `json:"xpaths"`
}

// Find returns the XPath of every iframe in markup whose attribute values or
// inline content contain text. The match is a case-sensitive substring test;
// srcdoc and the fallback text between the tags are searched as raw text and
// never parsed. Nothing referenced by src is fetched.
func Find(markup, text string) (*Lookup, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, invalid("html_source is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("search_text is required")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &scanner.ScanError{Operation: "parse", Cause: ErrInvalidInput, Details: err.Error()}
	}

	xpaths := []string{}
	doc.Find("iframe").Each(func(i int, s *goquery.Selection) {
		if contains(s.Get(0), text) {
			xpaths = append(xpaths, fmt.Sprintf(XPathFormat, i+1))
		}
	})

	return &Lookup{Success: true, Count: len(xpaths), XPaths: xpaths}, nil
}

func contains(n *html.Node, text string) bool {
	for _, attr := range n.Attr {
		if strings.Contains(attr.Val, text) {
			return true
		}
	}
	// The parser keeps iframe content as a single raw text node.
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.Contains(c.Data, text) {
			return true
		}
	}
	return false
}

func invalid(details string) error {
	return &scanner.ScanError{Operation: "dom lookup", Cause: ErrInvalidInput, Details: details}
}
