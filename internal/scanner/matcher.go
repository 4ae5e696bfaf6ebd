package scanner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/grez-lucas/iframe-scanner/internal/xpath"
)

// skippedTags hold content that is never rendered as text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// fallbackTags hold raw text that browsers only show when the element
// itself is unsupported. Their attributes are still searched.
var fallbackTags = map[string]bool{
	"iframe": true,
	"frame":  true,
}

// Matcher applies the active match predicates to the elements of one
// document.
type Matcher struct {
	text    string
	lower   string
	modes   MatchMode
	maxText int
}

// NewMatcher validates the search text and builds a matcher. A zero modes
// value selects DefaultMode.
func NewMatcher(text string, modes MatchMode, maxText int) (*Matcher, error) {
	if strings.TrimSpace(text) == "" {
		return nil, inputError("search text is empty")
	}
	if modes == 0 {
		modes = DefaultMode
	}
	return &Matcher{
		text:    text,
		lower:   strings.ToLower(text),
		modes:   modes,
		maxText: maxText,
	}, nil
}

// Text returns the search text.
func (m *Matcher) Text() string { return m.text }

// Modes returns the active predicates.
func (m *Matcher) Modes() MatchMode { return m.modes }

// Match tests one element. It reports the first predicate that fired and the
// qualifying text. Only the element's own text nodes are considered, so a
// match is reported once, at the element that holds the text.
func (m *Matcher) Match(n *html.Node) (MatchMode, string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return 0, "", false
	}

	own := ""
	if !fallbackTags[strings.ToLower(n.Data)] {
		own = OwnText(n)
	}
	if own != "" {
		if m.modes.Has(ModeExact) && own == m.text {
			return ModeExact, own, true
		}
		if m.modes.Has(ModeContains) && strings.Contains(own, m.text) {
			return ModeContains, own, true
		}
		if m.modes.Has(ModeCaseInsensitive) && strings.Contains(strings.ToLower(own), m.lower) {
			return ModeCaseInsensitive, own, true
		}
	}

	if m.modes.Has(ModeAttribute) {
		for _, attr := range n.Attr {
			if strings.Contains(attr.Val, m.text) {
				return ModeAttribute, attr.Val, true
			}
		}
	}

	return 0, "", false
}

// Search parses markup and returns one MatchRecord per matching element in
// document order. locationPath names the owning context; xpathPrefix is the
// owning frame's XPath (empty for the main document).
func (m *Matcher) Search(markup, locationPath, xpathPrefix string) ([]MatchRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", locationPath, err)
	}

	var matches []MatchRecord
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if insideSkipped(n) {
			return
		}

		mode, text, ok := m.Match(n)
		if !ok {
			return
		}

		matches = append(matches, MatchRecord{
			LocationPath: locationPath,
			ElementTag:   strings.ToLower(n.Data),
			ElementText:  truncate(text, m.maxText),
			ElementXPath: xpath.Join(xpathPrefix, xpath.Positional(n)),
			MatchedBy:    mode,
			FoundText:    m.text,
		})
	})

	return matches, nil
}

// OwnText returns the whitespace-collapsed concatenation of n's direct text
// children. Descendant elements do not contribute.
func OwnText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			parts = append(parts, strings.Fields(c.Data)...)
		}
	}
	return strings.Join(parts, " ")
}

func insideSkipped(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && skippedTags[strings.ToLower(p.Data)] {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
