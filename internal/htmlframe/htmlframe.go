// Package htmlframe walks markup without a browser. It implements the
// scanner's Loader, Frame and FrameElement interfaces on parsed HTML:
// srcdoc iframes are entered by parsing their inline document, src iframes
// only when a registered source supplies their markup.
package htmlframe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
	"github.com/grez-lucas/iframe-scanner/internal/xpath"
)

// BlankURL is the document URL of markup loaded without a base URL.
const BlankURL = "about:blank"

// ErrUnavailable is returned when entering a frame whose source has not been
// registered. No network access is ever attempted.
var ErrUnavailable = errors.New("frame source not available offline")

// Loader opens markup and registered sources.
type Loader struct {
	baseURL string
	sources map[string]string
}

// Option configures a Loader.
type Option func(*Loader)

// WithBaseURL sets the URL that pasted markup is considered to come from.
func WithBaseURL(u string) Option {
	return func(l *Loader) {
		l.baseURL = u
	}
}

// WithSource registers the markup served for an absolute URL. Iframes whose
// resolved src equals rawURL enter this document.
func WithSource(rawURL, markup string) Option {
	return func(l *Loader) {
		l.sources[normalize(rawURL)] = markup
	}
}

// New creates an offline loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		baseURL: BlankURL,
		sources: make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements scanner.Loader.
func (l *Loader) Load(ctx context.Context, target scanner.Target) (scanner.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if target.URL != "" {
		markup, ok := l.sources[normalize(target.URL)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, target.URL)
		}
		return l.parse(target.URL, markup)
	}

	return l.parse(l.baseURL, target.HTML)
}

func (l *Loader) parse(docURL, markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", docURL, err)
	}
	return &Document{loader: l, url: docURL, markup: markup, doc: doc}, nil
}

// Document is one parsed browsing context.
type Document struct {
	loader *Loader
	url    string
	markup string
	doc    *goquery.Document
}

// URL implements scanner.Frame.
func (d *Document) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.url, nil
}

// HTML implements scanner.Frame.
func (d *Document) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.markup, nil
}

// Iframes implements scanner.Frame.
func (d *Document) Iframes(ctx context.Context) ([]scanner.FrameElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := d.doc.Find("iframe, frame").Nodes
	els := make([]scanner.FrameElement, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &Element{owner: d, node: n})
	}
	return els, nil
}

// Element is an iframe or frame node of a Document.
type Element struct {
	owner *Document
	node  *html.Node
}

// Attribute implements scanner.FrameElement.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, ok := attr(e.node, name)
	return value, ok, nil
}

// XPath implements scanner.FrameElement.
func (e *Element) XPath(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return xpath.Positional(e.node), nil
}

// Enter implements scanner.FrameElement. A srcdoc document inherits the
// parent's URL, as it does in a browser.
func (e *Element) Enter(ctx context.Context) (scanner.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if srcdoc, ok := attr(e.node, "srcdoc"); ok {
		return e.owner.loader.parse(e.owner.url, srcdoc)
	}

	src, _ := attr(e.node, "src")
	src = strings.TrimSpace(src)
	if src == "" || strings.EqualFold(src, BlankURL) {
		return e.owner.loader.parse(e.owner.url, "")
	}

	resolved := resolve(e.owner.url, src)
	markup, ok := e.owner.loader.sources[normalize(resolved)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resolved)
	}
	return e.owner.loader.parse(resolved, markup)
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func resolve(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return refURL.String()
	}
	return baseURL.ResolveReference(refURL).String()
}

func normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	return u.String()
}
