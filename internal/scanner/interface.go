package scanner

import "context"

// Target is what a Loader opens: exactly one of URL or HTML is set.
type Target struct {
	URL  string
	HTML string
}

// Frame is a browsing context the walker can read: the root page or an
// iframe that was successfully entered.
type Frame interface {
	// URL returns the document URL of the context, used to decide whether a
	// failed child is cross-origin.
	URL(ctx context.Context) (string, error)
	// HTML returns the serialized content tree of the context.
	HTML(ctx context.Context) (string, error)
	// Iframes returns the iframe and frame elements of this context in
	// document order. Elements of nested documents are not included.
	Iframes(ctx context.Context) ([]FrameElement, error)
}

// FrameElement is an iframe element as seen from its parent context.
type FrameElement interface {
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	// XPath returns the positional XPath of the element inside the parent
	// document (see xpath.Positional).
	XPath(ctx context.Context) (string, error)
	// Enter returns the browsing context of the iframe.
	Enter(ctx context.Context) (Frame, error)
}

// Loader opens a scan target and returns its root context. A live
// implementation drives a browser; an offline one parses markup.
type Loader interface {
	Load(ctx context.Context, target Target) (Frame, error)
}
