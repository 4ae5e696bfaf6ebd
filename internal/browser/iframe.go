package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// frameSelector matches every element that hosts a browsing context.
const frameSelector = "iframe, frame"

// positionalXPath mirrors xpath.Positional in the page, with this bound to
// the element.
const positionalXPath = `() => {
	const steps = [];
	for (let n = this; n && n.nodeType === Node.ELEMENT_NODE; n = n.parentNode) {
		const tag = n.localName.toLowerCase();
		let index = 1;
		for (let s = n.previousElementSibling; s; s = s.previousElementSibling) {
			if (s.localName.toLowerCase() === tag) index++;
		}
		steps.unshift(tag + "[" + index + "]");
	}
	return "/" + steps.join("/");
}`

// WaitForIFrames recursively waits for DOM stability on the page and on all
// visible iframes. Frames that cannot be entered are skipped; the page's
// context bounds the whole wait.
func WaitForIFrames(page *rod.Page, settle time.Duration) {
	if err := page.WaitDOMStable(settle, 0); err != nil {
		return
	}

	iframes, err := page.Elements(frameSelector)
	if err != nil {
		return
	}

	for _, iframe := range iframes {
		visible, _ := iframe.Visible()
		if !visible {
			continue
		}

		frame, err := iframe.Frame()
		if err != nil {
			continue
		}

		WaitForIFrames(frame, settle)
	}
}

// Frame is a page or an entered iframe.
type Frame struct {
	page *rod.Page
}

// URL implements scanner.Frame.
func (f *Frame) URL(ctx context.Context) (string, error) {
	res, err := f.page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

// HTML implements scanner.Frame.
func (f *Frame) HTML(ctx context.Context) (string, error) {
	return f.page.Context(ctx).HTML()
}

// Iframes implements scanner.Frame.
func (f *Frame) Iframes(ctx context.Context) ([]scanner.FrameElement, error) {
	els, err := f.page.Context(ctx).Elements(frameSelector)
	if err != nil {
		return nil, err
	}

	out := make([]scanner.FrameElement, 0, len(els))
	for _, el := range els {
		out = append(out, &FrameElement{el: el})
	}
	return out, nil
}

// FrameElement is an iframe element handle in its parent frame.
type FrameElement struct {
	el *rod.Element
}

// Attribute implements scanner.FrameElement.
func (e *FrameElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// XPath implements scanner.FrameElement.
func (e *FrameElement) XPath(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(positionalXPath)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

// Enter implements scanner.FrameElement.
func (e *FrameElement) Enter(ctx context.Context) (scanner.Frame, error) {
	frame, err := e.el.Context(ctx).Frame()
	if err != nil {
		return nil, err
	}
	return &Frame{page: frame}, nil
}
