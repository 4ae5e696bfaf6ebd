package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/grez-lucas/iframe-scanner/internal/xpath"
)

// attributes captured from every iframe element.
var recordedAttributes = []string{"id", "name", "src", "title", "class"}

// pending is an iframe discovered in an entered context but not yet visited.
// The walker keeps these on an explicit stack; the parent context stays
// reachable through the element handle until every child has been visited.
type pending struct {
	el          FrameElement
	parentURL   string
	parentPath  string
	parentXPath string
	depth       int
	position    int
}

type walker struct {
	opts    Options
	hooks   Hooks
	matcher *Matcher

	iframes   []IframeRecord
	matches   []MatchRecord
	processed int
}

func newWalker(opts Options, hooks Hooks, matcher *Matcher) *walker {
	return &walker{opts: opts, hooks: hooks, matcher: matcher}
}

// run walks the frame tree below root depth-first in document order. It
// returns StatusStopped when cancellation is observed between frames. The
// only error it returns is a failure to read the root document.
func (w *walker) run(ctx context.Context, root Frame) (Status, error) {
	w.hooks.progress(5, "Reading main document")

	markup, err := root.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read main document: %w", ErrLoadFailed, err)
	}

	rootMatches, err := w.matcher.Search(markup, RootPath, "")
	if err != nil {
		w.hooks.logf(LevelWarn, "Cannot search main document: %v", err)
	}
	w.matches = append(w.matches, rootMatches...)
	w.hooks.logf(LevelInfo, "Found %d match(es) in main document", len(rootMatches))

	rootURL, err := root.URL(ctx)
	if err != nil {
		w.hooks.logf(LevelWarn, "Cannot read main document URL: %v", err)
	}

	children, err := root.Iframes(ctx)
	if err != nil {
		w.hooks.logf(LevelError, "Error discovering iframes at depth 0: %v", err)
	}
	w.hooks.logf(LevelInfo, "Found %d iframe(s) at depth 0", len(children))

	stack := pushChildren(nil, children, rootURL, RootPath, "", 0)
	for len(stack) > 0 {
		if w.cancelled(ctx) {
			w.hooks.logf(LevelWarn, "Scan stopped after %d frame(s)", w.processed)
			return StatusStopped, nil
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rec, next := w.visit(ctx, item)
		stack = append(stack, next...)
		w.processed++

		total := w.processed + len(stack)
		w.hooks.progress(10+85*w.processed/total, "Scanned "+rec.Path)
	}

	w.hooks.progress(95, "Frame traversal complete")
	return StatusCompleted, nil
}

func (w *walker) cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || w.hooks.stopped()
}

// visit records one iframe and, when it can be entered, searches it and
// returns its children ready to be pushed. A panic anywhere in here degrades
// to an AccessError on this frame.
func (w *walker) visit(ctx context.Context, item pending) (rec IframeRecord, children []pending) {
	rec = IframeRecord{
		Index: len(w.iframes) + 1,
		Path:  fmt.Sprintf("%s > Iframe[%d]", item.parentPath, item.position),
		Depth: item.depth,
	}
	matchMark := len(w.matches)

	fctx, cancel := context.WithTimeout(ctx, w.opts.FrameTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.matches = w.matches[:matchMark]
			rec.Accessible = false
			rec.Preview = ""
			rec.MatchesFound = 0
			rec.Error = classifyAccess(rec.Path, fmt.Errorf("panic: %v", r), item.parentURL, rec.Src).Error()
			children = nil
			w.hooks.logf(LevelError, "Cannot access iframe %s: %s", rec.Path, rec.Error)
		}
		w.iframes = append(w.iframes, rec)
	}()

	inner, err := item.el.XPath(fctx)
	if err != nil || inner == "" {
		inner = fmt.Sprintf("(//iframe | //frame)[%d]", item.position)
	}
	rec.XPath = xpath.Join(item.parentXPath, inner)

	w.readAttributes(fctx, item.el, &rec)

	if item.depth >= w.opts.MaxDepth {
		w.hooks.logf(LevelWarn, "Maximum iframe depth reached: %d", item.depth)
		rec.Error = (&AccessError{Path: rec.Path, Kind: ErrMaxDepth}).Error()
		return rec, nil
	}

	w.hooks.logf(LevelInfo, "Accessing iframe: %s", rec.Path)

	frame, err := item.el.Enter(fctx)
	if err != nil {
		w.fail(&rec, item, err)
		return rec, nil
	}

	markup, err := frame.HTML(fctx)
	if err != nil {
		w.fail(&rec, item, err)
		return rec, nil
	}

	rec.Accessible = true
	rec.Preview = Preview(markup, w.opts.PreviewLength)

	found, err := w.matcher.Search(markup, rec.Path, rec.XPath)
	if err != nil {
		w.hooks.logf(LevelWarn, "Cannot search iframe %s: %v", rec.Path, err)
	}
	rec.MatchesFound = len(found)
	w.matches = append(w.matches, found...)
	if len(found) > 0 {
		w.hooks.logf(LevelInfo, "Found %d text match(es) in %s", len(found), rec.Path)
	}

	frameURL, err := frame.URL(fctx)
	if err != nil || frameURL == "" {
		frameURL = resolveSrc(item.parentURL, rec.Src)
	}

	nested, err := frame.Iframes(fctx)
	if err != nil {
		// content was read, nested frames are not reachable
		rec.Error = "nested iframes unavailable: " + classifyAccess(rec.Path, err, frameURL, "").Error()
		w.hooks.logf(LevelError, "Error discovering iframes at depth %d: %v", item.depth+1, err)
		return rec, nil
	}
	if len(nested) > 0 {
		w.hooks.logf(LevelInfo, "Found %d iframe(s) at depth %d", len(nested), item.depth+1)
	}

	return rec, pushChildren(nil, nested, frameURL, rec.Path, rec.XPath, item.depth+1)
}

func (w *walker) readAttributes(ctx context.Context, el FrameElement, rec *IframeRecord) {
	for _, name := range recordedAttributes {
		value, ok, err := el.Attribute(ctx, name)
		if err != nil || !ok {
			continue
		}
		switch name {
		case "id":
			rec.ID = value
		case "name":
			rec.Name = value
		case "src":
			rec.Src = value
		case "title":
			rec.Title = value
		case "class":
			rec.Class = value
		}
	}
}

func (w *walker) fail(rec *IframeRecord, item pending, cause error) {
	accessErr := classifyAccess(rec.Path, cause, item.parentURL, rec.Src)
	rec.Accessible = false
	rec.Error = accessErr.Error()
	w.hooks.logf(LevelWarn, "Cannot access iframe %s: %s", rec.Path, rec.Error)
}

// pushChildren appends elements to stack in reverse so that popping yields
// document order.
func pushChildren(stack []pending, els []FrameElement, parentURL, parentPath, parentXPath string, depth int) []pending {
	for i := len(els) - 1; i >= 0; i-- {
		stack = append(stack, pending{
			el:          els[i],
			parentURL:   parentURL,
			parentPath:  parentPath,
			parentXPath: parentXPath,
			depth:       depth,
			position:    i + 1,
		})
	}
	return stack
}

func resolveSrc(parentURL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "about:") {
		return parentURL
	}
	return src
}
