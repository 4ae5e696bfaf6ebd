package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Options tune a scan. Zero fields fall back to DefaultOptions.
type Options struct {
	Modes         MatchMode
	FrameTimeout  time.Duration
	MaxDepth      int
	PreviewLength int
	TextLength    int
}

// DefaultOptions returns the defaults used for zero Options fields.
func DefaultOptions() Options {
	return Options{
		Modes:         DefaultMode,
		FrameTimeout:  5 * time.Second,
		MaxDepth:      10,
		PreviewLength: 200,
		TextLength:    100,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Modes == 0 {
		o.Modes = def.Modes
	}
	if o.FrameTimeout <= 0 {
		o.FrameTimeout = def.FrameTimeout
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = def.PreviewLength
	}
	if o.TextLength <= 0 {
		o.TextLength = def.TextLength
	}
	return o
}

// Request is the input of a live scan. Exactly one of URL and HTMLSource is
// set. Headless is honoured by whoever builds the Loader.
type Request struct {
	URL        string `json:"url"`
	HTMLSource string `json:"html_source"`
	SearchText string `json:"search_text"`
	Headless   bool   `json:"headless"`
}

// Validate rejects requests that must fail before any traversal.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SearchText) == "" {
		return inputError("search text is empty")
	}
	hasURL := strings.TrimSpace(r.URL) != ""
	hasHTML := strings.TrimSpace(r.HTMLSource) != ""
	switch {
	case !hasURL && !hasHTML:
		return inputError("either url or html_source is required")
	case hasURL && hasHTML:
		return inputError("url and html_source are mutually exclusive")
	}
	return nil
}

// Target converts the request into a Loader target.
func (r Request) Target() Target {
	return Target{URL: strings.TrimSpace(r.URL), HTML: r.HTMLSource}
}

// Scanner runs scans. It holds no per-scan state, so one Scanner may serve
// concurrent scans as long as each uses its own Loader.
type Scanner struct {
	opts  Options
	hooks Hooks
}

// New returns a Scanner.
func New(opts Options, hooks Hooks) *Scanner {
	return &Scanner{opts: opts.withDefaults(), hooks: hooks}
}

// Options returns the effective options.
func (s *Scanner) Options() Options { return s.opts }

// Scan loads the target through loader and walks it.
//
// An invalid request or an unloadable target returns an error and no result.
// Cancellation (ctx or Hooks.Stopped) between frames returns the partial
// result with StatusStopped and a nil error.
func (s *Scanner) Scan(ctx context.Context, loader Loader, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	matcher, err := NewMatcher(req.SearchText, s.opts.Modes, s.opts.TextLength)
	if err != nil {
		return nil, err
	}

	target := req.Target()
	if target.URL != "" {
		s.hooks.logf(LevelInfo, "Starting scan of URL: %s", target.URL)
	} else {
		s.hooks.logf(LevelInfo, "Starting scan of provided HTML source (%d characters)", len(target.HTML))
	}

	root, err := loader.Load(ctx, target)
	if err != nil {
		if ctx.Err() != nil || s.hooks.stopped() {
			s.hooks.logf(LevelWarn, "Scan stopped while loading target")
			return BuildResult(StatusStopped, matcher.Text(), nil, nil), nil
		}
		s.hooks.logf(LevelError, "Error loading target: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	s.hooks.logf(LevelInfo, "Searching for text: '%s' (%s)", matcher.Text(), matcher.Modes())

	w := newWalker(s.opts, s.hooks, matcher)
	status, err := w.run(ctx, root)
	if err != nil {
		s.hooks.logf(LevelError, "Error during scan: %v", err)
		return nil, err
	}

	result := BuildResult(status, matcher.Text(), w.iframes, w.matches)
	s.hooks.logf(LevelInfo, "Scan %s: %d iframe(s), %d accessible, %d match(es)",
		status, result.Summary.TotalIframes, result.Summary.AccessibleIframes, result.Summary.TotalMatches)
	return result, nil
}

// Scan is a convenience wrapper using DefaultOptions with the given modes.
func Scan(ctx context.Context, loader Loader, req Request, modes MatchMode, hooks Hooks) (*Result, error) {
	return New(Options{Modes: modes}, hooks).Scan(ctx, loader, req)
}
