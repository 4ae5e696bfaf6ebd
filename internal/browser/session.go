// Package browser drives a Chromium instance with Rod and exposes its pages
// to the scanner as Frames.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// Options configure the browser launched for one scan.
type Options struct {
	Headless bool
	// Bin is the browser executable. Empty means the first browser found on
	// the system, falling back to Rod's managed download.
	Bin        string
	Stealth    bool
	NoSandbox  bool
	WindowSize string

	NavigationTimeout time.Duration
	// SettleDelay is how long the DOM must stay unchanged before a page or
	// frame counts as loaded.
	SettleDelay time.Duration

	// Hijack, when set, serves every request the browser makes.
	Hijack func(*rod.Hijack)
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		Stealth:           true,
		WindowSize:        "1920,1080",
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.WindowSize == "" {
		o.WindowSize = def.WindowSize
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = def.NavigationTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = def.SettleDelay
	}
	return o
}

// Session is one browser process dedicated to one scan. It implements
// scanner.Loader and must not be shared between concurrent scans.
type Session struct {
	opts     Options
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	router   *rod.HijackRouter
	page     *rod.Page
}

// newLauncher builds the launcher flags without starting anything.
func newLauncher(opts Options) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		// Hide the automation flags some pages check for
		Set("disable-blink-features", "AutomationControlled").
		Set("exclude-switches", "enable-automation").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", opts.WindowSize).
		Devtools(false)

	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}

	switch {
	case opts.Bin != "":
		l = l.Bin(opts.Bin)
	default:
		if path, ok := launcher.LookPath(); ok {
			l = l.Bin(path)
		}
	}

	return l
}

// Launch starts a browser and connects to it.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	l := newLauncher(opts).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s := &Session{opts: opts, logger: logger, launcher: l, browser: b}

	if opts.Hijack != nil {
		s.router = b.HijackRequests()
		if err := s.router.Add("*", "", opts.Hijack); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("register request hijacker: %w", err)
		}
		go s.router.Run()
	}

	logger.Debug("Browser launched",
		zap.Bool("headless", opts.Headless),
		zap.Bool("stealth", opts.Stealth),
		zap.String("control_url", controlURL))

	return s, nil
}

func (s *Session) newPage() (*rod.Page, error) {
	if s.opts.Stealth {
		return stealth.Page(s.browser)
	}
	return s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Load implements scanner.Loader. A URL target is navigated to; markup is
// written into a blank page. Either way it waits for the DOM of the page and
// its visible iframes to settle.
func (s *Session) Load(ctx context.Context, target scanner.Target) (scanner.Frame, error) {
	if s.page == nil {
		page, err := s.newPage()
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
		s.page = page
	}

	lctx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()
	page := s.page.Context(lctx)

	if target.URL != "" {
		s.logger.Info("Loading URL", zap.String("url", target.URL))
		if err := page.Navigate(target.URL); err != nil {
			return nil, fmt.Errorf("navigate to %s: %w", target.URL, err)
		}
		if err := page.WaitLoad(); err != nil {
			return nil, fmt.Errorf("wait for %s: %w", target.URL, err)
		}
	} else {
		s.logger.Info("Loading HTML source", zap.Int("characters", len(target.HTML)))
		if err := page.Navigate("about:blank"); err != nil {
			return nil, fmt.Errorf("open blank page: %w", err)
		}
		if err := page.SetDocumentContent(target.HTML); err != nil {
			return nil, fmt.Errorf("set document content: %w", err)
		}
	}

	WaitForIFrames(page, s.opts.SettleDelay)

	return &Frame{page: s.page}, nil
}

// Close shuts the browser down and removes its profile directory.
func (s *Session) Close() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}
