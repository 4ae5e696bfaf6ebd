package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/browser"
	"github.com/grez-lucas/iframe-scanner/internal/htmlframe"
	"github.com/grez-lucas/iframe-scanner/internal/observability"
	"github.com/grez-lucas/iframe-scanner/internal/report"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

type scanFlags struct {
	url      string
	htmlFile string
	baseURL  string
	text     string
	modes    []string
	headless bool
	offline  bool
	format   string
	redact   bool
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Walk a page and its iframes and search them for text",
		Long: `Loads a URL or an HTML file in Chromium, discovers every iframe
depth-first, enters the accessible ones and reports where the search text
occurs. Ctrl+C stops between frames and prints the partial result.

With --offline the HTML file is walked without a browser: srcdoc frames are
entered, frames loaded from a URL are reported as inaccessible.`,
		Example: `  iframescan scan --url https://shop.example.com/checkout --text "Card number"
  iframescan scan --html-file page.html --text target --mode attribute --format json
  cat page.html | iframescan scan --html-file - --text target --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, a, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.url, "url", "u", "", "page to scan")
	flags.StringVarP(&f.htmlFile, "html-file", "f", "", `HTML file to scan ("-" reads stdin)`)
	flags.StringVar(&f.baseURL, "base-url", "", "URL the offline HTML is considered to come from")
	flags.StringVarP(&f.text, "text", "t", "", "text to search for")
	flags.StringSliceVarP(&f.modes, "mode", "m", nil, "match mode: contains, exact, case-insensitive, attribute (repeatable)")
	flags.BoolVar(&f.headless, "headless", true, "run the browser without a window")
	flags.BoolVar(&f.offline, "offline", false, "walk the HTML file without a browser")
	flags.StringVarP(&f.format, "format", "o", report.FormatText, "report format: text, json or markdown")
	flags.BoolVar(&f.redact, "redact", false, "mask credentials and tokens in iframe src URLs")

	cmd.MarkFlagsMutuallyExclusive("url", "html-file")
	cmd.MarkFlagsOneRequired("url", "html-file")
	cmd.MarkFlagsMutuallyExclusive("url", "offline")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func runScan(cmd *cobra.Command, a *app, f scanFlags) error {
	ctx := cmd.Context()

	writer, err := report.New(f.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts := a.cfg.ScannerOptions()
	if len(f.modes) > 0 {
		if opts.Modes, err = scanner.ParseModes(f.modes); err != nil {
			return err
		}
	}

	req := scanner.Request{URL: f.url, SearchText: f.text}
	if f.htmlFile != "" {
		if req.HTMLSource, err = readMarkup(cmd, f.htmlFile); err != nil {
			return err
		}
	}
	if err := req.Validate(); err != nil {
		return err
	}

	var loader scanner.Loader
	if f.offline {
		var loaderOpts []htmlframe.Option
		if f.baseURL != "" {
			loaderOpts = append(loaderOpts, htmlframe.WithBaseURL(f.baseURL))
		}
		loader = htmlframe.New(loaderOpts...)
	} else {
		bopts := a.cfg.BrowserOptions()
		if cmd.Flags().Changed("headless") {
			bopts.Headless = f.headless
		}
		req.Headless = bopts.Headless

		session, err := browser.Launch(ctx, bopts, a.logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Close(); err != nil {
				a.logger.Warn("Failed to close browser", zap.Error(err))
			}
		}()
		loader = session
	}

	hooks := scanner.Hooks{
		Progress: func(percent int, message string) {
			a.logger.Debug("Scan progress", zap.Int("percent", percent), zap.String("message", message))
		},
		Log: observability.ScanLogHook(a.logger.Named("scan")),
	}

	result, err := scanner.New(opts, hooks).Scan(ctx, loader, req)
	if err != nil {
		if errors.Is(err, scanner.ErrLoadFailed) {
			return fmt.Errorf("scan failed: %w", err)
		}
		return err
	}

	if f.redact {
		result = report.Redact(result)
	}
	if _, err := writer.WriteScan(result); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
