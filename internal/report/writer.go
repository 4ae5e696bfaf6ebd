// Package report renders scan results and DOM-only lookups as text, JSON or
// Markdown.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/grez-lucas/iframe-scanner/internal/dom"
	"github.com/grez-lucas/iframe-scanner/internal/redact"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// Output formats accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Writer outputs reports in one format.
type Writer interface {
	// WriteScan outputs a live scan result.
	WriteScan(result *scanner.Result) (int, error)
	// WriteLookup outputs a DOM-only lookup.
	WriteLookup(lookup *dom.Lookup) (int, error)
}

// New returns the Writer for format.
func New(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want text, json or markdown)", format)
	}
}

// MultiWriter writes to several Writers in turn and stops at the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) WriteScan(result *scanner.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteScan(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *MultiWriter) WriteLookup(lookup *dom.Lookup) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteLookup(lookup)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Redact returns a copy of result with credentials masked in iframe src
// values. The original is not modified.
func Redact(result *scanner.Result) *scanner.Result {
	if result == nil {
		return nil
	}

	out := *result
	out.Iframes = make([]scanner.IframeRecord, len(result.Iframes))
	for i, rec := range result.Iframes {
		rec.Src = redact.URL(rec.Src)
		out.Iframes[i] = rec
	}
	out.Matches = append([]scanner.MatchRecord(nil), result.Matches...)
	return &out
}

// statusText names the terminal outcome of a scan.
func statusText(result *scanner.Result) string {
	switch result.Outcome() {
	case scanner.OutcomeStopped:
		return "Stopped (partial results)"
	case scanner.OutcomeNoIframes:
		return "Complete, no iframes found"
	default:
		return "Complete"
	}
}

func accessText(rec scanner.IframeRecord) string {
	if rec.Accessible {
		return "Accessible"
	}
	return "Blocked"
}
