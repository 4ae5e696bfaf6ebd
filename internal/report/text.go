package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/grez-lucas/iframe-scanner/internal/dom"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 60)
)

// TextWriter outputs a plain text report for terminals.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// WriteScan implements Writer.
func (w *TextWriter) WriteScan(result *scanner.Result) (int, error) {
	var b strings.Builder
	s := result.Summary

	fmt.Fprintf(&b, "\n%s\nIFRAME SCAN REPORT\n%s\n", heavyRule, heavyRule)

	b.WriteString("\nSCAN SUMMARY:\n")
	fmt.Fprintf(&b, "   Status: %s\n", statusText(result))
	fmt.Fprintf(&b, "   Total iframes found: %d\n", s.TotalIframes)
	fmt.Fprintf(&b, "   Accessible iframes: %d\n", s.AccessibleIframes)
	fmt.Fprintf(&b, "   Inaccessible iframes: %d\n", s.InaccessibleIframes)

	fmt.Fprintf(&b, "\nSEARCH RESULTS for '%s':\n", s.SearchText)
	fmt.Fprintf(&b, "   Total matches found: %d\n", s.TotalMatches)

	fmt.Fprintf(&b, "\nIFRAME DETAILS:\n%s\n", lightRule)
	if len(result.Iframes) == 0 {
		b.WriteString("   No iframes found on this page.\n")
	}
	for _, rec := range result.Iframes {
		fmt.Fprintf(&b, "\n   #%d. %s\n", rec.Index, rec.Path)
		fmt.Fprintf(&b, "       Status: %s\n", accessText(rec))
		writeField(&b, "ID", rec.ID)
		writeField(&b, "Name", rec.Name)
		writeField(&b, "Source", rec.Src)
		writeField(&b, "Title", rec.Title)
		writeField(&b, "XPath", rec.XPath)
		writeField(&b, "Preview", rec.Preview)
		if rec.MatchesFound > 0 {
			fmt.Fprintf(&b, "       Found %d text match(es)!\n", rec.MatchesFound)
		}
		writeField(&b, "Error", rec.Error)
	}

	if len(result.Matches) > 0 {
		fmt.Fprintf(&b, "\nDETAILED SEARCH RESULTS:\n%s\n", lightRule)
		for i, m := range result.Matches {
			fmt.Fprintf(&b, "\n   Match #%d:\n", i+1)
			fmt.Fprintf(&b, "       Location: %s\n", m.LocationPath)
			fmt.Fprintf(&b, "       Element: <%s>\n", m.ElementTag)
			fmt.Fprintf(&b, "       Text: %s\n", m.ElementText)
			fmt.Fprintf(&b, "       XPath: %s\n", m.ElementXPath)
			fmt.Fprintf(&b, "       Matched by: %s\n", m.MatchedBy)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", heavyRule)

	return io.WriteString(w.output, b.String())
}

// WriteLookup implements Writer.
func (w *TextWriter) WriteLookup(lookup *dom.Lookup) (int, error) {
	var b strings.Builder

	b.WriteString("\nDOM-only iframe XPath matches (from provided HTML, attributes/srcdoc only):\n")
	if lookup.Count == 0 {
		b.WriteString("   None found in iframe attributes/srcdoc.\n")
	}
	for i, xp := range lookup.XPaths {
		fmt.Fprintf(&b, "   %d. %s\n", i+1, xp)
	}

	return io.WriteString(w.output, b.String())
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "       %s: %s\n", label, value)
}
