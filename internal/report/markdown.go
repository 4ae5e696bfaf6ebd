package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/grez-lucas/iframe-scanner/internal/dom"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// MarkdownWriter outputs reports as GitHub-flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteScan implements Writer.
func (w *MarkdownWriter) WriteScan(result *scanner.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)
	s := result.Summary

	md.H1("Iframe Scan Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Search Text", "`" + s.SearchText + "`"},
			{"Status", statusText(result)},
			{"Total Iframes", strconv.Itoa(s.TotalIframes)},
			{"Accessible", strconv.Itoa(s.AccessibleIframes)},
			{"Inaccessible", strconv.Itoa(s.InaccessibleIframes)},
			{"Matches", strconv.Itoa(s.TotalMatches)},
		},
	})
	md.PlainText("")

	md.H2("Iframes")
	md.PlainText("")
	if len(result.Iframes) == 0 {
		md.PlainText("No iframes found on this page.")
	} else {
		rows := make([][]string, 0, len(result.Iframes))
		for _, rec := range result.Iframes {
			rows = append(rows, []string{
				strconv.Itoa(rec.Index),
				rec.Path,
				code(rec.XPath),
				accessText(rec),
				strconv.Itoa(rec.MatchesFound),
				rec.Src,
				rec.Error,
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"#", "Path", "XPath", "Status", "Matches", "Source", "Error"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if len(result.Matches) > 0 {
		md.H2("Matches")
		md.PlainText("")
		rows := make([][]string, 0, len(result.Matches))
		for i, m := range result.Matches {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				m.LocationPath,
				code("<" + m.ElementTag + ">"),
				m.ElementText,
				code(m.ElementXPath),
				m.MatchedBy.String(),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"#", "Location", "Element", "Text", "XPath", "Matched By"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// WriteLookup implements Writer.
func (w *MarkdownWriter) WriteLookup(lookup *dom.Lookup) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("DOM-only Iframe XPaths")
	md.PlainText("")
	md.PlainText("Matches found: " + strconv.Itoa(lookup.Count))
	md.PlainText("")

	if lookup.Count > 0 {
		items := make([]string, 0, len(lookup.XPaths))
		for _, xp := range lookup.XPaths {
			items = append(items, code(xp))
		}
		md.BulletList(items...)
	}

	return len(md.String()), md.Build()
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + s + "`"
}
