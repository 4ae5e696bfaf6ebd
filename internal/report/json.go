package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/grez-lucas/iframe-scanner/internal/dom"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONWriter outputs reports as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteScan implements Writer.
func (w *JSONWriter) WriteScan(result *scanner.Result) (int, error) {
	return w.writeJSON(result)
}

// WriteLookup implements Writer.
func (w *JSONWriter) WriteLookup(lookup *dom.Lookup) (int, error) {
	return w.writeJSON(lookup)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
