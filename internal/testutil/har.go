// Package testutil records and replays browser traffic so that live scans
// can be exercised against fixed page sets.
package testutil

import (
	"fmt"
	"os"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HARLog is a reduced HAR (HTTP Archive) document: just the request and
// response pairs needed to serve pages back to the browser.
type HARLog struct {
	Entries []HAREntry `json:"entries"`
}

// HAREntry is one request/response pair.
type HAREntry struct {
	Request  HARRequest  `json:"request"`
	Response HARResponse `json:"response"`
}

type HARRequest struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers []HARHeader `json:"headers,omitempty"`
	Body    string      `json:"body,omitempty"`
}

type HARResponse struct {
	Status  int         `json:"status"`
	Headers []HARHeader `json:"headers,omitempty"`
	Content HARContent  `json:"content"`
}

type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HARContent is the response body. Binary bodies are base64 encoded.
type HARContent struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"`
	Size     int    `json:"size,omitempty"`
}

// devtoolsHAR is the HAR 1.2 layout exported by Chrome DevTools: entries sit
// under "log" and request bodies under postData.
type devtoolsHAR struct {
	Log struct {
		Version string `json:"version"`
		Entries []struct {
			Request struct {
				Method   string      `json:"method"`
				URL      string      `json:"url"`
				Headers  []HARHeader `json:"headers,omitempty"`
				PostData *struct {
					Text string `json:"text"`
				} `json:"postData,omitempty"`
			} `json:"request"`
			Response HARResponse `json:"response"`
		} `json:"entries"`
	} `json:"log"`
}

// ParseHAR decodes either the DevTools export or the reduced format.
func ParseHAR(data []byte) (*HARLog, error) {
	var devtools devtoolsHAR
	if err := json.Unmarshal(data, &devtools); err == nil && len(devtools.Log.Entries) > 0 {
		har := &HARLog{Entries: make([]HAREntry, 0, len(devtools.Log.Entries))}
		for _, e := range devtools.Log.Entries {
			entry := HAREntry{
				Request: HARRequest{
					Method:  e.Request.Method,
					URL:     e.Request.URL,
					Headers: e.Request.Headers,
				},
				Response: e.Response,
			}
			if e.Request.PostData != nil {
				entry.Request.Body = e.Request.PostData.Text
			}
			har.Entries = append(har.Entries, entry)
		}
		return har, nil
	}

	var har HARLog
	if err := json.Unmarshal(data, &har); err != nil {
		return nil, fmt.Errorf("parse HAR JSON: %w", err)
	}
	return &har, nil
}

// LoadHAR reads a HAR file in either supported layout.
func LoadHAR(path string) (*HARLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read HAR file: %w", err)
	}
	return ParseHAR(data)
}

// SaveHAR writes har to path in the reduced layout.
func SaveHAR(path string, har *HARLog) error {
	data, err := json.MarshalIndent(har, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal HAR: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write HAR file: %w", err)
	}

	return nil
}

// MustLoadHAR loads a HAR file and fails the test if it cannot be loaded.
func MustLoadHAR(t *testing.T, path string) *HARLog {
	t.Helper()

	har, err := LoadHAR(path)
	if err != nil {
		t.Fatalf("failed to load HAR file %s: %v", path, err)
	}

	return har
}

// Site builds a HAR serving each URL's markup as text/html.
func Site(pages map[string]string) *HARLog {
	har := &HARLog{}
	for u, markup := range pages {
		har.Add(u, 200, "text/html; charset=utf-8", markup)
	}
	return har
}

// Add appends a GET entry.
func (h *HARLog) Add(u string, status int, mimeType, body string) {
	h.Entries = append(h.Entries, HAREntry{
		Request: HARRequest{Method: "GET", URL: u},
		Response: HARResponse{
			Status:  status,
			Content: HARContent{MimeType: mimeType, Text: body, Size: len(body)},
		},
	})
}
