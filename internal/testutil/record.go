package testutil

import (
	"net/http"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Recorder captures document responses while the browser loads pages, so a
// page and its frames can be replayed later.
type Recorder struct {
	mu  sync.Mutex
	har HARLog
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Middleware is a Rod hijack handler that fetches each request, lets the
// browser have the response and keeps a copy of documents.
func (r *Recorder) Middleware() func(*rod.Hijack) {
	return func(h *rod.Hijack) {
		if err := h.LoadResponse(http.DefaultClient, true); err != nil {
			h.Response.Fail(proto.NetworkErrorReasonFailed)
			return
		}

		if h.Request.Type() != proto.NetworkResourceTypeDocument {
			return
		}

		entry := HAREntry{
			Request: HARRequest{
				Method: h.Request.Method(),
				URL:    h.Request.URL().String(),
			},
			Response: HARResponse{
				Status: h.Response.Payload().ResponseCode,
				Content: HARContent{
					MimeType: h.Response.Headers().Get("Content-Type"),
					Text:     h.Response.Body(),
					Size:     len(h.Response.Body()),
				},
			},
		}
		if location := h.Response.Headers().Get("Location"); location != "" {
			entry.Response.Headers = []HARHeader{{Name: "Location", Value: location}}
		}

		r.mu.Lock()
		r.har.Entries = append(r.har.Entries, entry)
		r.mu.Unlock()
	}
}

// HAR returns a copy of what has been recorded so far.
func (r *Recorder) HAR() *HARLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]HAREntry, len(r.har.Entries))
	copy(entries, r.har.Entries)
	return &HARLog{Entries: entries}
}
