package testutil

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const maxRedirects = 10

// Replayer answers browser requests from a HARLog.
type Replayer struct {
	// exact maps full URLs to entries.
	exact map[string]*HAREntry
	// byPath ignores the query string; first entry wins.
	byPath map[string]*HAREntry

	passthrough bool
	logger      *zap.Logger
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithPassthrough lets unmatched requests reach the network. By default they
// are answered with 404.
func WithPassthrough(enabled bool) ReplayerOption {
	return func(r *Replayer) {
		r.passthrough = enabled
	}
}

// WithLogger logs every match and miss at debug level.
func WithLogger(logger *zap.Logger) ReplayerOption {
	return func(r *Replayer) {
		r.logger = logger
	}
}

// NewReplayer indexes har for lookup.
func NewReplayer(har *HARLog, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		exact:  make(map[string]*HAREntry),
		byPath: make(map[string]*HAREntry),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	for i := range har.Entries {
		entry := &har.Entries[i]
		r.exact[entry.Request.URL] = entry

		if key, ok := pathKey(entry.Request.URL); ok {
			if _, exists := r.byPath[key]; !exists {
				r.byPath[key] = entry
			}
		}
	}

	return r
}

func pathKey(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return u.Scheme + "://" + u.Host + path, true
}

// Lookup finds the entry answering reqURL, following recorded redirects.
func (r *Replayer) Lookup(reqURL string) (*HAREntry, bool) {
	entry, ok := r.find(reqURL)
	if !ok {
		return nil, false
	}

	for range maxRedirects {
		status := entry.Response.Status
		if status < 300 || status >= 400 {
			break
		}
		location := header(entry.Response.Headers, "location")
		next, ok := r.find(location)
		if location == "" || !ok {
			break
		}
		r.logger.Debug("Following recorded redirect", zap.Int("status", status), zap.String("location", location))
		entry = next
	}

	return entry, true
}

func (r *Replayer) find(reqURL string) (*HAREntry, bool) {
	if entry, ok := r.exact[reqURL]; ok {
		return entry, true
	}
	if key, ok := pathKey(reqURL); ok {
		entry, found := r.byPath[key]
		return entry, found
	}
	return nil, false
}

// Middleware returns a Rod hijack handler serving recorded responses.
func (r *Replayer) Middleware() func(*rod.Hijack) {
	return func(h *rod.Hijack) {
		reqURL := h.Request.URL().String()

		entry, ok := r.Lookup(reqURL)
		if !ok {
			r.logger.Debug("No recording for request", zap.String("url", reqURL))
			if r.passthrough {
				_ = h.LoadResponse(http.DefaultClient, true)
				return
			}
			notFound(h)
			return
		}

		r.logger.Debug("Replaying request", zap.String("url", reqURL), zap.Int("status", entry.Response.Status))
		serve(h, entry.Response)
	}
}

func serve(h *rod.Hijack, resp HARResponse) {
	body := []byte(resp.Content.Text)
	if resp.Content.Encoding == "base64" {
		if decoded, err := base64.StdEncoding.DecodeString(resp.Content.Text); err == nil {
			body = decoded
		}
	}

	var headers []*proto.FetchHeaderEntry
	for _, hd := range resp.Headers {
		switch strings.ToLower(hd.Name) {
		case "content-encoding", "content-length", "location":
			continue
		}
		headers = append(headers, &proto.FetchHeaderEntry{Name: hd.Name, Value: hd.Value})
	}
	if header(resp.Headers, "content-type") == "" && resp.Content.MimeType != "" {
		headers = append(headers, &proto.FetchHeaderEntry{Name: "Content-Type", Value: resp.Content.MimeType})
	}

	payload := h.Response.Payload()
	payload.ResponseCode = resp.Status
	payload.ResponseHeaders = headers
	payload.Body = body
}

func notFound(h *rod.Hijack) {
	payload := h.Response.Payload()
	payload.ResponseCode = http.StatusNotFound
	payload.ResponseHeaders = []*proto.FetchHeaderEntry{
		{Name: "Content-Type", Value: "text/plain"},
	}
	payload.Body = []byte("no recording found for URL")
}

func header(headers []HARHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Stats reports the index sizes.
func (r *Replayer) Stats() map[string]int {
	return map[string]int{
		"exact_matches": len(r.exact),
		"path_matches":  len(r.byPath),
	}
}
