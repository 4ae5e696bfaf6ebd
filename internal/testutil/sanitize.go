package testutil

import (
	"net/url"
	"strings"

	"github.com/grez-lucas/iframe-scanner/internal/redact"
)

// SanitizeHAR returns a copy of har with credentials masked: sensitive query
// parameters, headers, and form or JSON request-body fields. Response bodies
// are kept, they are what the replay serves.
func SanitizeHAR(har *HARLog) *HARLog {
	sanitized := &HARLog{
		Entries: make([]HAREntry, len(har.Entries)),
	}

	for i, entry := range har.Entries {
		sanitized.Entries[i] = HAREntry{
			Request: HARRequest{
				Method:  entry.Request.Method,
				URL:     redact.URL(entry.Request.URL),
				Headers: sanitizeHeaders(entry.Request.Headers),
				Body:    sanitizeBody(entry.Request.Body),
			},
			Response: HARResponse{
				Status:  entry.Response.Status,
				Headers: sanitizeHeaders(entry.Response.Headers),
				Content: entry.Response.Content,
			},
		}
	}

	return sanitized
}

func sanitizeHeaders(headers []HARHeader) []HARHeader {
	if headers == nil {
		return nil
	}
	sanitized := make([]HARHeader, len(headers))
	for i, h := range headers {
		switch {
		case redact.Header(h.Name):
			sanitized[i] = HARHeader{Name: h.Name, Value: redact.Placeholder}
		case strings.EqualFold(h.Name, "Location"):
			sanitized[i] = HARHeader{Name: h.Name, Value: redact.URL(h.Value)}
		default:
			sanitized[i] = h
		}
	}
	return sanitized
}

func sanitizeBody(body string) string {
	trimmed := strings.TrimSpace(body)
	switch {
	case trimmed == "":
		return body
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return sanitizeJSONBody(body)
	case strings.Contains(body, "="):
		return sanitizeFormBody(body)
	default:
		return body
	}
}

func sanitizeFormBody(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}

	changed := false
	for key := range values {
		if redact.Key(key) {
			values.Set(key, redact.Placeholder)
			changed = true
		}
	}
	if !changed {
		return body
	}
	return values.Encode()
}

func sanitizeJSONBody(body string) string {
	var v any
	if err := json.UnmarshalFromString(body, &v); err != nil {
		return body
	}
	out, err := json.MarshalToString(redactJSON(v))
	if err != nil {
		return body
	}
	return out
}

func redactJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if redact.Key(k) {
				t[k] = redact.Placeholder
				continue
			}
			t[k] = redactJSON(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactJSON(t[i])
		}
		return t
	default:
		return v
	}
}
