// Package redact masks credentials that show up in URLs and headers.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

// Placeholder replaces every sensitive value.
const Placeholder = "[REDACTED]"

var sensitiveKey = regexp.MustCompile(`(?i)(password|passwd|secret|token|session|sess_|auth|jwt|bearer|api_?key|credential|access_key|private_key|signature)`)

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-auth-token":        true,
	"x-api-key":           true,
	"x-access-token":      true,
	"x-session-id":        true,
	"x-csrf-token":        true,
	"x-xsrf-token":        true,
	"proxy-authorization": true,
}

// Key reports whether a parameter or field name looks like it carries a
// secret.
func Key(name string) bool {
	return sensitiveKey.MatchString(name)
}

// Header reports whether a header value must be masked.
func Header(name string) bool {
	return sensitiveHeaders[strings.ToLower(name)] || Key(name)
}

// URL masks sensitive query parameters and userinfo passwords. Parameter
// order and the rest of the URL are kept as written. Strings that do not
// parse are returned unchanged.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), Placeholder)
		}
	}

	if u.RawQuery != "" {
		pairs := strings.Split(u.RawQuery, "&")
		for i, pair := range pairs {
			key, _, found := strings.Cut(pair, "=")
			name, err := url.QueryUnescape(key)
			if err != nil {
				name = key
			}
			if found && Key(name) {
				pairs[i] = key + "=" + Placeholder
			}
		}
		u.RawQuery = strings.Join(pairs, "&")
	}

	return u.String()
}
