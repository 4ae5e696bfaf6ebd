package scanner

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// classifyAccess turns a failure to enter or read a frame into an
// AccessError. A src whose origin differs from the parent's is reported as
// cross-origin whatever the underlying failure was; otherwise an expired
// deadline is a timeout and anything else is not-found.
func classifyAccess(path string, cause error, parentURL, src string) *AccessError {
	var accessErr *AccessError
	if errors.As(cause, &accessErr) {
		return &AccessError{Path: path, Kind: accessErr.Kind, Cause: accessErr.Cause}
	}

	kind := ErrFrameNotFound
	switch {
	case errors.Is(cause, ErrCrossOrigin), crossOrigin(parentURL, src):
		kind = ErrCrossOrigin
	case errors.Is(cause, context.DeadlineExceeded), errors.Is(cause, ErrFrameTimeout):
		kind = ErrFrameTimeout
	}
	return &AccessError{Path: path, Kind: kind, Cause: cause}
}

// crossOrigin reports whether src, resolved against parentURL, points at a
// different origin. Frames without a navigable src (srcdoc, about:blank,
// javascript:) inherit the parent origin.
func crossOrigin(parentURL, src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}

	ref, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch strings.ToLower(ref.Scheme) {
	case "about", "javascript":
		return false
	case "data":
		return true
	}

	base, err := url.Parse(parentURL)
	if err != nil || base.Host == "" {
		// Opaque parents (about:blank, data:) only share an origin with
		// relative references.
		return ref.IsAbs() && ref.Host != ""
	}

	resolved := base.ResolveReference(ref)
	return !sameOrigin(base, resolved)
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	}
	return ""
}
