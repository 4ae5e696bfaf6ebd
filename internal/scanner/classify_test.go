package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossOrigin(t *testing.T) {
	tests := []struct {
		parent string
		src    string
		want   bool
	}{
		{"https://site.test/page", "https://site.test/frame", false},
		{"https://site.test/page", "/frame", false},
		{"https://site.test/page", "frame.html", false},
		{"https://site.test/page", "https://other.test/frame", true},
		{"https://site.test/page", "http://site.test/frame", true},
		{"https://site.test/page", "https://site.test:8443/frame", true},
		{"https://site.test:443/page", "https://site.test/frame", false},
		{"https://site.test/page", "", false},
		{"https://site.test/page", "about:blank", false},
		{"https://site.test/page", "javascript:void(0)", false},
		{"https://site.test/page", "data:text/html,<p>x</p>", true},
		{"about:blank", "https://other.test/", true},
		{"about:blank", "local.html", false},
		{"", "https://other.test/", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s|%s", tt.parent, tt.src), func(t *testing.T) {
			assert.Equal(t, tt.want, crossOrigin(tt.parent, tt.src))
		})
	}
}

func TestClassifyAccess(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name  string
		cause error
		src   string
		want  error
	}{
		{"cross-origin src wins over timeout", context.DeadlineExceeded, "https://other.test/", ErrCrossOrigin},
		{"same-origin deadline", fmt.Errorf("eval: %w", context.DeadlineExceeded), "/frame", ErrFrameTimeout},
		{"same-origin other failure", cause, "/frame", ErrFrameNotFound},
		{"explicit cross-origin cause", fmt.Errorf("wrapped: %w", ErrCrossOrigin), "", ErrCrossOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAccess("Main > Iframe[1]", tt.cause, "https://site.test/", tt.src)

			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.cause)
			assert.Equal(t, "Main > Iframe[1]", got.Path)
		})
	}
}

func TestAccessError_Messages(t *testing.T) {
	err := &AccessError{Kind: ErrCrossOrigin, Cause: errors.New("blocked")}
	assert.Equal(t, "cross-origin: frame content is blocked by the same-origin policy: blocked", err.Error())

	err = &AccessError{Kind: ErrMaxDepth}
	assert.Equal(t, "skipped: maximum frame depth reached", err.Error())
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestScanError_Unwrap(t *testing.T) {
	err := inputError("search text is empty")

	var scanErr *ScanError
	assert.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "validate", scanErr.Operation)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorContains(t, err, "search text is empty")
}
