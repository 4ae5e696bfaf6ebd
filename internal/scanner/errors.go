package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned before any traversal when the request is
	// unusable: empty search text, no target, or both targets at once.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLoadFailed means the scan target itself could not be loaded or read.
	ErrLoadFailed = errors.New("failed to load scan target")

	ErrCrossOrigin   = errors.New("cross-origin restriction")
	ErrFrameNotFound = errors.New("frame not found")
	ErrFrameTimeout  = errors.New("frame entry timed out")
	ErrMaxDepth      = errors.New("maximum frame depth reached")
)

// ScanError provides detailed error context
type ScanError struct {
	Operation string
	Cause     error
	Details   string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s failed: %v - %s", e.Operation, e.Cause, e.Details)
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}

func inputError(details string) error {
	return &ScanError{Operation: "validate", Cause: ErrInvalidInput, Details: details}
}

// AccessError records why a frame could not be entered. Kind is one of
// ErrCrossOrigin, ErrFrameNotFound, ErrFrameTimeout or ErrMaxDepth.
type AccessError struct {
	Path  string
	Kind  error
	Cause error
}

func (e *AccessError) Error() string {
	label := accessLabel(e.Kind)
	if e.Cause == nil {
		return label
	}
	return fmt.Sprintf("%s: %v", label, e.Cause)
}

func (e *AccessError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func accessLabel(kind error) string {
	switch {
	case errors.Is(kind, ErrCrossOrigin):
		return "cross-origin: frame content is blocked by the same-origin policy"
	case errors.Is(kind, ErrFrameTimeout):
		return "timeout: frame did not become accessible in time"
	case errors.Is(kind, ErrMaxDepth):
		return "skipped: maximum frame depth reached"
	default:
		return "not found: frame is detached or has no browsing context"
	}
}
