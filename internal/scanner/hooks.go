package scanner

import (
	"fmt"
	"time"
)

// Level is the severity attached to a log callback.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// TimestampLayout formats the timestamp handed to LogFunc.
const TimestampLayout = "15:04:05"

type (
	// ProgressFunc receives a 0-100 completion estimate between frames.
	ProgressFunc func(percent int, message string)
	// LogFunc receives scan log lines.
	LogFunc func(message string, level Level, timestamp string)
	// StopFunc is polled between frames; true stops the scan.
	StopFunc func() bool
)

// Hooks are the callbacks a caller injects into a scan. Any of them may be nil.
type Hooks struct {
	Progress ProgressFunc
	Log      LogFunc
	Stopped  StopFunc

	// Now overrides the clock used for log timestamps.
	Now func() time.Time
}

func (h Hooks) progress(percent int, message string) {
	if h.Progress == nil {
		return
	}
	h.Progress(min(max(percent, 0), 100), message)
}

func (h Hooks) logf(level Level, format string, args ...any) {
	if h.Log == nil {
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	h.Log(fmt.Sprintf(format, args...), level, now().Format(TimestampLayout))
}

func (h Hooks) stopped() bool {
	return h.Stopped != nil && h.Stopped()
}
