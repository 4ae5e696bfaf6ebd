package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// Status is the lifecycle state reported by /api/scan-status.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusLoading      Status = "loading"
	StatusDiscovering  Status = "discovering"
	StatusFinalizing   Status = "finalizing"
	StatusCompleted    Status = "completed"
	StatusStopped      Status = "stopped"
	StatusError        Status = "error"
)

// Terminal reports whether no further updates follow.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusStopped, StatusError:
		return true
	}
	return false
}

// Event types pushed over /api/scan-events.
const (
	EventStatusUpdate  = "status_update"
	EventLogMessage    = "log_message"
	EventScanStarted   = "scan_started"
	EventScanCompleted = "scan_completed"
	EventScanStopped   = "scan_stopped"
	EventScanError     = "scan_error"
)

// subscriberBuffer bounds the events queued for one websocket client.
const subscriberBuffer = 256

// Event is one message pushed to websocket subscribers.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

func newEvent(typ string, data map[string]any) Event {
	return Event{Type: typ, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Snapshot is the status view of a session.
type Snapshot struct {
	SessionID string     `json:"session_id"`
	Status    Status     `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message"`
	Phase     string     `json:"phase"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     *string    `json:"error"`
}

// Session tracks one background scan.
type Session struct {
	ID        string
	Request   scanner.Request
	Modes     scanner.MatchMode
	StartTime time.Time

	stop atomic.Bool

	mu       sync.Mutex
	status   Status
	phase    string
	progress int
	message  string
	endTime  time.Time
	result   *scanner.Result
	err      string
	subs     map[chan Event]struct{}
}

func newSession(id string, req scanner.Request, modes scanner.MatchMode, now time.Time) *Session {
	return &Session{
		ID:        id,
		Request:   req,
		Modes:     modes,
		StartTime: now,
		status:    StatusInitializing,
		phase:     "init",
		message:   "Preparing scan...",
		subs:      make(map[chan Event]struct{}),
	}
}

// RequestStop raises the cancellation flag polled between frames.
func (s *Session) RequestStop() {
	s.stop.Store(true)
}

// StopRequested is the scanner's cancellation query.
func (s *Session) StopRequested() bool {
	return s.stop.Load()
}

// Snapshot returns the current status.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.ID,
		Status:    s.status,
		Progress:  s.progress,
		Message:   s.message,
		Phase:     s.phase,
		StartTime: s.StartTime,
	}
	if !s.endTime.IsZero() {
		end := s.endTime
		snap.EndTime = &end
	}
	if s.err != "" {
		msg := s.err
		snap.Error = &msg
	}
	return snap
}

// Result returns the scan result once the session is completed or stopped.
func (s *Session) Result() (*scanner.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCompleted && s.status != StatusStopped {
		return nil, false
	}
	return s.result, s.result != nil
}

func (s *Session) update(status Status, phase string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = status
	s.phase = phase
	// progress never moves backwards
	s.progress = max(s.progress, min(progress, 100))
	s.message = message
	s.publishLocked(newEvent(EventStatusUpdate, map[string]any{
		"session_id": s.ID,
		"status":     status,
		"progress":   s.progress,
		"message":    message,
	}))
}

// finish moves the session to a terminal status, pushes the final event and
// closes every subscriber.
func (s *Session) finish(status Status, message string, result *scanner.Result, errMsg string, final Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = status
	s.phase = "done"
	s.message = message
	s.result = result
	s.err = errMsg
	s.endTime = time.Now()
	if status == StatusCompleted {
		s.progress = 100
	}
	s.publishLocked(final)
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

func (s *Session) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(ev)
}

func (s *Session) publishLocked(ev Event) {
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber, drop
		}
	}
}

// Subscribe returns the current status together with a channel of the events
// that follow it. The channel is closed when the session ends; for a session
// that already ended it is returned closed. Call the returned func to
// unsubscribe early.
func (s *Session) Subscribe() (Snapshot, <-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.status.Terminal() {
		close(ch)
		return s.snapshotLocked(), ch, func() {}
	}
	s.subs[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return s.snapshotLocked(), ch, cancel
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Terminal() && now.Sub(s.endTime) > ttl
}

// store is the in-memory session registry.
type store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func newStore(ttl time.Duration) *store {
	return &store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// add registers sess and drops finished sessions older than the TTL.
func (st *store) add(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ttl > 0 {
		now := st.now()
		for id, old := range st.sessions {
			if old.expired(now, st.ttl) {
				delete(st.sessions, id)
			}
		}
	}
	st.sessions[sess.ID] = sess
}

func (st *store) get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

func (st *store) count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
