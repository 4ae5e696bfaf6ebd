package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

func testSession(id string) *Session {
	return newSession(id, scanner.Request{HTMLSource: "<p>x</p>", SearchText: "x"}, 0, time.Now())
}

func TestSession_ProgressNeverMovesBackwards(t *testing.T) {
	sess := testSession("a")

	sess.update(StatusDiscovering, "discovering", 60, "half way")
	sess.update(StatusDiscovering, "discovering", 40, "late update")
	sess.update(StatusFinalizing, "finalizing", 150, "clamped")

	snap := sess.Snapshot()
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, StatusFinalizing, snap.Status)
	assert.Equal(t, "clamped", snap.Message)
}

func TestSession_FinishIsFinal(t *testing.T) {
	sess := testSession("a")
	result := scanner.BuildResult(scanner.StatusStopped, "x", nil, nil)

	sess.finish(StatusStopped, "stopped", result, "", newEvent(EventScanStopped, nil))
	sess.update(StatusDiscovering, "discovering", 50, "ignored")
	sess.finish(StatusError, "ignored", nil, "boom", newEvent(EventScanError, nil))

	snap := sess.Snapshot()
	assert.Equal(t, StatusStopped, snap.Status)
	assert.Equal(t, "done", snap.Phase)
	assert.Nil(t, snap.Error)

	got, ok := sess.Result()
	require.True(t, ok)
	assert.Same(t, result, got)
}

func TestSession_ResultUnavailableOnError(t *testing.T) {
	sess := testSession("a")
	sess.finish(StatusError, "Error: boom", nil, "boom", newEvent(EventScanError, nil))

	_, ok := sess.Result()
	assert.False(t, ok)
	require.NotNil(t, sess.Snapshot().Error)
	assert.Equal(t, "boom", *sess.Snapshot().Error)
}

func TestSession_Subscribe(t *testing.T) {
	sess := testSession("a")

	snap, events, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	assert.Equal(t, StatusInitializing, snap.Status)

	sess.update(StatusLoading, "loading", 15, "Loading content...")
	sess.finish(StatusCompleted, "done", scanner.BuildResult(scanner.StatusCompleted, "x", nil, nil), "",
		newEvent(EventScanCompleted, map[string]any{"session_id": "a"}))

	var types []string
	for ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{EventStatusUpdate, EventScanCompleted}, types)
}

func TestSession_SubscribeAfterFinish(t *testing.T) {
	sess := testSession("a")
	sess.finish(StatusCompleted, "done", scanner.BuildResult(scanner.StatusCompleted, "x", nil, nil), "",
		newEvent(EventScanCompleted, nil))

	snap, events, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	assert.Equal(t, StatusCompleted, snap.Status)

	_, open := <-events
	assert.False(t, open)
}

func TestSession_Unsubscribe(t *testing.T) {
	sess := testSession("a")

	_, events, unsubscribe := sess.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-events
	assert.False(t, open)

	// publishing after unsubscribe must not panic
	sess.update(StatusLoading, "loading", 15, "Loading content...")
}

func TestSession_StopFlag(t *testing.T) {
	sess := testSession("a")
	assert.False(t, sess.StopRequested())
	sess.RequestStop()
	assert.True(t, sess.StopRequested())
}

func TestStore_PrunesExpiredSessions(t *testing.T) {
	st := newStore(time.Minute)

	finished := testSession("finished")
	finished.finish(StatusCompleted, "done", scanner.BuildResult(scanner.StatusCompleted, "x", nil, nil), "",
		newEvent(EventScanCompleted, nil))
	running := testSession("running")
	st.add(finished)
	st.add(running)
	require.Equal(t, 2, st.count())

	st.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	st.add(testSession("new"))

	assert.Equal(t, 2, st.count())
	_, ok := st.get("finished")
	assert.False(t, ok)
	_, ok = st.get("running")
	assert.True(t, ok, "running sessions are never pruned")
}
