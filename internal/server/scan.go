package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/observability"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// Progress bands of the discovering phase: walker progress 0-100 maps onto
// 30-90 of the session.
const (
	discoverFloor = 30
	discoverSpan  = 60
)

// start registers a session and runs its scan in the background.
func (s *Server) start(sess *Session) {
	s.sessions.add(sess)
	s.wg.Add(1)
	go s.runScan(sess)
}

func (s *Server) runScan(sess *Session) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	logger := s.logger.With(zap.String("session_id", sess.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scan panicked", zap.Any("panic", r))
			s.fail(sess, logger, fmt.Errorf("internal error: %v", r))
		}
	}()

	sess.update(StatusInitializing, "init", 5, "Setting up browser...")
	b, err := s.launch(ctx, sess.Request.Headless)
	if err != nil {
		s.fail(sess, logger, fmt.Errorf("launch browser: %w", err))
		return
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	inputType := "url"
	if sess.Request.URL == "" {
		inputType = "html_source"
	}
	sess.publish(newEvent(EventScanStarted, map[string]any{
		"session_id": sess.ID,
		"input_type": inputType,
	}))
	sess.update(StatusLoading, "loading", 15, "Loading content...")

	opts := s.scanOpts
	if sess.Modes != 0 {
		opts.Modes = sess.Modes
	}
	logHook := observability.ScanLogHook(logger)
	hooks := scanner.Hooks{
		Progress: func(percent int, message string) {
			sess.update(StatusDiscovering, "discovering", discoverFloor+percent*discoverSpan/100, message)
		},
		Log: func(message string, level scanner.Level, timestamp string) {
			logHook(message, level, timestamp)
			sess.publish(newEvent(EventLogMessage, map[string]any{
				"session_id": sess.ID,
				"message":    message,
				"level":      level,
				"timestamp":  timestamp,
			}))
		},
		Stopped: sess.StopRequested,
	}

	result, err := scanner.New(opts, hooks).Scan(ctx, b, sess.Request)
	if err != nil {
		s.fail(sess, logger, err)
		return
	}

	if result.Status == scanner.StatusStopped {
		logger.Info("Scan stopped", zap.Int("iframes", result.Summary.TotalIframes))
		sess.finish(StatusStopped, "Scan stopped by user", result, "",
			newEvent(EventScanStopped, map[string]any{"session_id": sess.ID}))
		return
	}

	sess.update(StatusFinalizing, "finalizing", 90, "Generating results...")
	logger.Info("Scan completed",
		zap.Int("iframes", result.Summary.TotalIframes),
		zap.Int("accessible", result.Summary.AccessibleIframes),
		zap.Int("matches", result.Summary.TotalMatches),
	)
	sess.finish(StatusCompleted, "Scan completed successfully!", result, "",
		newEvent(EventScanCompleted, map[string]any{
			"session_id": sess.ID,
			"summary": map[string]any{
				"total_iframes":      result.Summary.TotalIframes,
				"accessible_iframes": result.Summary.AccessibleIframes,
				"total_matches":      result.Summary.TotalMatches,
			},
		}))
}

func (s *Server) fail(sess *Session, logger *zap.Logger, err error) {
	logger.Error("Scan failed", zap.Error(err))
	msg := err.Error()
	sess.finish(StatusError, "Error: "+msg, nil, msg,
		newEvent(EventScanError, map[string]any{
			"session_id": sess.ID,
			"error":      msg,
		}))
}
