package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/dom"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// htmlPreviewLength bounds the markup echoed back in scan_info.
const htmlPreviewLength = 500

// StartRequest is the body of POST /api/start-scan.
type StartRequest struct {
	URL        string   `json:"url"`
	HTMLSource string   `json:"html_source"`
	SearchText string   `json:"search_text"`
	Headless   *bool    `json:"headless"`
	Modes      []string `json:"modes"`
}

// DOMRequest is the body of POST /api/dom-iframe-xpaths.
type DOMRequest struct {
	HTMLSource string `json:"html_source"`
	SearchText string `json:"search_text"`
}

// ScanInfo echoes the request of a finished scan.
type ScanInfo struct {
	URL               string    `json:"url"`
	HTMLSourcePreview string    `json:"html_source_preview"`
	SearchText        string    `json:"search_text"`
	StartTime         time.Time `json:"start_time"`
}

// ResultsResponse is the body of GET /api/scan-results/{id}.
type ResultsResponse struct {
	SessionID string          `json:"session_id"`
	Results   *scanner.Result `json:"results"`
	ScanInfo  ScanInfo        `json:"scan_info"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if !s.decode(w, r, &body) {
		return
	}

	req := scanner.Request{
		URL:        strings.TrimSpace(body.URL),
		HTMLSource: body.HTMLSource,
		SearchText: strings.TrimSpace(body.SearchText),
		Headless:   body.Headless == nil || *body.Headless,
	}
	if err := req.Validate(); err != nil {
		s.respondWithError(w, http.StatusBadRequest, inputMessage(err))
		return
	}

	// zero keeps the server's configured modes
	var modes scanner.MatchMode
	if len(body.Modes) > 0 {
		parsed, err := scanner.ParseModes(body.Modes)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		modes = parsed
	}

	if !s.limiter.Allow() {
		s.respondWithError(w, http.StatusTooManyRequests, "Too many scans started, try again later")
		return
	}

	sess := newSession(uuid.NewString(), req, modes, time.Now())
	s.start(sess)
	s.logger.Info("Scan started",
		zap.String("session_id", sess.ID),
		zap.Bool("url_input", req.URL != ""),
		zap.Bool("headless", req.Headless),
	)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"message":    "Scan started successfully",
	})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleScanResults(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	result, ok := sess.Result()
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Scan not completed yet")
		return
	}

	s.respondJSON(w, http.StatusOK, ResultsResponse{
		SessionID: sess.ID,
		Results:   result,
		ScanInfo: ScanInfo{
			URL:               sess.Request.URL,
			HTMLSourcePreview: previewSource(sess.Request.HTMLSource),
			SearchText:        sess.Request.SearchText,
			StartTime:         sess.StartTime,
		},
	})
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.RequestStop()
	s.logger.Info("Stop requested", zap.String("session_id", sess.ID))
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Scan stop requested",
	})
}

func (s *Server) handleDOMXPaths(w http.ResponseWriter, r *http.Request) {
	var body DOMRequest
	if !s.decode(w, r, &body) {
		return
	}

	lookup, err := dom.Find(body.HTMLSource, strings.TrimSpace(body.SearchText))
	if err != nil {
		if errors.Is(err, dom.ErrInvalidInput) {
			s.respondWithError(w, http.StatusBadRequest, inputMessage(err))
			return
		}
		s.logger.Error("DOM-only lookup failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, lookup)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		s.respondWithError(w, http.StatusNotFound, "Session not found")
	}
	return sess, ok
}

// decode reads a size-limited JSON body into v, answering the request on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, map[string]string{"error": message})
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// inputMessage returns the user-facing part of an input error.
func inputMessage(err error) string {
	var se *scanner.ScanError
	if errors.As(err, &se) && se.Details != "" {
		return se.Details
	}
	return err.Error()
}

func previewSource(markup string) string {
	runes := []rune(markup)
	if len(runes) <= htmlPreviewLength {
		return markup
	}
	return string(runes[:htmlPreviewLength]) + "..."
}
