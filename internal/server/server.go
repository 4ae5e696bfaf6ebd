// Package server exposes scans over HTTP. Each scan runs on its own
// goroutine with its own browser; progress and log lines are pushed to
// websocket subscribers and results are kept in memory for a limited time.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/grez-lucas/iframe-scanner/internal/browser"
	"github.com/grez-lucas/iframe-scanner/internal/config"
	"github.com/grez-lucas/iframe-scanner/internal/htmlframe"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

const defaultShutdownTimeout = 10 * time.Second

// Browser is the per-scan page loader. It is closed when the scan ends.
type Browser interface {
	scanner.Loader
	Close() error
}

// Launcher starts the Browser of one scan.
type Launcher func(ctx context.Context, headless bool) (Browser, error)

// BrowserLauncher launches a Chromium instance per scan.
func BrowserLauncher(opts browser.Options, logger *zap.Logger) Launcher {
	return func(ctx context.Context, headless bool) (Browser, error) {
		opts.Headless = headless
		sess, err := browser.Launch(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

type offlineBrowser struct {
	*htmlframe.Loader
}

func (offlineBrowser) Close() error { return nil }

// OfflineLauncher walks markup without Chromium. URL targets are not
// fetched and fail to load.
func OfflineLauncher(opts ...htmlframe.Option) Launcher {
	return func(context.Context, bool) (Browser, error) {
		return offlineBrowser{htmlframe.New(opts...)}, nil
	}
}

// Server owns the session registry and the scan goroutines.
type Server struct {
	cfg      config.ServerConfig
	scanOpts scanner.Options
	launch   Launcher
	logger   *zap.Logger
	sessions *store
	limiter  *rate.Limiter

	// ctx is cancelled on Shutdown and bounds every scan.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Server. scanOpts are the defaults for every scan; a request
// may override the match modes.
func New(cfg config.ServerConfig, scanOpts scanner.Options, launch Launcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.ScanRate > 0 {
		limit = rate.Limit(cfg.ScanRate)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		scanOpts: scanOpts,
		launch:   launch,
		logger:   logger.Named("server"),
		sessions: newStore(cfg.SessionTTL),
		limiter:  rate.NewLimiter(limit, max(cfg.ScanBurst, 1)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	// websocket routes stay outside the logging group, which wraps the writer
	r.Get("/api/scan-events/{id}", s.handleScanEvents)

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Post("/api/start-scan", s.handleStartScan)
		r.Get("/api/scan-status/{id}", s.handleScanStatus)
		r.Get("/api/scan-results/{id}", s.handleScanResults)
		r.Post("/api/stop-scan/{id}", s.handleStopScan)
		r.Post("/api/dom-iframe-xpaths", s.handleDOMXPaths)
	})
	return r
}

// Session returns a registered session.
func (s *Server) Session(id string) (*Session, bool) {
	return s.sessions.get(id)
}

// Serve answers requests on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down HTTP server")

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), s.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Shutdown cancels running scans and waits for their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scans: %w", ctx.Err())
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
