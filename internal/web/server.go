package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/browser"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
	"github.com/teemow/meetscribe/internal/server"
)

const (
	// DefaultAddr is the default listen address of the web front-end.
	DefaultAddr = "127.0.0.1:8080"

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Config holds the dependencies of the web front-end.
type Config struct {
	// Addr defaults to DefaultAddr.
	Addr string

	// Sessions is required.
	Sessions *SessionManager

	// Health registers /healthz, /readyz and /healthz/detailed when set.
	Health *server.HealthChecker

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Server serves the browser UI. Every browser gets its own app.App through
// the session cookie.
type Server struct {
	sessions *SessionManager
	health   *server.HealthChecker
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
	handler  http.Handler

	mu         sync.Mutex
	addr       string
	httpServer *http.Server
}

// NewServer builds the router. It does not listen until Start.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		sessions: cfg.Sessions,
		health:   cfg.Health,
		metrics:  cfg.Metrics,
		logger:   logging.WithComponent(logging.OrDefault(cfg.Logger), "web"),
		addr:     cfg.Addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.handler = otelhttp.NewHandler(s.routes(), "meetscribe.web")
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	if s.health != nil {
		s.health.RegisterHealthEndpoints(r)
	}

	r.Get("/", s.handleIndex)
	r.Get("/state", s.handleState)
	r.Get("/ws", s.handleWebSocket)

	r.Post("/login", s.action(func(ctx context.Context, a *app.App) error {
		// Failures are reported through the alert queue.
		_ = a.Login(ctx)
		return nil
	}))
	r.Post("/logout", s.action(func(ctx context.Context, a *app.App) error {
		a.Logout(ctx)
		return nil
	}))
	r.Post("/retry", s.waitAction(func(a *app.App) (<-chan struct{}, error) {
		return a.Retry()
	}))
	r.Post("/refresh", s.waitAction(func(a *app.App) (<-chan struct{}, error) {
		return a.Refresh()
	}))
	r.Post("/meetings/{meetingID}/select", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "meetingID")
		s.action(func(ctx context.Context, a *app.App) error {
			return a.SelectMeeting(ctx, id)
		})(w, r)
	})
	r.Post("/transcripts/{fileID}/open", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "fileID")
		s.waitAction(func(a *app.App) (<-chan struct{}, error) {
			return a.OpenTranscript(id)
		})(w, r)
	})
	r.Post("/back/meetings", s.action(func(ctx context.Context, a *app.App) error {
		a.BackToMeetings(ctx)
		return nil
	}))
	r.Post("/back/transcripts", s.action(func(ctx context.Context, a *app.App) error {
		a.BackToTranscripts(ctx)
		return nil
	}))

	return r
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	a, _ := s.sessions.Resolve(w, r)
	data := newPageData(a.Snapshot(), a.TakeAlerts())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", logging.Err(err))
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	a, _ := s.sessions.Resolve(w, r)
	v := a.Snapshot()
	writeJSON(w, http.StatusOK, stateMessage{Version: v.Version, Screen: string(v.Screen()), Busy: v.Busy()})
}

// action runs fn against the caller's App and redirects back to the page.
func (s *Server) action(fn func(ctx context.Context, a *app.App) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, id := s.sessions.Resolve(w, r)
		if err := fn(r.Context(), a); err != nil {
			s.fail(w, r, id, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// waitAction is action for operations that start a request. The redirect is
// sent once the request finished so the next page shows its outcome.
func (s *Server) waitAction(fn func(a *app.App) (<-chan struct{}, error)) http.HandlerFunc {
	return s.action(func(ctx context.Context, a *app.App) error {
		done, err := fn(a)
		if err != nil {
			return err
		}
		select {
		case <-done:
		case <-ctx.Done():
		}
		return nil
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, browser.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, browser.ErrActionUnavailable), errors.Is(err, app.ErrNoContent):
		status = http.StatusConflict
	}
	s.logger.Info("action rejected",
		slog.String("path", r.URL.Path),
		slog.Int(logging.KeyStatus, status),
		logging.SessionID(sessionID),
		logging.Err(err))
	http.Error(w, err.Error(), status)
}

// Start listens on the configured address and serves until Shutdown. ready
// is closed once the listener is bound.
func (s *Server) Start(ready chan<- struct{}) error {
	s.mu.Lock()
	addr := s.addr
	s.mu.Unlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting web server", slog.String("addr", ln.Addr().String()))
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down web server")
	return srv.Shutdown(ctx)
}

// Addr is the configured address, or the bound one after Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
