package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
)

// SessionCookie is the cookie carrying the browser session id.
const SessionCookie = "meetscribe_session"

const (
	// DefaultSessionTimeout is how long an untouched session is kept.
	DefaultSessionTimeout = 2 * time.Hour

	defaultCleanupInterval = 5 * time.Minute
)

// AppFactory creates the App backing a new browser session.
type AppFactory func() *app.App

type sessionEntry struct {
	app        *app.App
	lastAccess time.Time
}

// SessionManager keeps one App per browser. Sessions are identified by a
// random cookie and expire after a period without requests.
type SessionManager struct {
	newApp  AppFactory
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu             sync.Mutex
	sessions       map[string]*sessionEntry
	sessionTimeout time.Duration

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTimeout sets the idle timeout.
func WithSessionTimeout(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.sessionTimeout = d
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) { m.logger = logger }
}

// WithSessionMetrics counts open sessions in the active_sessions metric.
func WithSessionMetrics(metrics *instrumentation.Metrics) SessionOption {
	return func(m *SessionManager) { m.metrics = metrics }
}

// NewSessionManager starts a manager creating Apps with newApp. Stop must be
// called to release the cleanup goroutine and the Apps.
func NewSessionManager(newApp AppFactory, opts ...SessionOption) *SessionManager {
	return newSessionManager(newApp, defaultCleanupInterval, opts...)
}

func newSessionManager(newApp AppFactory, interval time.Duration, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		newApp:         newApp,
		sessions:       make(map[string]*sessionEntry),
		sessionTimeout: DefaultSessionTimeout,
		cleanupTicker:  time.NewTicker(interval),
		cleanupDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(logging.OrDefault(m.logger), "web.sessions")

	go m.cleanupExpiredSessions()
	return m
}

// Resolve returns the App for the session cookie of r, creating a session
// and setting the cookie on w when there is none. New Apps start their
// authentication check in the background.
func (m *SessionManager) Resolve(w http.ResponseWriter, r *http.Request) (*app.App, string) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if a, ok := m.Lookup(c.Value); ok {
			return a, c.Value
		}
	}

	id := uuid.NewString()
	a := m.newApp()

	m.mu.Lock()
	m.sessions[id] = &sessionEntry{app: a, lastAccess: time.Now()}
	m.mu.Unlock()
	m.metrics.IncrementActiveSessions(r.Context())
	m.logger.Debug("session created", logging.SessionID(id))

	go a.Init(context.Background())

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return a, id
}

// Lookup returns the App of session id and marks it as used.
func (m *SessionManager) Lookup(id string) (*app.App, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastAccess = time.Now()
	return entry.app, true
}

// Remove closes and forgets session id.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		entry.app.Close()
		m.metrics.DecrementActiveSessions(context.Background())
	}
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if n := m.expire(time.Now()); n > 0 {
				m.logger.Info("Cleaned up expired sessions", slog.Int("count", n))
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// expire closes every session idle since before now minus the timeout.
func (m *SessionManager) expire(now time.Time) int {
	m.mu.Lock()
	var expired []*sessionEntry
	for id, entry := range m.sessions {
		if now.Sub(entry.lastAccess) > m.sessionTimeout {
			expired = append(expired, entry)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, entry := range expired {
		entry.app.Close()
		m.metrics.DecrementActiveSessions(context.Background())
	}
	return len(expired)
}

// Stop ends the cleanup goroutine and closes all sessions.
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)

		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[string]*sessionEntry)
		m.mu.Unlock()

		for _, entry := range sessions {
			entry.app.Close()
			m.metrics.DecrementActiveSessions(context.Background())
		}
	})
}
