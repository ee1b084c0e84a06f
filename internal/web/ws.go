package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teemow/meetscribe/internal/logging"
)

const wsWriteTimeout = 10 * time.Second

// stateMessage is pushed to the page on every change of its session.
type stateMessage struct {
	Version uint64 `json:"version"`
	Screen  string `json:"screen"`
	Busy    bool   `json:"busy"`
}

// handleWebSocket pushes a stateMessage immediately and after each change
// until the page goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}
	a, ok := s.sessions.Lookup(c.Value)
	if !ok {
		http.Error(w, "session expired", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reading is only needed to notice the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		changed := a.Changed()
		v := a.Snapshot()
		msg := stateMessage{Version: v.Version, Screen: string(v.Screen()), Busy: v.Busy()}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("websocket write failed", logging.SessionID(c.Value), logging.Err(err))
			return
		}

		select {
		case <-changed:
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
