// Package server is the loopback bridge to an external visibility observer,
// such as a browser page rendering the same directory. The observer reports
// which section it shows and can toggle pins; the browser pushes every new
// view back.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/lotas/wegweiser/internal/applog"
)

// Server manages the WebSocket connection to the observer. Only one
// observer is connected at a time; a new connection replaces the old one.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	connID  string
	anchors map[string]string
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port: port,
		msgs: make(chan IncomingMsg, 64),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of validated incoming messages.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an observer is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// SetAnchors publishes the section key -> anchor id map served on /anchors.
func (s *Server) SetAnchors(anchors map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchors = anchors
}

func (s *Server) anchorMap() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anchors == nil {
		return map[string]string{}
	}
	return s.anchors
}

// Send pushes msg to the connected observer. Without an observer it is a
// no-op.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	connID := s.connID
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	applog.Info("ws.send", "action", msg.Action, "id", msg.ID, "conn", connID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(1 << 20)

		ctx := r.Context()
		id := uuid.NewString()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced", "conn", s.connID)
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.connID = id
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr, "conn", id)

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
				s.connID = ""
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected", "conn", id)
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err, "conn", id)
				continue
			}
			if err := msg.Validate(); err != nil {
				applog.Warn("ws.invalid", "type", msg.Type, "err", err.Error())
				continue
			}
			applog.Info("ws.recv", "type", msg.Type, "conn", id)
			select {
			case s.msgs <- msg:
			default:
				applog.Warn("ws.dropped", "type", msg.Type)
			}
		}
	})
}

// ListenAndServe serves Router on 127.0.0.1 until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
