package event

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/pkg/clog"
)

const (
	defaultBufSize      = 64
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	maxInboundBytes     = 512
)

type Server struct {
	eventBus     *eventbus.Bus
	upgrader     websocket.Upgrader
	bufSize      int
	pingInterval time.Duration
}

type Option func(*Server)

// WithAllowedOrigins restricts the browser origins that may open the socket.
// "*" or an empty list accepts any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) == 0 || slices.Contains(origins, "*") {
			s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		s.pingInterval = d
	}
}

func WithBufferSize(n int) Option {
	return func(s *Server) {
		s.bufSize = n
	}
}

func NewServer(eventBus *eventbus.Bus, opts ...Option) *Server {
	s := &Server{
		eventBus: eventBus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		bufSize:      defaultBufSize,
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request and streams every bus event until the peer
// goes away or the request context ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, ch := s.eventBus.Subscribe(s.bufSize)
	defer s.eventBus.Unsubscribe(subID)
	clog.AddAttribute(ctx, "subscriber_id", subID)
	slog.InfoContext(ctx, "event subscriber connected", "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		s.readLoop(conn)
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			slog.InfoContext(ctx, "event subscriber disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := s.writeEvent(conn, ev); err != nil {
				slog.WarnContext(ctx, "failed to write event", "event_type", ev.Type, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.DebugContext(ctx, "ping failed", "error", err)
				return
			}
		}
	}
}

// readLoop discards client messages; it exists to process control frames
// and to notice the peer closing.
func (s *Server) readLoop(conn *websocket.Conn) {
	pongWait := s.pingInterval + writeWait
	conn.SetReadLimit(maxInboundBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("event socket read ended", "error", err)
			}
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev *eventbus.Event) error {
	frame, err := NewFrame(ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
