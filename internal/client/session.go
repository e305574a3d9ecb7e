package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kazz187/taskflow/internal/event"
)

const defaultReconnectDelay = 3 * time.Second

// Session keeps a Synchronizer live against one server. The event socket is
// dialed before the List seed so nothing committed in between is missed;
// frames that overlap the seed are absorbed by the idempotent merges.
type Session struct {
	client         *Client
	sync           *Synchronizer
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

type SessionOption func(*Session)

func WithReconnectDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		s.reconnectDelay = d
	}
}

func WithDialer(d *websocket.Dialer) SessionOption {
	return func(s *Session) {
		s.dialer = d
	}
}

func NewSession(c *Client, sync *Synchronizer, opts ...SessionOption) *Session {
	s := &Session{
		client:         c,
		sync:           sync,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Synchronizer() *Synchronizer {
	return s.sync
}

// Run blocks until ctx is done, reconnecting and reseeding after every
// disconnect. It always returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.WarnContext(ctx, "event stream lost, reconnecting", "error", err, "delay", s.reconnectDelay)
		select {
		case <-time.After(s.reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) runOnce(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.client.EventsURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial event stream: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	tasks, err := s.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed tasks: %w", err)
	}
	s.sync.Seed(tasks)
	slog.DebugContext(ctx, "session seeded", "tasks", len(tasks))

	for {
		var f event.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if _, err := s.sync.Apply(&f); err != nil {
			slog.WarnContext(ctx, "dropping undecodable event", "event_type", f.Event, "error", err)
		}
	}
}
