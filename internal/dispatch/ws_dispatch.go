package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/events"
)

var ErrNoSession = errors.New("dispatch: no ws session")

// WSSession is one connected driver dashboard.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev events.RideEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// WSRegistry tracks driver websocket sessions and pushes ride events to the
// driver they concern. Drivers without an open session simply miss the push;
// the dashboard re-fetches on refresh anyway.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[int]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSRegistry{sessions: make(map[int]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(driverID int, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[driverID]; ok {
		_ = old.conn.Close()
	}
	r.sessions[driverID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(driverID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, driverID)
}

// Notify implements events.Notifier.
func (r *WSRegistry) Notify(ctx context.Context, ev events.RideEvent) error {
	r.mu.RLock()
	s, ok := r.sessions[ev.DriverID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(ev); err != nil {
		r.logger.Warn("ws send failed", "driver_id", ev.DriverID, "error", err)
		return err
	}
	return nil
}
