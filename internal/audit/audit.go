package audit

import (
	"context"
	"sync"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/events"
)

// EventStore persists the ride-event audit trail.
type EventStore interface {
	Record(ctx context.Context, ev events.RideEvent) error
}

// MemoryStore keeps events in memory for tests and local runs.
type MemoryStore struct {
	mu     sync.Mutex
	events []events.RideEvent
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Record(ctx context.Context, ev events.RideEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryStore) Events() []events.RideEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.RideEvent(nil), m.events...)
}
