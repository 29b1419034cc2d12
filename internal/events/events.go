package events

import (
	"context"
	"time"
)

// Type enumerates ride lifecycle transitions worth telling anyone about.
type Type string

const (
	RideRequested    Type = "ride_requested"
	RideAccepted     Type = "ride_accepted"
	RideDenied       Type = "ride_denied"
	RideCanceled     Type = "ride_canceled"
	PassengerRemoved Type = "passenger_removed"
	StatusChanged    Type = "status_changed"
)

// RideEvent is emitted after a successful state transition. Employee carries
// the employee name because set membership is keyed by name, not ID.
type RideEvent struct {
	Type     Type      `json:"type"`
	DriverID int       `json:"driver_id"`
	Employee string    `json:"employee,omitempty"`
	Status   string    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier delivers ride events. Delivery is best effort: the engine never
// rolls back a committed transition because a notification failed.
type Notifier interface {
	Notify(ctx context.Context, ev RideEvent) error
}

// NopNotifier drops everything.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, ev RideEvent) error { return nil }

// Multi fans an event out to several notifiers, returning the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev RideEvent) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
