package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/events"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/observability"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/store"
)

// Outcome tells the caller what a mutation actually did. Failed preconditions
// are not errors: the original UI simply refused to re-fire a button, so a
// violated precondition surfaces as a silent no-op.
type Outcome int

const (
	Applied Outcome = iota
	NoOp
)

// ErrValidation covers mutations rejected before any store call, such as an
// empty-set operand or an unknown driver status.
var ErrValidation = errors.New("engine: validation failed")

// Engine owns the ride-request state machine. All reads and writes go through
// the record store; snapshots it returns are freshly constructed, never
// aliases of anything another caller holds.
type Engine struct {
	store    store.Store
	notifier events.Notifier
	logger   *slog.Logger
}

func New(s store.Store, n events.Notifier, logger *slog.Logger) *Engine {
	if n == nil {
		n = events.NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, notifier: n, logger: logger}
}

// SendRideRequest records a pending request from the employee to the driver.
// It is a no-op when the employee already has a request with, or is already a
// passenger of, this driver.
func (e *Engine) SendRideRequest(ctx context.Context, employeeID, driverID int) (Outcome, error) {
	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return NoOp, fmt.Errorf("send ride request: %w", err)
	}
	d, err := e.store.GetDriver(ctx, driverID)
	if err != nil {
		return NoOp, fmt.Errorf("send ride request: %w", err)
	}
	if d.HasRequestFrom(emp.Name) || d.HasPassenger(emp.Name) {
		return NoOp, nil
	}
	if err := e.store.EnsureSetAttribute(ctx, store.TableDrivers, driverID, store.AttrRideRequests); err != nil {
		return NoOp, fmt.Errorf("send ride request: %w", err)
	}
	u := store.Update{store.AddToSet(store.AttrRideRequests, emp.Name)}
	if err := e.applyDriverUpdate(ctx, driverID, u); err != nil {
		return NoOp, err
	}
	observability.RideRequestsSent.Inc()
	e.notify(ctx, events.RideEvent{Type: events.RideRequested, DriverID: driverID, Employee: emp.Name, At: time.Now()})
	return Applied, nil
}

// AcceptRideRequest moves employeeName from the driver's RideRequests to its
// Passengers in one logical update; there is no observable state with the
// name in neither or both sets. On success the returned snapshot already
// reflects both changes, so the caller can render without re-fetching.
func (e *Engine) AcceptRideRequest(ctx context.Context, driverID int, employeeName string) (*models.Driver, Outcome, error) {
	d, err := e.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, NoOp, fmt.Errorf("accept ride request: %w", err)
	}
	if !d.HasRequestFrom(employeeName) {
		return d, NoOp, nil
	}
	if err := e.store.EnsureSetAttribute(ctx, store.TableDrivers, driverID, store.AttrPassengers); err != nil {
		return nil, NoOp, fmt.Errorf("accept ride request: %w", err)
	}
	u := store.Update{
		store.DeleteFromSet(store.AttrRideRequests, employeeName),
		store.AddToSet(store.AttrPassengers, employeeName),
	}
	if err := e.applyDriverUpdate(ctx, driverID, u); err != nil {
		return nil, NoOp, err
	}
	snap := patchDriver(d, employeeName)
	observability.RideRequestsAccepted.Inc()
	e.notify(ctx, events.RideEvent{Type: events.RideAccepted, DriverID: driverID, Employee: employeeName, At: time.Now()})
	return snap, Applied, nil
}

// DenyRideRequest drops a pending request without promoting it.
func (e *Engine) DenyRideRequest(ctx context.Context, driverID int, employeeName string) (Outcome, error) {
	d, err := e.store.GetDriver(ctx, driverID)
	if err != nil {
		return NoOp, fmt.Errorf("deny ride request: %w", err)
	}
	if !d.HasRequestFrom(employeeName) {
		return NoOp, nil
	}
	u := store.Update{store.DeleteFromSet(store.AttrRideRequests, employeeName)}
	if err := e.applyDriverUpdate(ctx, driverID, u); err != nil {
		return NoOp, err
	}
	observability.RideRequestsDenied.Inc()
	e.notify(ctx, events.RideEvent{Type: events.RideDenied, DriverID: driverID, Employee: employeeName, At: time.Now()})
	return Applied, nil
}

// CancelRideRequest scans all drivers for a pending request from employeeName
// and removes the first one found. An employee is assumed to have at most one
// outstanding request across all drivers; if that ever breaks, later matches
// are left in place. Returns the driver whose request was canceled, or nil on
// a no-op.
func (e *Engine) CancelRideRequest(ctx context.Context, employeeName string) (*models.Driver, Outcome, error) {
	drivers, err := e.store.ScanDrivers(ctx)
	if err != nil {
		return nil, NoOp, fmt.Errorf("cancel ride request: %w", err)
	}
	for i := range drivers {
		d := &drivers[i]
		if !d.HasRequestFrom(employeeName) {
			continue
		}
		u := store.Update{store.DeleteFromSet(store.AttrRideRequests, employeeName)}
		if err := e.applyDriverUpdate(ctx, d.ID, u); err != nil {
			return nil, NoOp, err
		}
		observability.RideRequestsCanceled.Inc()
		e.notify(ctx, events.RideEvent{Type: events.RideCanceled, DriverID: d.ID, Employee: employeeName, At: time.Now()})
		return d, Applied, nil
	}
	return nil, NoOp, nil
}

// RemovePassenger deletes passengerName from the driver's Passengers set.
// Membership is not re-validated against the store first; removing an absent
// passenger is a natural no-op at the set level.
func (e *Engine) RemovePassenger(ctx context.Context, driverID int, passengerName string) (Outcome, error) {
	u := store.Update{store.DeleteFromSet(store.AttrPassengers, passengerName)}
	if err := e.applyDriverUpdate(ctx, driverID, u); err != nil {
		return NoOp, err
	}
	if err := e.store.EnsureSetAttribute(ctx, store.TableDrivers, driverID, store.AttrPassengers); err != nil {
		return NoOp, fmt.Errorf("remove passenger: %w", err)
	}
	observability.PassengersRemoved.Inc()
	e.notify(ctx, events.RideEvent{Type: events.PassengerRemoved, DriverID: driverID, Employee: passengerName, At: time.Now()})
	return Applied, nil
}

// UpdateDriverStatus overwrites the driver's status. Any status may follow
// any other; only membership in the closed status set is checked.
func (e *Engine) UpdateDriverStatus(ctx context.Context, driverID int, status models.DriverStatus) error {
	if !models.ValidStatus(status) {
		observability.ValidationFailures.Inc()
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	u := store.Update{store.SetScalar(store.AttrStatus, string(status))}
	if err := e.applyDriverUpdate(ctx, driverID, u); err != nil {
		return err
	}
	e.notify(ctx, events.RideEvent{Type: events.StatusChanged, DriverID: driverID, Status: string(status), At: time.Now()})
	return nil
}

// UpdateMapLocation persists a resolved map link on the caller's own record.
func (e *Engine) UpdateMapLocation(ctx context.Context, table store.Table, id int, url string) error {
	u := store.Update{store.SetScalar(store.AttrMapLocation, url)}
	var err error
	if table == store.TableDrivers {
		err = e.store.UpdateDriver(ctx, id, u)
	} else {
		err = e.store.UpdateEmployee(ctx, id, u)
	}
	if err != nil {
		return fmt.Errorf("update map location: %w", err)
	}
	return nil
}

// ListDriversFor returns drivers visible to the employee: any driver that
// already carries the employee in RideRequests or Passengers is hidden.
// The second result reports whether the employee has an outstanding request
// anywhere, which drives the cancel affordance.
func (e *Engine) ListDriversFor(ctx context.Context, employeeName string) ([]models.Driver, bool, error) {
	drivers, err := e.store.ScanDrivers(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list drivers: %w", err)
	}
	visible := make([]models.Driver, 0, len(drivers))
	pending := false
	for _, d := range drivers {
		if d.HasRequestFrom(employeeName) {
			pending = true
			continue
		}
		if d.HasPassenger(employeeName) {
			continue
		}
		visible = append(visible, d)
	}
	return visible, pending, nil
}

func (e *Engine) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	emps, err := e.store.ScanEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return emps, nil
}

func (e *Engine) GetDriver(ctx context.Context, id int) (*models.Driver, error) {
	return e.store.GetDriver(ctx, id)
}

func (e *Engine) GetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	return e.store.GetEmployee(ctx, id)
}

// applyDriverUpdate validates before submission so an empty-operand mutation
// never reaches the backend, then maps the guard onto ErrValidation.
func (e *Engine) applyDriverUpdate(ctx context.Context, driverID int, u store.Update) error {
	if err := u.Validate(); err != nil {
		observability.ValidationFailures.Inc()
		e.logger.Warn("rejected driver update", "driver_id", driverID, "error", err)
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := e.store.UpdateDriver(ctx, driverID, u); err != nil {
		return fmt.Errorf("update driver %d: %w", driverID, err)
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, ev events.RideEvent) {
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.logger.Warn("ride event notify failed", "type", string(ev.Type), "driver_id", ev.DriverID, "error", err)
	}
}

// patchDriver builds a fresh snapshot with employeeName moved from
// RideRequests to Passengers, leaving the input untouched.
func patchDriver(d *models.Driver, employeeName string) *models.Driver {
	cp := *d
	cp.RideRequests = make([]string, 0, len(d.RideRequests))
	for _, r := range d.RideRequests {
		if r != employeeName {
			cp.RideRequests = append(cp.RideRequests, r)
		}
	}
	cp.Passengers = append(append([]string(nil), d.Passengers...), employeeName)
	return &cp
}
