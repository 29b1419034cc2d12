package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/events"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/store"
)

type recordingNotifier struct{ evs []events.RideEvent }

func (r *recordingNotifier) Notify(ctx context.Context, ev events.RideEvent) error {
	r.evs = append(r.evs, ev)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *recordingNotifier) {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.PutEmployee(models.Employee{ID: 1, Name: "Alice", Password: "pw"})
	ms.PutEmployee(models.Employee{ID: 2, Name: "Bob", Password: "pw"})
	ms.PutDriver(models.Driver{ID: 10, Name: "Carlos", Status: models.StatusAvailable})
	ms.PutDriver(models.Driver{ID: 11, Name: "Dana", Status: models.StatusDriving})
	n := &recordingNotifier{}
	return New(ms, n, nil), ms, n
}

func TestSendRideRequest(t *testing.T) {
	eng, ms, n := newTestEngine(t)
	ctx := context.Background()

	out, err := eng.SendRideRequest(ctx, 1, 10)
	if err != nil || out != Applied {
		t.Fatalf("expected applied, got out=%v err=%v", out, err)
	}
	d, _ := ms.GetDriver(ctx, 10)
	if !d.HasRequestFrom("Alice") {
		t.Fatalf("Alice not in RideRequests: %+v", d)
	}
	if d.HasPassenger("Alice") {
		t.Fatalf("Alice must not be a passenger yet")
	}
	if len(n.evs) != 1 || n.evs[0].Type != events.RideRequested {
		t.Fatalf("expected ride_requested event, got %+v", n.evs)
	}

	// Re-sending while the request is outstanding is a silent no-op.
	out, err = eng.SendRideRequest(ctx, 1, 10)
	if err != nil || out != NoOp {
		t.Fatalf("expected noop, got out=%v err=%v", out, err)
	}
}

func TestSendRideRequestNoOpWhenAlreadyPassenger(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()
	ms.PutDriver(models.Driver{ID: 12, Name: "Eve", Status: models.StatusAvailable, Passengers: []string{"Alice"}})

	out, err := eng.SendRideRequest(ctx, 1, 12)
	if err != nil || out != NoOp {
		t.Fatalf("expected noop, got out=%v err=%v", out, err)
	}
	d, _ := ms.GetDriver(ctx, 12)
	if d.HasRequestFrom("Alice") {
		t.Fatalf("no request should be created for an existing passenger")
	}
}

func TestSendRideRequestUnknownEmployee(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if _, err := eng.SendRideRequest(context.Background(), 99, 10); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptRideRequest(t *testing.T) {
	eng, ms, n := newTestEngine(t)
	ctx := context.Background()
	if _, err := eng.SendRideRequest(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}

	snap, out, err := eng.AcceptRideRequest(ctx, 10, "Alice")
	if err != nil || out != Applied {
		t.Fatalf("expected applied, got out=%v err=%v", out, err)
	}
	// Returned snapshot reflects both halves without a re-fetch.
	if snap.HasRequestFrom("Alice") || !snap.HasPassenger("Alice") {
		t.Fatalf("snapshot not patched: %+v", snap)
	}
	// And so does the store.
	d, _ := ms.GetDriver(ctx, 10)
	if d.HasRequestFrom("Alice") || !d.HasPassenger("Alice") {
		t.Fatalf("store state wrong: %+v", d)
	}
	last := n.evs[len(n.evs)-1]
	if last.Type != events.RideAccepted || last.Employee != "Alice" {
		t.Fatalf("expected ride_accepted event, got %+v", last)
	}
}

func TestAcceptRideRequestNoOpWithoutRequest(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()

	snap, out, err := eng.AcceptRideRequest(ctx, 10, "Alice")
	if err != nil || out != NoOp {
		t.Fatalf("expected noop, got out=%v err=%v", out, err)
	}
	if snap.HasPassenger("Alice") {
		t.Fatalf("no-op must not mutate the snapshot")
	}
	d, _ := ms.GetDriver(ctx, 10)
	if d.HasPassenger("Alice") {
		t.Fatalf("no-op must not mutate the store")
	}
}

func TestDenyRideRequest(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()
	if _, err := eng.SendRideRequest(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}

	out, err := eng.DenyRideRequest(ctx, 10, "Alice")
	if err != nil || out != Applied {
		t.Fatalf("expected applied, got out=%v err=%v", out, err)
	}
	d, _ := ms.GetDriver(ctx, 10)
	if d.HasRequestFrom("Alice") || d.HasPassenger("Alice") {
		t.Fatalf("deny must drop the request without promoting: %+v", d)
	}

	// Denying again is a no-op with unchanged state.
	out, err = eng.DenyRideRequest(ctx, 10, "Alice")
	if err != nil || out != NoOp {
		t.Fatalf("expected noop, got out=%v err=%v", out, err)
	}
}

func TestCancelRideRequestRemovesOnlyFirstMatch(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()
	ms.PutDriver(models.Driver{ID: 10, Name: "Carlos", Status: models.StatusAvailable, RideRequests: []string{"Alice"}})
	ms.PutDriver(models.Driver{ID: 11, Name: "Dana", Status: models.StatusDriving, RideRequests: []string{"Bob"}})

	d, out, err := eng.CancelRideRequest(ctx, "Alice")
	if err != nil || out != Applied {
		t.Fatalf("expected applied, got out=%v err=%v", out, err)
	}
	if d == nil || d.ID != 10 {
		t.Fatalf("expected cancellation on driver 10, got %+v", d)
	}
	d10, _ := ms.GetDriver(ctx, 10)
	if d10.HasRequestFrom("Alice") {
		t.Fatalf("request not removed")
	}
	d11, _ := ms.GetDriver(ctx, 11)
	if !d11.HasRequestFrom("Bob") {
		t.Fatalf("other driver's requests must be untouched")
	}
}

func TestCancelRideRequestNoPending(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	d, out, err := eng.CancelRideRequest(context.Background(), "Alice")
	if err != nil || out != NoOp || d != nil {
		t.Fatalf("expected noop, got d=%v out=%v err=%v", d, out, err)
	}
}

func TestRemovePassengerIdempotent(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()
	ms.PutDriver(models.Driver{ID: 10, Name: "Carlos", Status: models.StatusAvailable, Passengers: []string{"Alice"}})

	if _, err := eng.RemovePassenger(ctx, 10, "Alice"); err != nil {
		t.Fatal(err)
	}
	d, _ := ms.GetDriver(ctx, 10)
	if d.HasPassenger("Alice") {
		t.Fatalf("passenger not removed")
	}

	// Second removal: the set delete is naturally a no-op.
	if _, err := eng.RemovePassenger(ctx, 10, "Alice"); err != nil {
		t.Fatalf("second removal must not fail: %v", err)
	}
}

func TestUpdateDriverStatus(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()

	// Any status can follow any other.
	for _, st := range []models.DriverStatus{models.StatusAway, models.StatusDriving, models.StatusAvailable, models.StatusAway} {
		if err := eng.UpdateDriverStatus(ctx, 10, st); err != nil {
			t.Fatalf("status %s: %v", st, err)
		}
	}
	d, _ := ms.GetDriver(ctx, 10)
	if d.Status != models.StatusAway {
		t.Fatalf("expected Away, got %s", d.Status)
	}

	if err := eng.UpdateDriverStatus(ctx, 10, "Sleeping"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEmptyOperandRejectedBeforeStore(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	// An empty passenger name would produce an empty-set operand; the guard
	// fires before any store call.
	if _, err := eng.RemovePassenger(context.Background(), 10, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListDriversFor(t *testing.T) {
	eng, ms, _ := newTestEngine(t)
	ctx := context.Background()
	ms.PutDriver(models.Driver{ID: 10, Name: "Carlos", Status: models.StatusAvailable, RideRequests: []string{"Alice"}})
	ms.PutDriver(models.Driver{ID: 11, Name: "Dana", Status: models.StatusDriving, Passengers: []string{"Alice"}})
	ms.PutDriver(models.Driver{ID: 12, Name: "Eve", Status: models.StatusAvailable})

	visible, pending, err := eng.ListDriversFor(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if !pending {
		t.Fatalf("expected a pending request")
	}
	if len(visible) != 1 || visible[0].ID != 12 {
		t.Fatalf("expected only driver 12 visible, got %+v", visible)
	}
}
