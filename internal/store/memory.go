package store

import (
	"context"
	"sort"
	"sync"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
)

// MemoryStore is an in-memory record store. It backs tests and local runs;
// production deployments use RedisStore.
type MemoryStore struct {
	mu        sync.RWMutex
	employees map[int]*models.Employee
	drivers   map[int]*models.Driver
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees: make(map[int]*models.Employee),
		drivers:   make(map[int]*models.Driver),
	}
}

// PutEmployee seeds an employee record. Provisioning happens outside the
// service, so this is only reachable from setup code.
func (m *MemoryStore) PutEmployee(e models.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := e
	m.employees[e.ID] = &cp
}

func (m *MemoryStore) PutDriver(d models.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := d
	cp.RideRequests = append([]string(nil), d.RideRequests...)
	cp.Passengers = append([]string(nil), d.Passengers...)
	m.drivers[d.ID] = &cp
}

func (m *MemoryStore) GetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryStore) GetDriver(ctx context.Context, id int) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDriver(d), nil
}

func (m *MemoryStore) ScanEmployees(ctx context.Context) ([]models.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ScanDrivers(ctx context.Context) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, *copyDriver(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateEmployee(ctx context.Context, id int, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return ErrNotFound
	}
	for _, mut := range u {
		if mut.Op == OpSet && mut.Attr == AttrMapLocation {
			e.MapLocation = mut.Value
		}
	}
	return nil
}

func (m *MemoryStore) UpdateDriver(ctx context.Context, id int, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	// Validation already passed, so the whole update applies under one lock.
	for _, mut := range u {
		switch mut.Op {
		case OpAdd:
			set := d.RideRequests
			if mut.Attr == AttrPassengers {
				set = d.Passengers
			}
			for _, e := range mut.Elems {
				set = addElem(set, e)
			}
			if mut.Attr == AttrPassengers {
				d.Passengers = set
			} else {
				d.RideRequests = set
			}
		case OpDelete:
			if mut.Attr == AttrPassengers {
				d.Passengers = removeElems(d.Passengers, mut.Elems)
			} else {
				d.RideRequests = removeElems(d.RideRequests, mut.Elems)
			}
		case OpSet:
			switch mut.Attr {
			case AttrStatus:
				d.Status = models.DriverStatus(mut.Value)
			case AttrMapLocation:
				d.MapLocation = mut.Value
			}
		}
	}
	return nil
}

func (m *MemoryStore) EnsureSetAttribute(ctx context.Context, table Table, id int, attr string) error {
	if table != TableDrivers {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	switch attr {
	case AttrRideRequests:
		if d.RideRequests == nil {
			d.RideRequests = []string{}
		}
	case AttrPassengers:
		if d.Passengers == nil {
			d.Passengers = []string{}
		}
	}
	return nil
}

func copyDriver(d *models.Driver) *models.Driver {
	cp := *d
	cp.RideRequests = append([]string(nil), d.RideRequests...)
	cp.Passengers = append([]string(nil), d.Passengers...)
	return &cp
}

func addElem(set []string, e string) []string {
	for _, s := range set {
		if s == e {
			return set
		}
	}
	return append(set, e)
}

func removeElems(set []string, elems []string) []string {
	out := set[:0]
	for _, s := range set {
		drop := false
		for _, e := range elems {
			if s == e {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, s)
		}
	}
	return out
}
