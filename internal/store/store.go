package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
)

// Table identifies which record family an operation targets.
type Table string

const (
	TableEmployees Table = "employees"
	TableDrivers   Table = "drivers"
)

// Attribute names understood by the record store.
const (
	AttrRideRequests = "RideRequests"
	AttrPassengers   = "Passengers"
	AttrMapLocation  = "MapLocation"
	AttrStatus       = "Status"
)

var (
	// ErrNotFound is returned when a record lookup finds no item.
	ErrNotFound = errors.New("store: record not found")
	// ErrEmptyOperand is returned when an ADD/DELETE mutation carries an
	// empty operand set. The whole update is rejected before any backend
	// call; nothing is partially applied.
	ErrEmptyOperand = errors.New("store: empty set operand")
)

// Op is the kind of mutation applied to a single attribute.
type Op string

const (
	OpAdd    Op = "ADD"    // add elements to a set attribute
	OpDelete Op = "DELETE" // remove elements from a set attribute
	OpSet    Op = "SET"    // overwrite a scalar attribute
)

// Mutation is one attribute change within an update. For OpAdd and OpDelete
// the operand lives in Elems and must be non-empty; for OpSet the new scalar
// value lives in Value.
type Mutation struct {
	Attr  string
	Op    Op
	Elems []string
	Value string
}

// Update is an ordered list of mutations applied to one record as a unit.
type Update []Mutation

// AddToSet builds a single-element set addition.
func AddToSet(attr, elem string) Mutation {
	return Mutation{Attr: attr, Op: OpAdd, Elems: []string{elem}}
}

// DeleteFromSet builds a single-element set removal.
func DeleteFromSet(attr, elem string) Mutation {
	return Mutation{Attr: attr, Op: OpDelete, Elems: []string{elem}}
}

// SetScalar builds a scalar overwrite.
func SetScalar(attr, value string) Mutation {
	return Mutation{Attr: attr, Op: OpSet, Value: value}
}

// Validate enforces the store preconditions: every ADD/DELETE operand must be
// a non-empty set. Implementations call this before touching the backend so a
// bad mutation never partially applies.
func (u Update) Validate() error {
	if len(u) == 0 {
		return fmt.Errorf("store: empty update")
	}
	for _, m := range u {
		switch m.Op {
		case OpAdd, OpDelete:
			if len(m.Elems) == 0 {
				return ErrEmptyOperand
			}
			for _, e := range m.Elems {
				if e == "" {
					return ErrEmptyOperand
				}
			}
		case OpSet:
		default:
			return fmt.Errorf("store: unknown op %q", m.Op)
		}
	}
	return nil
}

// Store is the record store contract. It is the single source of truth:
// records returned by Get/Scan are snapshots, never live views.
type Store interface {
	GetEmployee(ctx context.Context, id int) (*models.Employee, error)
	GetDriver(ctx context.Context, id int) (*models.Driver, error)

	// ScanEmployees and ScanDrivers are full-table scans. Table sizes are
	// assumed small enough for a single page.
	ScanEmployees(ctx context.Context) ([]models.Employee, error)
	ScanDrivers(ctx context.Context) ([]models.Driver, error)

	// UpdateEmployee and UpdateDriver apply all mutations atomically, or
	// none at all if validation fails.
	UpdateEmployee(ctx context.Context, id int, u Update) error
	UpdateDriver(ctx context.Context, id int, u Update) error

	// EnsureSetAttribute idempotently initializes an absent set attribute
	// to the empty set so later ADD/DELETE mutations have a target.
	EnsureSetAttribute(ctx context.Context, table Table, id int, attr string) error
}
