package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/observability"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/store"
)

// ErrLoginFailed covers both an unknown ID and a wrong password; callers are
// not told which, matching the single "user not found" message the product
// shows.
var ErrLoginFailed = errors.New("auth: login failed")

// Checker verifies credentials against the record store. Passwords are
// stored and compared in plaintext; hardening the credential scheme is
// explicitly out of scope for this system.
type Checker struct {
	store store.Store
}

func NewChecker(s store.Store) *Checker { return &Checker{store: s} }

// CheckEmployee returns the employee record when id/password match.
func (c *Checker) CheckEmployee(ctx context.Context, id int, password string) (*models.Employee, error) {
	e, err := c.store.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			observability.LoginFailures.Inc()
			return nil, ErrLoginFailed
		}
		return nil, fmt.Errorf("auth: %w", err)
	}
	if e.Password != password {
		observability.LoginFailures.Inc()
		return nil, ErrLoginFailed
	}
	return e, nil
}

// CheckDriver returns the driver record when id/password match.
func (c *Checker) CheckDriver(ctx context.Context, id int, password string) (*models.Driver, error) {
	d, err := c.store.GetDriver(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			observability.LoginFailures.Inc()
			return nil, ErrLoginFailed
		}
		return nil, fmt.Errorf("auth: %w", err)
	}
	if d.Password != password {
		observability.LoginFailures.Inc()
		return nil, ErrLoginFailed
	}
	return d, nil
}
