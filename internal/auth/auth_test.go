package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/store"
)

func newChecker() *Checker {
	ms := store.NewMemoryStore()
	ms.PutEmployee(models.Employee{ID: 1, Name: "Alice", Password: "secret"})
	ms.PutDriver(models.Driver{ID: 10, Name: "Carlos", Password: "wheel", Status: models.StatusAvailable})
	return NewChecker(ms)
}

func TestCheckEmployee(t *testing.T) {
	c := newChecker()
	ctx := context.Background()

	e, err := c.CheckEmployee(ctx, 1, "secret")
	if err != nil || e.Name != "Alice" {
		t.Fatalf("expected Alice, got e=%v err=%v", e, err)
	}
	if _, err := c.CheckEmployee(ctx, 1, "wrong"); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("wrong password: expected ErrLoginFailed, got %v", err)
	}
	if _, err := c.CheckEmployee(ctx, 42, "secret"); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("unknown id: expected ErrLoginFailed, got %v", err)
	}
}

func TestCheckDriver(t *testing.T) {
	c := newChecker()
	ctx := context.Background()

	d, err := c.CheckDriver(ctx, 10, "wheel")
	if err != nil || d.Name != "Carlos" {
		t.Fatalf("expected Carlos, got d=%v err=%v", d, err)
	}
	if _, err := c.CheckDriver(ctx, 10, ""); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
}
