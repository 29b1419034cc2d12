package audit

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/events"
)

// PostgresStore writes ride events to the ride_events table. Schema lives in
// migrations/001_create_ride_events.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Record(ctx context.Context, ev events.RideEvent) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ride_events(event_type, driver_id, employee_name, driver_status, occurred_at) VALUES($1,$2,$3,$4,$5)`,
		string(ev.Type), ev.DriverID, ev.Employee, ev.Status, ev.At)
	return err
}

func (p *PostgresStore) Close() error { return p.db.Close() }
