package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/xtremerevenge2005/sts-pbh-sufis/internal/models"
)

// RedisStore is the production record store. Scalars live in hashes,
// RideRequests/Passengers are native Redis sets, so ADD and DELETE map
// directly onto SADD/SREM and stay atomic under concurrent callers.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c}
}

// NewRedisStoreWithClient wires an existing client, mainly for tests.
func NewRedisStoreWithClient(c *redis.Client) *RedisStore {
	return &RedisStore{client: c}
}

func (r *RedisStore) Close() error { return r.client.Close() }

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func recordKey(table Table, id int) string {
	if table == TableDrivers {
		return "driver:" + strconv.Itoa(id)
	}
	return "employee:" + strconv.Itoa(id)
}

func setKey(table Table, id int, attr string) string {
	return recordKey(table, id) + ":" + attr
}

func indexKey(table Table) string { return string(table) + ":ids" }

func (r *RedisStore) GetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	m, err := r.client.HGetAll(ctx, recordKey(TableEmployees, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: hgetall employee %d: %w", id, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return &models.Employee{
		ID:                id,
		Name:              m["Name"],
		Password:          m["Password"],
		Role:              m["Role"],
		Contact:           m["Contact"],
		AdditionalDetails: m["AdditionalDetails"],
		MapLocation:       m[AttrMapLocation],
	}, nil
}

func (r *RedisStore) GetDriver(ctx context.Context, id int) (*models.Driver, error) {
	m, err := r.client.HGetAll(ctx, recordKey(TableDrivers, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: hgetall driver %d: %w", id, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	d := &models.Driver{
		ID:                id,
		Name:              m["Name"],
		Password:          m["Password"],
		Status:            models.DriverStatus(m[AttrStatus]),
		Contact:           m["Contact"],
		AdditionalDetails: m["AdditionalDetails"],
		MapLocation:       m[AttrMapLocation],
	}
	reqs, err := r.client.SMembers(ctx, setKey(TableDrivers, id, AttrRideRequests)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: smembers ride requests %d: %w", id, err)
	}
	pass, err := r.client.SMembers(ctx, setKey(TableDrivers, id, AttrPassengers)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: smembers passengers %d: %w", id, err)
	}
	d.RideRequests = reqs
	d.Passengers = pass
	return d, nil
}

func (r *RedisStore) ScanEmployees(ctx context.Context) ([]models.Employee, error) {
	ids, err := r.scanIDs(ctx, TableEmployees)
	if err != nil {
		return nil, err
	}
	out := make([]models.Employee, 0, len(ids))
	for _, id := range ids {
		e, err := r.GetEmployee(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *RedisStore) ScanDrivers(ctx context.Context) ([]models.Driver, error) {
	ids, err := r.scanIDs(ctx, TableDrivers)
	if err != nil {
		return nil, err
	}
	out := make([]models.Driver, 0, len(ids))
	for _, id := range ids {
		d, err := r.GetDriver(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *RedisStore) scanIDs(ctx context.Context, table Table) ([]int, error) {
	members, err := r.client.SMembers(ctx, indexKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", table, err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) UpdateEmployee(ctx context.Context, id int, u Update) error {
	return r.update(ctx, TableEmployees, id, u)
}

func (r *RedisStore) UpdateDriver(ctx context.Context, id int, u Update) error {
	return r.update(ctx, TableDrivers, id, u)
}

func (r *RedisStore) update(ctx context.Context, table Table, id int, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	for _, mut := range u {
		switch mut.Op {
		case OpAdd:
			pipe.SAdd(ctx, setKey(table, id, mut.Attr), toAny(mut.Elems)...)
		case OpDelete:
			pipe.SRem(ctx, setKey(table, id, mut.Attr), toAny(mut.Elems)...)
		case OpSet:
			pipe.HSet(ctx, recordKey(table, id), mut.Attr, mut.Value)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: update %s %d: %w", table, id, err)
	}
	return nil
}

// EnsureSetAttribute is a no-op here: an empty Redis set has no
// representation, and SADD/SREM create or drop the key as needed.
func (r *RedisStore) EnsureSetAttribute(ctx context.Context, table Table, id int, attr string) error {
	return nil
}

// SeedEmployee and SeedDriver provision records, including index membership.
// They exist for ops tooling and local bootstrap, not for the request path.
func (r *RedisStore) SeedEmployee(ctx context.Context, e models.Employee) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, recordKey(TableEmployees, e.ID), map[string]interface{}{
		"Name": e.Name, "Password": e.Password, "Role": e.Role,
		"Contact": e.Contact, "AdditionalDetails": e.AdditionalDetails,
		AttrMapLocation: e.MapLocation,
	})
	pipe.SAdd(ctx, indexKey(TableEmployees), strconv.Itoa(e.ID))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) SeedDriver(ctx context.Context, d models.Driver) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, recordKey(TableDrivers, d.ID), map[string]interface{}{
		"Name": d.Name, "Password": d.Password, AttrStatus: string(d.Status),
		"Contact": d.Contact, "AdditionalDetails": d.AdditionalDetails,
		AttrMapLocation: d.MapLocation,
	})
	pipe.SAdd(ctx, indexKey(TableDrivers), strconv.Itoa(d.ID))
	if len(d.RideRequests) > 0 {
		pipe.SAdd(ctx, setKey(TableDrivers, d.ID, AttrRideRequests), toAny(d.RideRequests)...)
	}
	if len(d.Passengers) > 0 {
		pipe.SAdd(ctx, setKey(TableDrivers, d.ID, AttrPassengers), toAny(d.Passengers)...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
