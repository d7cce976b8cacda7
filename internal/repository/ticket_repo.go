// Package repository implements the reservation state machine on top of
// Redis.  It owns the per-class key layout and the four atomic Lua scripts;
// every lifecycle transition (AVAILABLE -> RESERVED -> SOLD, and the
// RESERVED -> AVAILABLE backward edge) goes through this package.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ankitaduttagupta/ticketing-service/internal/model"
)

// TicketRepo is the typed facade over the transition scripts.  It validates
// inputs, resolves the key set for the class, dispatches the script and
// decodes the reply.  All methods are safe for concurrent use; the atomicity
// lives in Redis, not in this process.
type TicketRepo struct {
	rdb *redis.Client
}

// NewTicketRepo returns a TicketRepo bound to the provided client.
func NewTicketRepo(rdb *redis.Client) *TicketRepo {
	if rdb == nil {
		panic("nil redis client passed to NewTicketRepo")
	}
	return &TicketRepo{rdb: rdb}
}

// ReserveN atomically moves up to n ids from available to reserved, each
// under a lease expiring lease from now, and returns the reserved ids with
// their pool payloads.  The result may be shorter than n (including empty)
// when the class runs out of available tickets; the caller owns the decision
// to keep or roll back an underfilled batch.
func (r *TicketRepo) ReserveN(ctx context.Context, class, n int, lease time.Duration) ([]model.ReservedTicket, error) {
	if n < 1 {
		return nil, fmt.Errorf("reserve: n must be >= 1, got %d", n)
	}
	if lease < time.Second {
		return nil, fmt.Errorf("reserve: lease must be >= 1s, got %s", lease)
	}
	k := keysFor(class)
	expiry := time.Now().Add(lease).Unix()
	res, err := reserveScript.Run(ctx, r.rdb,
		[]string{k.available, k.reserved, k.pool, k.reservedExp},
		n, expiry,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("reserve script: %w", err)
	}
	if len(res)%2 != 0 {
		return nil, fmt.Errorf("reserve script: odd reply length %d", len(res))
	}
	reserved := make([]model.ReservedTicket, 0, len(res)/2)
	for i := 0; i < len(res); i += 2 {
		id, ok := res[i].(string)
		if !ok {
			return nil, fmt.Errorf("reserve script: non-string id at %d: %T", i, res[i])
		}
		t := model.ReservedTicket{ID: id}
		if payload, ok := res[i+1].(string); ok && payload != "" {
			t.Payload = json.RawMessage(payload)
		}
		reserved = append(reserved, t)
	}
	return reserved, nil
}

// Confirm atomically moves the ids from reserved to sold and clears their
// leases.  Ids that have already left reserved (an expired lease the sweeper
// reclaimed) are skipped inside the script; the return value is the request
// count, so callers needing proof of the move must follow up with
// SoldMembers.
func (r *TicketRepo) Confirm(ctx context.Context, class int, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("confirm: empty id list")
	}
	k := keysFor(class)
	n, err := confirmScript.Run(ctx, r.rdb,
		[]string{k.reserved, k.sold, k.reservedExp},
		idArgs(ids)...,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("confirm script: %w", err)
	}
	return n, nil
}

// Rollback atomically returns the ids from reserved to available and clears
// their leases.  Missing ids are skipped, so rolling back a batch the
// sweeper already reclaimed is harmless.
func (r *TicketRepo) Rollback(ctx context.Context, class int, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("rollback: empty id list")
	}
	k := keysFor(class)
	n, err := rollbackScript.Run(ctx, r.rdb,
		[]string{k.reserved, k.available, k.reservedExp},
		idArgs(ids)...,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("rollback script: %w", err)
	}
	return n, nil
}

// Reclaim releases up to limit leases that have expired by now and returns
// the released ids.  Calling it when nothing has expired is a no-op.
func (r *TicketRepo) Reclaim(ctx context.Context, class, limit int) ([]string, error) {
	if limit < 1 {
		return nil, fmt.Errorf("reclaim: limit must be >= 1, got %d", limit)
	}
	k := keysFor(class)
	ids, err := reclaimScript.Run(ctx, r.rdb,
		[]string{k.reserved, k.available, k.reservedExp},
		time.Now().Unix(), limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("reclaim script: %w", err)
	}
	return ids, nil
}

// Preload seeds tickets into the class: each payload goes into the pool hash
// and the id into the available set.  Seeding is a trusted admin operation;
// it is pipelined for throughput, not atomic, and must not run concurrently
// with itself for the same class.
func (r *TicketRepo) Preload(ctx context.Context, class int, tickets []model.Ticket) (int, error) {
	if len(tickets) == 0 {
		return 0, nil
	}
	k := keysFor(class)
	pipe := r.rdb.Pipeline()
	for _, t := range tickets {
		if t.ID == "" {
			return 0, fmt.Errorf("preload: ticket with empty id")
		}
		pipe.HSet(ctx, k.pool, t.ID, string(t.Payload))
		pipe.SAdd(ctx, k.available, t.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("preload pipeline: %w", err)
	}
	return len(tickets), nil
}

// Counts reads the cardinality of the three lifecycle sets in one round trip.
func (r *TicketRepo) Counts(ctx context.Context, class int) (model.Counts, error) {
	k := keysFor(class)
	pipe := r.rdb.Pipeline()
	avail := pipe.SCard(ctx, k.available)
	reserved := pipe.SCard(ctx, k.reserved)
	sold := pipe.SCard(ctx, k.sold)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Counts{}, fmt.Errorf("counts pipeline: %w", err)
	}
	return model.Counts{
		Available: avail.Val(),
		Reserved:  reserved.Val(),
		Sold:      sold.Val(),
	}, nil
}

// AvailableCount returns |available| for the class.  Used by the purchase
// coordinator as an advisory fast-path check; the authoritative check is
// ReserveN's underfill.
func (r *TicketRepo) AvailableCount(ctx context.Context, class int) (int64, error) {
	k := keysFor(class)
	n, err := r.rdb.SCard(ctx, k.available).Result()
	if err != nil {
		return 0, fmt.Errorf("scard available: %w", err)
	}
	return n, nil
}

// SoldMembers reports, per id, whether the id is currently in the sold set.
// The coordinator uses this after Confirm to detect a batch the sweeper
// reclaimed mid-payment.
func (r *TicketRepo) SoldMembers(ctx context.Context, class int, ids []string) ([]bool, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("sold members: empty id list")
	}
	k := keysFor(class)
	members, err := r.rdb.SMIsMember(ctx, k.sold, idArgs(ids)...).Result()
	if err != nil {
		return nil, fmt.Errorf("smismember sold: %w", err)
	}
	return members, nil
}

// Ping checks store reachability for the health endpoint.
func (r *TicketRepo) Ping(ctx context.Context) (string, error) {
	return r.rdb.Ping(ctx).Result()
}

// idArgs converts an id list to the []interface{} shape the go-redis variadic
// APIs expect.
func idArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
