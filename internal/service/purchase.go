package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ankitaduttagupta/ticketing-service/internal/model"
	"github.com/ankitaduttagupta/ticketing-service/internal/queue"
	"github.com/ankitaduttagupta/ticketing-service/internal/wallet"
)

// ticketStore is the slice of the repository the coordinator needs.
// *repository.TicketRepo satisfies it.
type ticketStore interface {
	AvailableCount(ctx context.Context, class int) (int64, error)
	ReserveN(ctx context.Context, class, n int, lease time.Duration) ([]model.ReservedTicket, error)
	Confirm(ctx context.Context, class int, ids []string) (int64, error)
	Rollback(ctx context.Context, class int, ids []string) (int64, error)
	SoldMembers(ctx context.Context, class int, ids []string) ([]bool, error)
}

// PublishFunc delivers a purchased-ticket event to the broker.  It is
// injected so tests and broker-less deployments can run without RabbitMQ.
type PublishFunc func(ctx context.Context, event queue.TicketsPurchasedEvent) error

// PurchaseService coordinates a full purchase: advisory pre-check, atomic
// reserve, wallet debit, then confirm or rollback.  The multi-step flow is
// not atomic as a whole; the lease recorded at reserve time bounds the
// window, and the sweeper heals any batch this process abandons.
type PurchaseService struct {
	repo      ticketStore
	wallet    wallet.Debitor
	publish   PublishFunc // may be nil
	lease     time.Duration
	unitPrice int
}

// NewPurchaseService constructs a PurchaseService.  repo and debitor must be
// non-nil; publish may be nil to disable event publishing.
func NewPurchaseService(repo ticketStore, debitor wallet.Debitor, publish PublishFunc, lease time.Duration, unitPrice int) *PurchaseService {
	if repo == nil || debitor == nil {
		panic("nil dependency passed to NewPurchaseService")
	}
	return &PurchaseService{
		repo:      repo,
		wallet:    debitor,
		publish:   publish,
		lease:     lease,
		unitPrice: unitPrice,
	}
}

// Purchase buys count tickets of the class for the player and returns their
// payloads.  On any failure the reserved ids have been returned to the
// available set before the error surfaces; the only ids that ever leave this
// method still reserved belong to a process that died mid-flight, and the
// sweeper reclaims those once the lease expires.
func (s *PurchaseService) Purchase(ctx context.Context, class int, playerID string, count int) ([]json.RawMessage, error) {
	// Advisory fast path for the clearly-sold-out case.  Not load-bearing:
	// the count can change before the reserve script runs, and the underfill
	// branch below is the authoritative check.
	avail, err := s.repo.AvailableCount(ctx, class)
	if err != nil {
		return nil, err
	}
	if avail < int64(count) {
		return nil, ErrInsufficientInventory
	}

	reserved, err := s.repo.ReserveN(ctx, class, count, s.lease)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(reserved))
	for i, t := range reserved {
		ids[i] = t.ID
	}

	if len(reserved) < count {
		// Underfilled: another buyer won the race.  Return the partial batch
		// before surfacing so the ids do not sit out the lease.
		s.release(ctx, class, ids)
		return nil, ErrInsufficientInventory
	}

	ok, err := s.wallet.Debit(ctx, playerID, count*s.unitPrice)
	if err != nil {
		log.Printf("purchase: wallet debit for player %s failed: %v", playerID, err)
		ok = false
	}
	if !ok {
		s.release(ctx, class, ids)
		return nil, ErrPaymentDeclined
	}

	if _, err := s.repo.Confirm(ctx, class, ids); err != nil {
		s.release(ctx, class, ids)
		return nil, err
	}

	// The confirm script skips ids that already left the reserved set, so a
	// batch the sweeper reclaimed mid-payment confirms as a partial no-op.
	// Probe the sold set to catch that; on any miss, undo the ids that did
	// move and report the anomaly.
	members, err := s.repo.SoldMembers(ctx, class, ids)
	if err != nil {
		return nil, err
	}
	for _, sold := range members {
		if !sold {
			s.release(ctx, class, ids)
			return nil, ErrFinalizeMismatch
		}
	}

	if s.publish != nil {
		event := queue.TicketsPurchasedEvent{
			Class:       class,
			PlayerID:    playerID,
			TicketIDs:   ids,
			Amount:      count * s.unitPrice,
			PurchasedAt: time.Now().UTC().Format(time.RFC3339),
		}
		// Best effort; the purchase is already durable in the store.
		if err := s.publish(ctx, event); err != nil {
			log.Printf("purchase: publish event failed: %v", err)
		}
	}

	return payloads(reserved), nil
}

// release rolls a batch back to available, logging instead of failing: if
// the store is unreachable the leases expire and the sweeper finishes the
// job.
func (s *PurchaseService) release(ctx context.Context, class int, ids []string) {
	if len(ids) == 0 {
		return
	}
	if _, err := s.repo.Rollback(ctx, class, ids); err != nil {
		log.Printf("purchase: rollback of %d ids in class %d failed (sweeper will reclaim): %v", len(ids), class, err)
	}
}

func payloads(tickets []model.ReservedTicket) []json.RawMessage {
	out := make([]json.RawMessage, len(tickets))
	for i, t := range tickets {
		out[i] = t.Payload
	}
	return out
}
