// Package wallet abstracts the payment collaborator.  The purchase
// coordinator only ever sees the Debitor interface: a single bounded-latency
// call whose failures of any shape (error, timeout, decline) it treats
// uniformly as a declined payment.
package wallet

import (
	"context"
	"time"
)

// Debitor charges a player.  Implementations return (false, nil) for a clean
// decline and a non-nil error for infrastructure trouble; callers must treat
// both as a failed payment.
type Debitor interface {
	Debit(ctx context.Context, playerID string, amount int) (bool, error)
}

// Static is the development and test collaborator: it approves (or declines)
// every debit after a simulated round-trip latency.
type Static struct {
	Approve bool
	Latency time.Duration
}

// Debit waits out the configured latency and returns the fixed verdict.
func (s *Static) Debit(ctx context.Context, playerID string, amount int) (bool, error) {
	if s.Latency > 0 {
		select {
		case <-time.After(s.Latency):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return s.Approve, nil
}
