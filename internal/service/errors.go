// Package service contains the purchase coordinator and the expiry sweeper.
// Sentinel errors defined here are the coordinator's taxonomy; handlers
// match them with errors.Is and map them to HTTP statuses.
package service

import "errors"

// ErrInsufficientInventory is returned when the class cannot cover the
// requested count.  Any partial reservation has been rolled back before this
// surfaces, so no ticket is ever lost to a failed attempt.  Handlers map it
// to 409.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrPaymentDeclined is returned when the wallet declines or errors.  The
// reserved batch has been rolled back.  Handlers map it to 402.
var ErrPaymentDeclined = errors.New("payment declined")

// ErrFinalizeMismatch is returned when, after confirm, some confirmed id is
// missing from the sold set -- the lease expired and the sweeper reclaimed
// the batch mid-payment.  The batch has been rolled back (a no-op for ids
// already reclaimed).  Rare; handlers map it to 500 and it is worth alerting.
var ErrFinalizeMismatch = errors.New("finalize mismatch")
