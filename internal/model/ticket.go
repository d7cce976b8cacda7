// Package model defines the domain types shared across the service layers.
package model

import "encoding/json"

// Ticket is one sellable item as submitted at seeding time.  The ID must be
// unique within its class; the Payload is the opaque JSON object stored in the
// pool and returned verbatim to the buyer on a successful purchase.
type Ticket struct {
	ID      string
	Payload json.RawMessage
}

// ReservedTicket pairs a ticket id with the payload looked up from the pool
// at reservation time.  Payload is nil when the pool has no entry for the id.
type ReservedTicket struct {
	ID      string
	Payload json.RawMessage
}

// Counts is a snapshot of the three lifecycle sets of one class.
type Counts struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
}
