// Package queue defines the purchased-ticket event exchanged over the message
// broker, its publisher, and the background consumer that logs deliveries.
package queue

// TicketsPurchasedEvent is published after a purchase is confirmed in the
// store.  It carries enough for downstream consumers to log, notify, or feed
// analytics without touching Redis.
type TicketsPurchasedEvent struct {
	Class       int      `json:"class"`
	PlayerID    string   `json:"player_id"`
	TicketIDs   []string `json:"ticket_ids"`
	Amount      int      `json:"amount"`
	PurchasedAt string   `json:"purchased_at"`
}
