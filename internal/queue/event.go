// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published when a credential has been issued
// for a confirmed purchase. It carries enough information for
// downstream consumers to email the buyer or log the issuance without
// querying the primary database.
type TicketIssuedEvent struct {
	Reference    string `json:"reference"`
	EventID      uint64 `json:"event_id"`
	EventTitle   string `json:"event_title"`
	Venue        string `json:"venue"`
	StartsAt     string `json:"starts_at"`
	TicketTypeID uint64 `json:"ticket_type_id"`
	TicketLabel  string `json:"ticket_label"`
	BuyerEmail   string `json:"buyer_email"`
	BuyerName    string `json:"buyer_name"`
	AmountMinor  uint32 `json:"amount_minor"`
	Payload      string `json:"credential_payload"`
	IssuedAt     string `json:"issued_at"`
}
