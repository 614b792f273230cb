package model

import "time"

// AttendeeRecord is the append-only ledger entry written exactly once
// per confirmed purchase, as stored in the `attendees` table.  The
// pair (EventID, PaymentRef) is unique; the purchase orchestrator's
// idempotency check is the primary guard and the database unique key
// is the backstop.  Records are immutable after insertion.
//
// Fields:
//  ID           – primary key identifier, store-assigned.
//  EventID      – event the ticket admits to.
//  TicketTypeID – ticket category that was purchased.
//  BuyerEmail   – buyer identity (email).
//  BuyerName    – optional display name of the buyer.
//  PaymentRef   – gateway payment reference of the confirmed charge.
//  AmountMinor  – amount paid in minor currency units.
//  IssuedAt     – when the record was written.
type AttendeeRecord struct {
    ID           uint64    // attendees.id
    EventID      uint64    // attendees.event_id
    TicketTypeID uint64    // attendees.ticket_type_id
    BuyerEmail   string    // attendees.buyer_email
    BuyerName    string    // attendees.buyer_name
    PaymentRef   string    // attendees.payment_ref
    AmountMinor  uint32    // attendees.amount_minor
    IssuedAt     time.Time // attendees.issued_at
}
