package model

import "time"

// Credential is the QR-encodable attendance proof bound to one
// attendee record, as stored in the `credentials` table.  The Key is
// derived deterministically from (event, buyer, ticket type) and the
// payload additionally binds the payment reference, so re-deriving a
// credential for the same purchase always yields the same bytes.  A
// credential has no lifecycle of its own; it belongs to the attendee
// record it proves.
//
// Fields:
//  Key        – composite key "<eventID>_<buyerEmail>_<ticketTypeID>".
//  EventID    – event the credential admits to.
//  BuyerEmail – buyer identity baked into the payload.
//  TicketTypeID – ticket category baked into the payload.
//  PaymentRef – payment reference of the confirmed charge.
//  Payload    – canonical QR payload bytes (JSON).
//  CreatedAt  – first issuance timestamp.
type Credential struct {
    Key          string    // credentials.cred_key
    EventID      uint64    // credentials.event_id
    BuyerEmail   string    // credentials.buyer_email
    TicketTypeID uint64    // credentials.ticket_type_id
    PaymentRef   string    // credentials.payment_ref
    Payload      string    // credentials.payload
    CreatedAt    time.Time // credentials.created_at
}
