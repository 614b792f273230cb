package model

import "time"

// Purchase attempt status values.  An attempt starts in INITIATED,
// moves to AWAITING_CONFIRMATION once a checkout session is open, and
// terminates in exactly one of CONFIRMED, FAILED or EXPIRED.  A
// terminal status is never left again; every transition goes through
// an atomic compare-and-set keyed by the payment reference.
const (
    AttemptInitiated = "INITIATED"
    AttemptAwaiting  = "AWAITING_CONFIRMATION"
    AttemptConfirmed = "CONFIRMED"
    AttemptFailed    = "FAILED"
    AttemptExpired   = "EXPIRED"
)

// PurchaseAttempt is the ephemeral record of one checkout session.
// It lives in Redis under its payment reference with a TTL and is not
// persisted beyond its terminal state; the durable outcome of a
// successful attempt is the AttendeeRecord.
//
// Fields:
//  Reference    – globally unique payment reference correlating the
//                 checkout session with its webhook confirmation.
//  EventID      – event being purchased.
//  TicketTypeID – ticket category being purchased.
//  BuyerEmail   – buyer identity.
//  BuyerName    – optional buyer display name.
//  AmountMinor  – expected charge amount in minor currency units.
//  Status       – single authoritative state field (see constants).
//  CreatedAt    – when the checkout was started.
type PurchaseAttempt struct {
    Reference    string    `json:"reference"`
    EventID      uint64    `json:"event_id"`
    TicketTypeID uint64    `json:"ticket_type_id"`
    BuyerEmail   string    `json:"buyer_email"`
    BuyerName    string    `json:"buyer_name"`
    AmountMinor  uint32    `json:"amount_minor"`
    Status       string    `json:"status"`
    CreatedAt    time.Time `json:"created_at"`
}

// Terminal reports whether the attempt has reached a final state.
func (a PurchaseAttempt) Terminal() bool {
    switch a.Status {
    case AttemptConfirmed, AttemptFailed, AttemptExpired:
        return true
    }
    return false
}
