package model

import "time"

// Event represents a published or draft event as stored in the
// `events` table.  Events are created by an organizer and are never
// physically deleted; instead the Status field moves through soft
// states (DRAFT, PUBLISHED, CANCELLED).  Ticket inventory lives in
// the related ticket_types rows.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who owns the event; only the owner may mutate it.
//  Title       – display title of the event.
//  Description – free-form description text.
//  StartsAt    – when the event takes place.
//  Venue       – location of the event.
//  ImageURL    – reference to a hosted cover image.
//  Status      – soft state (DRAFT, PUBLISHED, CANCELLED).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64    // events.id
    OrganizerID uint64    // events.organizer_id
    Title       string    // events.title
    Description string    // events.description
    StartsAt    time.Time // events.starts_at
    Venue       string    // events.venue
    ImageURL    string    // events.image_url
    Status      string    // events.status
    CreatedAt   time.Time // events.created_at
    UpdatedAt   time.Time // events.updated_at
}

// Event status values.  Events are soft-deleted by moving to
// CANCELLED rather than removing the row.
const (
    EventStatusDraft     = "DRAFT"
    EventStatusPublished = "PUBLISHED"
    EventStatusCancelled = "CANCELLED"
)

// TicketType represents one purchasable ticket category of an event
// as stored in the `ticket_types` table.  Price is an integer amount
// of minor currency units (e.g. kobo, cents); floats are never used
// for money.  Quantity is the remaining stock and is mutated
// exclusively through the inventory repository's conditional
// decrement, so it can never go negative.
//
// Fields:
//  ID         – primary key identifier, unique within the table.
//  EventID    – event this ticket type belongs to.
//  Label      – display label (e.g. "Regular", "VIP").
//  PriceMinor – unit price in minor currency units.
//  Quantity   – remaining quantity, always >= 0.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type TicketType struct {
    ID         uint64    // ticket_types.id
    EventID    uint64    // ticket_types.event_id
    Label      string    // ticket_types.label
    PriceMinor uint32    // ticket_types.price_minor
    Quantity   uint32    // ticket_types.quantity
    CreatedAt  time.Time // ticket_types.created_at
    UpdatedAt  time.Time // ticket_types.updated_at
}
