package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrTicketTypeNotFound indicates that a ticket type does not exist
// for the given event.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrOutOfStock indicates that a decrement was requested for more
// tickets than remain.  It is user-facing and retryable by choosing a
// different ticket type.
var ErrOutOfStock = errors.New("out of stock")

// InventoryRepo manages ticket types and their remaining quantities.
// The quantity column is the only shared mutable counter in the
// system; it is mutated exclusively through ReserveAndDecrement so it
// can never go negative under concurrent purchases.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo constructs an InventoryRepo with the given DB handle.
func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// AddTicketType inserts a new ticket type for an event after
// verifying the caller owns the event.  Cancelled events reject new
// ticket types with ErrConflict.  The generated ID and default
// timestamps are populated on the given struct.
func (r *InventoryRepo) AddTicketType(ctx context.Context, organizerID uint64, t *model.TicketType) error {
	var (
		actualOwner uint64
		status      string
	)
	err := r.db.QueryRowContext(ctx, `SELECT organizer_id, status FROM events WHERE id = ?`, t.EventID).Scan(&actualOwner, &status)
	if err == sql.ErrNoRows {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}
	if actualOwner != organizerID {
		return ErrForbidden
	}
	if status == model.EventStatusCancelled {
		return ErrConflict
	}
	const q = `INSERT INTO ticket_types (event_id, label, price_minor, quantity) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.EventID, t.Label, t.PriceMinor, t.Quantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	const sel = `SELECT id, event_id, label, price_minor, quantity, created_at, updated_at FROM ticket_types WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, t.ID).Scan(
		&t.ID, &t.EventID, &t.Label, &t.PriceMinor, &t.Quantity, &t.CreatedAt, &t.UpdatedAt,
	)
}

// GetTicketType retrieves a single ticket type scoped to its event.
// It returns ErrTicketTypeNotFound when no matching row exists.
func (r *InventoryRepo) GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (*model.TicketType, error) {
	const q = `SELECT id, event_id, label, price_minor, quantity, created_at, updated_at
	           FROM ticket_types WHERE id = ? AND event_id = ?`
	var t model.TicketType
	err := r.db.QueryRowContext(ctx, q, ticketTypeID, eventID).Scan(
		&t.ID, &t.EventID, &t.Label, &t.PriceMinor, &t.Quantity, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByEvent returns all ticket types of an event in insertion order.
func (r *InventoryRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	const q = `SELECT id, event_id, label, price_minor, quantity, created_at, updated_at
	           FROM ticket_types WHERE event_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types := make([]model.TicketType, 0)
	for rows.Next() {
		var t model.TicketType
		if err := rows.Scan(&t.ID, &t.EventID, &t.Label, &t.PriceMinor, &t.Quantity, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types, nil
}

// ReserveAndDecrement atomically takes qty tickets from the remaining
// quantity of a ticket type.  The conditional UPDATE only matches
// while enough stock remains, so concurrent callers serialize on the
// row and the counter can never go below zero.  It returns the new
// remaining quantity on success, ErrOutOfStock when stock is
// insufficient and ErrTicketTypeNotFound when the ids are unknown.
func (r *InventoryRepo) ReserveAndDecrement(ctx context.Context, eventID, ticketTypeID uint64, qty uint32) (uint32, error) {
	if qty == 0 {
		return 0, errors.New("qty must be positive")
	}
	const upd = `UPDATE ticket_types SET quantity = quantity - ? WHERE id = ? AND event_id = ? AND quantity >= ?`
	res, err := r.db.ExecContext(ctx, upd, qty, ticketTypeID, eventID, qty)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Distinguish an unknown ticket type from exhausted stock.
		var remaining uint32
		err := r.db.QueryRowContext(ctx,
			`SELECT quantity FROM ticket_types WHERE id = ? AND event_id = ?`,
			ticketTypeID, eventID).Scan(&remaining)
		if err == sql.ErrNoRows {
			return 0, ErrTicketTypeNotFound
		}
		if err != nil {
			return 0, err
		}
		return remaining, ErrOutOfStock
	}
	var remaining uint32
	if err := r.db.QueryRowContext(ctx,
		`SELECT quantity FROM ticket_types WHERE id = ?`, ticketTypeID).Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}
