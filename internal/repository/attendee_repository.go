package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrDuplicateAttendee indicates that an attendee record already
// exists for the (event, payment reference) pair.  The orchestrator's
// idempotency check normally prevents this path; the unique key is
// the database-level backstop.
var ErrDuplicateAttendee = errors.New("attendee already recorded for payment reference")

// AttendeeRepo is the append-only ledger of confirmed purchases.
// Rows are never updated or deleted; listing preserves insertion
// order for rosters and exports.
type AttendeeRepo struct {
	db *sql.DB
}

// NewAttendeeRepo constructs an AttendeeRepo with the given DB handle.
func NewAttendeeRepo(db *sql.DB) *AttendeeRepo {
	return &AttendeeRepo{db: db}
}

// Append inserts one attendee record and populates the generated ID
// and issued_at timestamp.  The unique key on (event_id, payment_ref)
// turns duplicate inserts into ErrDuplicateAttendee.
func (r *AttendeeRepo) Append(ctx context.Context, rec *model.AttendeeRecord) error {
	const q = `INSERT INTO attendees (event_id, ticket_type_id, buyer_email, buyer_name, payment_ref, amount_minor)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rec.EventID, rec.TicketTypeID, rec.BuyerEmail, rec.BuyerName, rec.PaymentRef, rec.AmountMinor)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateAttendee
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT issued_at FROM attendees WHERE id = ?`, rec.ID).Scan(&rec.IssuedAt)
}

// ListByEvent returns all attendee records of an event in insertion
// order.  Uniqueness per payment reference is enforced upstream, so
// no dedup happens here.
func (r *AttendeeRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.AttendeeRecord, error) {
	const q = `SELECT id, event_id, ticket_type_id, buyer_email, buyer_name, payment_ref, amount_minor, issued_at
	           FROM attendees WHERE event_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.AttendeeRecord, 0)
	for rows.Next() {
		var rec model.AttendeeRecord
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.TicketTypeID, &rec.BuyerEmail,
			&rec.BuyerName, &rec.PaymentRef, &rec.AmountMinor, &rec.IssuedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByBuyer returns all attendee records belonging to a buyer email
// across events, newest first.  Used by the my-tickets endpoint.
func (r *AttendeeRepo) ListByBuyer(ctx context.Context, email string) ([]model.AttendeeRecord, error) {
	const q = `SELECT id, event_id, ticket_type_id, buyer_email, buyer_name, payment_ref, amount_minor, issued_at
	           FROM attendees WHERE buyer_email = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.AttendeeRecord, 0)
	for rows.Next() {
		var rec model.AttendeeRecord
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.TicketTypeID, &rec.BuyerEmail,
			&rec.BuyerName, &rec.PaymentRef, &rec.AmountMinor, &rec.IssuedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID fetches a single attendee record.  sql.ErrNoRows is
// propagated when the record does not exist.
func (r *AttendeeRepo) GetByID(ctx context.Context, id uint64) (*model.AttendeeRecord, error) {
	const q = `SELECT id, event_id, ticket_type_id, buyer_email, buyer_name, payment_ref, amount_minor, issued_at
	           FROM attendees WHERE id = ?`
	var rec model.AttendeeRecord
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.EventID, &rec.TicketTypeID, &rec.BuyerEmail,
		&rec.BuyerName, &rec.PaymentRef, &rec.AmountMinor, &rec.IssuedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
