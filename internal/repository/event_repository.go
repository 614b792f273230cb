// Package repository contains data access logic for the ticketing
// domain. This file covers events: creation by organizers, owner-only
// mutation, soft status changes and public listing. Ticket inventory
// is handled separately by InventoryRepo.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB {
	return r.db
}

// Create inserts a new event owned by the given organizer and assigns
// the generated ID back to the struct.  Status defaults to DRAFT in
// the DB; timestamps are populated by querying the inserted row back.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (organizer_id, title, description, starts_at, venue, image_url) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.OrganizerID, e.Title, e.Description, e.StartsAt.UTC(), e.Venue, e.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT id, organizer_id, title, description, starts_at, venue, image_url, status, created_at, updated_at
	             FROM events WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, e.ID).Scan(
		&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartsAt,
		&e.Venue, &e.ImageURL, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
}

// GetByID retrieves an event by its ID.  It returns ErrEventNotFound
// when there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, venue, image_url, status, created_at, updated_at
	           FROM events WHERE id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartsAt,
		&e.Venue, &e.ImageURL, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListPublished returns all events in PUBLISHED state ordered by start
// time ascending.  Cancelled and draft events are not visible to the
// public listing.
func (r *EventRepo) ListPublished(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, venue, image_url, status, created_at, updated_at
	           FROM events WHERE status = ? ORDER BY starts_at ASC`
	return r.list(ctx, q, model.EventStatusPublished)
}

// ListByOrganizer returns every event owned by the given organizer,
// newest first, regardless of status.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, venue, image_url, status, created_at, updated_at
	           FROM events WHERE organizer_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, organizerID)
}

func (r *EventRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartsAt,
			&e.Venue, &e.ImageURL, &e.Status, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Update mutates the editable fields of an event after verifying that
// the caller owns it.  It returns ErrEventNotFound when the event does
// not exist and ErrForbidden when it is owned by someone else.  Events
// are never deleted; status moves through soft states instead.
func (r *EventRepo) Update(ctx context.Context, organizerID uint64, e *model.Event) error {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ?`, e.ID).Scan(&actualOwner)
	if err == sql.ErrNoRows {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}
	if actualOwner != organizerID {
		return ErrForbidden
	}
	const q = `UPDATE events SET title = ?, description = ?, starts_at = ?, venue = ?, image_url = ?, status = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q, e.Title, e.Description, e.StartsAt.UTC(), e.Venue, e.ImageURL, e.Status, e.ID)
	return err
}
