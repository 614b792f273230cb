// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes allow
// unauthenticated users to browse published events and their ticket types.
// Sensitive fields (organizer IDs, timestamps, etc.) are filtered from responses.

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated browsing.
// It produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	Events    *repository.EventRepo     // provides access to event data
	Inventory *repository.InventoryRepo // provides access to ticket type data
}

// PublicEvent represents an event exposed via the public API. It contains
// only safe fields.
type PublicEvent struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	Venue       string    `json:"venue"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// PublicTicketType represents a purchasable ticket type. Prices are
// integer minor units; clients format them for display.
type PublicTicketType struct {
	ID         uint64 `json:"id"`
	Label      string `json:"label"`
	PriceMinor uint32 `json:"price_minor"`
	Remaining  uint32 `json:"remaining"`
	SoldOut    bool   `json:"sold_out"`
}

// PublicEventDetail is the detail response: the event plus its ticket
// types.
type PublicEventDetail struct {
	PublicEvent
	TicketTypes []PublicTicketType `json:"ticket_types"`
}

func toPublicEvent(e model.Event) PublicEvent {
	return PublicEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		Venue:       e.Venue,
		ImageURL:    e.ImageURL,
	}
}

// ListPublishedEvents handles GET /v1/events. Only PUBLISHED events
// appear; drafts and cancelled events are invisible to guests.
func (h *PublicHandler) ListPublishedEvents(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListPublished(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]PublicEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toPublicEvent(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// GetPublicEvent handles GET /v1/events/:id and returns one published
// event with its ticket types. Drafts and cancelled events return 404
// so their existence is not leaked.
func (h *PublicHandler) GetPublicEvent(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if e.Status != model.EventStatusPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}

	types, err := h.Inventory.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	detail := PublicEventDetail{
		PublicEvent: toPublicEvent(*e),
		TicketTypes: make([]PublicTicketType, 0, len(types)),
	}
	for _, t := range types {
		detail.TicketTypes = append(detail.TicketTypes, PublicTicketType{
			ID:         t.ID,
			Label:      t.Label,
			PriceMinor: t.PriceMinor,
			Remaining:  t.Quantity,
			SoldOut:    t.Quantity == 0,
		})
	}
	return c.JSON(http.StatusOK, detail)
}
