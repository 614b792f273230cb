// Package handler exposes HTTP handlers for both authenticated and
// public endpoints. This file defines the organizer surface: creating
// and updating events, adding ticket types and viewing the attendee
// roster.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// OrganizerHandler bundles repositories for organizers to manage their
// events and inventory.
type OrganizerHandler struct {
	Events    *repository.EventRepo
	Inventory *repository.InventoryRepo
	Attendees *repository.AttendeeRepo
}

// NewOrganizerHandler constructs an OrganizerHandler and panics if any
// dependency is nil.
func NewOrganizerHandler(events *repository.EventRepo, inventory *repository.InventoryRepo, attendees *repository.AttendeeRepo) *OrganizerHandler {
	if events == nil || inventory == nil || attendees == nil {
		panic("nil repository passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Events: events, Inventory: inventory, Attendees: attendees}
}

// ----- DTOs -----

type eventReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartsAt    string `json:"starts_at"` // RFC3339
	Venue       string `json:"venue"`
	ImageURL    string `json:"image_url"`
	Status      string `json:"status"` // DRAFT | PUBLISHED | CANCELLED
}

type ticketTypeReq struct {
	Label      string `json:"label"`
	PriceMinor uint32 `json:"price_minor"`
	Quantity   uint32 `json:"quantity"`
}

// CreateEvent handles POST /v1/events. New events start in DRAFT and
// become visible to the public only after a PATCH sets PUBLISHED.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Venue = strings.TrimSpace(req.Venue)
	if req.Title == "" || req.Venue == "" || req.StartsAt == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, venue and starts_at required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e := &model.Event{
		OrganizerID: uid,
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    startsAt,
		Venue:       req.Venue,
		ImageURL:    req.ImageURL,
	}
	if err := h.Events.Create(ctx, e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, e)
}

// UpdateEvent handles PATCH /v1/events/:id. Only the owning organizer
// may mutate an event; absent fields keep their stored values. Events
// are never deleted, status moves to CANCELLED instead.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
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

	if s := strings.TrimSpace(req.Title); s != "" {
		e.Title = s
	}
	if req.Description != "" {
		e.Description = req.Description
	}
	if s := strings.TrimSpace(req.Venue); s != "" {
		e.Venue = s
	}
	if req.ImageURL != "" {
		e.ImageURL = req.ImageURL
	}
	if req.StartsAt != "" {
		startsAt, perr := time.Parse(time.RFC3339, req.StartsAt)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
		}
		e.StartsAt = startsAt
	}
	if s := strings.ToUpper(strings.TrimSpace(req.Status)); s != "" {
		switch s {
		case model.EventStatusDraft, model.EventStatusPublished, model.EventStatusCancelled:
			e.Status = s
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
	}

	if err := h.Events.Update(ctx, uid, e); err != nil {
		switch err {
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, e)
}

// ListMyEvents handles GET /v1/my-events and returns every event of
// the caller regardless of status, newest first.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListByOrganizer(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// AddTicketType handles POST /v1/events/:id/tickets. Prices are
// accepted in integer minor units only; there is no float path.
func (h *OrganizerHandler) AddTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label required"})
	}
	if req.PriceMinor == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_minor must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t := &model.TicketType{
		EventID:    eventID,
		Label:      req.Label,
		PriceMinor: req.PriceMinor,
		Quantity:   req.Quantity,
	}
	if err := h.Inventory.AddTicketType(ctx, uid, t); err != nil {
		switch err {
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is cancelled"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket type failed"})
		}
	}
	return c.JSON(http.StatusCreated, t)
}

// ListAttendees handles GET /v1/events/:id/attendees: the roster of
// confirmed purchases in issuance order, owner-only.
func (h *OrganizerHandler) ListAttendees(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if code, msg := h.checkOwnership(ctx, uid, eventID); code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}

	records, err := h.Attendees.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"attendees": records, "count": len(records)})
}

// ExportAttendeesCSV handles GET /v1/events/:id/attendees.csv and
// streams the roster as a CSV download.
func (h *OrganizerHandler) ExportAttendeesCSV(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if code, msg := h.checkOwnership(ctx, uid, eventID); code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}

	records, err := h.Attendees.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	data, err := attendeesCSV(records)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render csv failed"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="attendees-`+strconv.FormatUint(eventID, 10)+`.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

// checkOwnership loads the event and verifies the caller owns it.
// Returns a non-zero HTTP status plus message when the check fails.
func (h *OrganizerHandler) checkOwnership(ctx context.Context, uid, eventID uint64) (int, string) {
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return http.StatusNotFound, "event not found"
		}
		return http.StatusInternalServerError, "query failed"
	}
	if e.OrganizerID != uid {
		return http.StatusForbidden, "not your event"
	}
	return 0, ""
}
