// Attendee-facing ticket endpoints: listing purchased tickets and
// rendering their QR credentials.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/ticket"
)

// qrPixelSize is the rendered edge length of ticket QR codes.
const qrPixelSize = 512

// TicketHandler serves a buyer's own tickets.
type TicketHandler struct {
	Users     *repository.UserRepo
	Attendees *repository.AttendeeRepo
	Issuer    *ticket.Issuer
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(users *repository.UserRepo, attendees *repository.AttendeeRepo, issuer *ticket.Issuer) *TicketHandler {
	if users == nil || attendees == nil || issuer == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Users: users, Attendees: attendees, Issuer: issuer}
}

// ListMine handles GET /v1/my-tickets: every confirmed purchase of the
// caller, newest first. Tickets belong to the buyer email, so the
// account email is the lookup key.
func (h *TicketHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	records, err := h.Attendees.ListByBuyer(ctx, u.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": records, "count": len(records)})
}

// RenderQR handles GET /v1/my-tickets/:id/qr.png. The credential is
// re-derived through the idempotent issuer, so a lost or never-stored
// credential is recreated on demand with identical payload bytes.
func (h *TicketHandler) RenderQR(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	recID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	rec, err := h.Attendees.GetByID(ctx, recID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if rec.BuyerEmail != u.Email {
		// Same response as not-found so ticket IDs cannot be probed.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	}

	cred, err := h.Issuer.Issue(ctx, rec)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue credential failed"})
	}
	png, err := ticket.RenderPNG(cred.Payload, qrPixelSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render qr failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
