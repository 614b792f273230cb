// Checkout endpoints: starting a purchase attempt against the payment
// gateway and polling its status afterwards.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/payment"
	"github.com/iliyamo/event-ticketing/internal/purchase"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// CheckoutHandler exposes the purchase flow to authenticated buyers.
type CheckoutHandler struct {
	Orch  *purchase.Orchestrator
	Users *repository.UserRepo
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(orch *purchase.Orchestrator, users *repository.UserRepo) *CheckoutHandler {
	if orch == nil || users == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Orch: orch, Users: users}
}

// jsonAmount accepts a JSON string or number so clients can send
// either "150.00" or 150.
type jsonAmount string

func (a *jsonAmount) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	*a = jsonAmount(s)
	return nil
}

type checkoutReq struct {
	EventID      uint64     `json:"event_id"`
	TicketTypeID uint64     `json:"ticket_type_id"`
	Amount       jsonAmount `json:"amount"` // major units, e.g. "150.00"
	Email        string     `json:"email"`  // optional; defaults to the account email
	BuyerName    string     `json:"buyer_name"`
}

// Start handles POST /v1/checkout. The client quotes the price it
// displayed in major units; it is converted to integer minor units
// exactly and compared against the stored price before any gateway
// call. A mismatch is rejected rather than silently charged.
func (h *CheckoutHandler) Start(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 || req.TicketTypeID == 0 || strings.TrimSpace(string(req.Amount)) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id, ticket_type_id and amount required"})
	}
	quotedMinor, ok := amountToMinor(string(req.Amount))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = u.Email
	}
	buyer := purchase.Buyer{Email: email, Name: strings.TrimSpace(req.BuyerName)}

	res, err := h.Orch.Start(ctx, buyer, req.EventID, req.TicketTypeID, quotedMinor)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketTypeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		case errors.Is(err, repository.ErrOutOfStock):
			return c.JSON(http.StatusConflict, echo.Map{"error": "sold out"})
		case errors.Is(err, purchase.ErrAmountMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount does not match ticket price"})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start checkout failed"})
		}
	}
	monitoring.CheckoutStarted()
	return c.JSON(http.StatusOK, res)
}

// Status handles GET /v1/purchases/:reference. Redirect pages poll
// this endpoint for a display hint; the webhook remains the only
// confirmation trigger.
func (h *CheckoutHandler) Status(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reference required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	attempt, err := h.Orch.GetStatus(ctx, reference)
	if err != nil {
		if err == repository.ErrAttemptNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown reference"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, attempt)
}

// amountToMinor converts a decimal major-unit amount ("150.00") into
// integer minor units (15000). Amounts with more than two fractional
// digits or non-positive values are rejected.
func amountToMinor(amount string) (uint32, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, false
	}
	if d.Exponent() < -2 {
		return 0, false
	}
	minor := d.Shift(2)
	if !minor.IsInteger() || minor.Sign() <= 0 {
		return 0, false
	}
	v := minor.IntPart()
	if v <= 0 || v > int64(^uint32(0)) {
		return 0, false
	}
	return uint32(v), true
}
