// Webhook endpoint for the payment gateway. The raw body is read
// before any parsing because the HMAC signature covers the exact
// bytes on the wire.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/payment"
	"github.com/iliyamo/event-ticketing/internal/purchase"
)

// WebhookVerifier checks a delivery's signature against its raw body.
// It is an interface so handler tests can run without a gateway
// secret.
type WebhookVerifier interface {
	VerifyWebhook(signatureHex string, rawBody []byte) error
}

// PaymentProcessor consumes one verified payment event and reports
// how it was handled.
type PaymentProcessor interface {
	HandlePaymentEvent(ctx context.Context, ev *payment.PaymentEvent) (purchase.Outcome, error)
}

// WebhookHandler receives gateway deliveries.
type WebhookHandler struct {
	Verifier WebhookVerifier
	Orch     PaymentProcessor
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(verifier WebhookVerifier, orch PaymentProcessor) *WebhookHandler {
	if verifier == nil || orch == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Verifier: verifier, Orch: orch}
}

// Handle processes POST /webhook. Signature failures return 400 and
// touch nothing. Handled events return 200 with the outcome message so
// the gateway stops redelivering; only infrastructure errors return
// 500, which makes the gateway retry.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	sig := c.Request().Header.Get(payment.SignatureHeader)
	if err := h.Verifier.VerifyWebhook(sig, body); err != nil {
		monitoring.WebhookRejected()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ev, err := payment.ParseWebhookEvent(body)
	if err != nil {
		// Signed but unparseable: acknowledge so the gateway does not
		// redeliver a payload we will never understand.
		return c.JSON(http.StatusOK, echo.Map{"message": "ignored"})
	}

	outcome, err := h.Orch.HandlePaymentEvent(c.Request().Context(), ev)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}
	monitoring.WebhookEvent(ev.Kind, string(outcome))
	return c.JSON(http.StatusOK, echo.Map{"message": string(outcome)})
}
