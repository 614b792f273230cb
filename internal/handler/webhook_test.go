package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/payment"
	"github.com/iliyamo/event-ticketing/internal/purchase"
)

type stubVerifier struct {
	accept string // the one signature accepted
}

func (v stubVerifier) VerifyWebhook(signatureHex string, _ []byte) error {
	if signatureHex != v.accept {
		return payment.ErrInvalidSignature
	}
	return nil
}

type stubProcessor struct {
	calls   int
	lastEv  *payment.PaymentEvent
	outcome purchase.Outcome
	err     error
}

func (p *stubProcessor) HandlePaymentEvent(_ context.Context, ev *payment.PaymentEvent) (purchase.Outcome, error) {
	p.calls++
	p.lastEv = ev
	return p.outcome, p.err
}

func deliver(h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	_ = h.Handle(e.NewContext(req, rec))
	return rec
}

const successBody = `{
	"event": "charge.success",
	"data": {
		"reference": "event:3:ticket:7:1",
		"amount": 15000,
		"currency": "NGN",
		"customer": {"email": "buyer@example.com"}
	}
}`

func TestWebhookRejectsBadSignature(t *testing.T) {
	proc := &stubProcessor{outcome: purchase.OutcomeConfirmed}
	h := NewWebhookHandler(stubVerifier{accept: "good"}, proc)

	for _, sig := range []string{"", "bad"} {
		rec := deliver(h, successBody, sig)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Zero(t, proc.calls, "unverified deliveries must never reach the orchestrator")
}

func TestWebhookProcessesVerifiedEvent(t *testing.T) {
	proc := &stubProcessor{outcome: purchase.OutcomeConfirmed}
	h := NewWebhookHandler(stubVerifier{accept: "good"}, proc)

	rec := deliver(h, successBody, "good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(purchase.OutcomeConfirmed))

	require.Equal(t, 1, proc.calls)
	assert.Equal(t, "event:3:ticket:7:1", proc.lastEv.Reference)
	assert.Equal(t, uint32(15000), proc.lastEv.AmountMinor)
	assert.True(t, proc.lastEv.Success())
}

func TestWebhookAcknowledgesUnparseableSignedBody(t *testing.T) {
	proc := &stubProcessor{}
	h := NewWebhookHandler(stubVerifier{accept: "good"}, proc)

	rec := deliver(h, `{"event":"subscription.create","data":{}}`, "good")
	assert.Equal(t, http.StatusOK, rec.Code, "signed but unsupported events are acknowledged")
	assert.Zero(t, proc.calls)
}

func TestWebhookInfraErrorReturns500(t *testing.T) {
	proc := &stubProcessor{err: assert.AnError}
	h := NewWebhookHandler(stubVerifier{accept: "good"}, proc)

	rec := deliver(h, successBody, "good")
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "500 makes the gateway redeliver")
	assert.Equal(t, 1, proc.calls)
}
