// Package payment adapts the Paystack payment gateway: it opens
// hosted checkout sessions and authenticates the asynchronous webhook
// events the gateway delivers back. Webhook verification is the trust
// boundary of the whole purchase flow; every inbound event must pass
// the HMAC check and there is no fallback to client-reported status.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SignatureHeader is the HTTP header carrying the hex HMAC-SHA512 of
// the raw webhook body, keyed with the gateway secret key.
const SignatureHeader = "X-Paystack-Signature"

// ErrInvalidSignature indicates a webhook whose signature is missing
// or does not match the payload. The request must be rejected with no
// state change.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrGatewayUnavailable indicates a transient gateway failure while
// initializing a checkout. Callers may retry the checkout; it is
// never retried blindly inside the webhook path.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Event kinds recognized from the gateway.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// PaymentEvent is the parsed, verified form of a gateway webhook.
// Amounts are minor currency units as delivered by the gateway.
type PaymentEvent struct {
	Kind          string // EventChargeSuccess or EventChargeFailed
	Reference     string // caller-supplied checkout reference
	AmountMinor   uint32 // charged amount in minor units
	Currency      string // ISO currency code, e.g. NGN
	CustomerEmail string // buyer email as known to the gateway
}

// Success reports whether the event confirms a captured charge.
func (e PaymentEvent) Success() bool { return e.Kind == EventChargeSuccess }

// Client talks to the Paystack REST API. The zero value is not
// usable; construct it with NewClient.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewClient builds a Client for the given secret key. baseURL may be
// empty to use the production API; tests point it at a local server.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type initRequest struct {
	Email       string `json:"email"`
	Amount      uint32 `json:"amount"` // minor units
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url"`
}

type initResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// CheckoutSession is the handle returned by a successful checkout
// initialization. The buyer is redirected to AuthorizationURL; the
// Reference correlates the session with its eventual webhook.
type CheckoutSession struct {
	AuthorizationURL string
	Reference        string
}

// InitializeTransaction opens a hosted checkout session. The
// reference must be unique per purchase attempt and is supplied by
// the caller, never invented by the gateway. Network errors and 5xx
// responses surface as ErrGatewayUnavailable so the checkout caller
// can retry; 4xx responses are returned verbatim as they indicate a
// request we should not repeat.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amountMinor uint32, currency, reference, callbackURL string) (*CheckoutSession, error) {
	body, err := json.Marshal(initRequest{
		Email:       email,
		Amount:      amountMinor,
		Currency:    currency,
		Reference:   reference,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var parsed initResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return nil, fmt.Errorf("initialize transaction rejected: %s", parsed.Message)
	}
	if parsed.Data.AuthorizationURL == "" {
		return nil, errors.New("initialize transaction: empty authorization url")
	}
	return &CheckoutSession{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
	}, nil
}

// VerifyWebhook recomputes the HMAC-SHA512 of the raw body under the
// secret key and compares it with the supplied hex signature in
// constant time. An empty signature fails closed.
func (c *Client) VerifyWebhook(signatureHex string, rawBody []byte) error {
	if signatureHex == "" {
		return ErrInvalidSignature
	}
	supplied, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(rawBody)
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(supplied, expected) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    uint32 `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a verified webhook body into a
// PaymentEvent. Event kinds other than charge.success/charge.failed
// are reported as an error so the handler can acknowledge and ignore
// them explicitly.
func ParseWebhookEvent(rawBody []byte) (*PaymentEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	switch env.Event {
	case EventChargeSuccess, EventChargeFailed:
	default:
		return nil, fmt.Errorf("unsupported webhook event %q", env.Event)
	}
	if env.Data.Reference == "" {
		return nil, errors.New("webhook event missing reference")
	}
	return &PaymentEvent{
		Kind:          env.Event,
		Reference:     env.Data.Reference,
		AmountMinor:   env.Data.Amount,
		Currency:      env.Data.Currency,
		CustomerEmail: env.Data.Customer.Email,
	}, nil
}
