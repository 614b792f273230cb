package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_abc123"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	c := NewClient(testSecret, "")
	body := []byte(`{"event":"charge.success","data":{"reference":"event:1:ticket:2:3"}}`)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, c.VerifyWebhook(sign(testSecret, body), body))
	})

	t.Run("missing signature", func(t *testing.T) {
		assert.ErrorIs(t, c.VerifyWebhook("", body), ErrInvalidSignature)
	})

	t.Run("signature under wrong key", func(t *testing.T) {
		assert.ErrorIs(t, c.VerifyWebhook(sign("sk_other", body), body), ErrInvalidSignature)
	})

	t.Run("signature over different body", func(t *testing.T) {
		sig := sign(testSecret, body)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = 'x'
		assert.ErrorIs(t, c.VerifyWebhook(sig, tampered), ErrInvalidSignature)
	})

	t.Run("non-hex signature", func(t *testing.T) {
		assert.ErrorIs(t, c.VerifyWebhook("not-hex!", body), ErrInvalidSignature)
	})
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "event:3:ticket:7:1700000000",
			"amount": 15000,
			"currency": "NGN",
			"customer": {"email": "buyer@example.com"}
		}
	}`)
	ev, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, ev.Kind)
	assert.True(t, ev.Success())
	assert.Equal(t, "event:3:ticket:7:1700000000", ev.Reference)
	assert.Equal(t, uint32(15000), ev.AmountMinor)
	assert.Equal(t, "NGN", ev.Currency)
	assert.Equal(t, "buyer@example.com", ev.CustomerEmail)
}

func TestParseWebhookEventRejectsOtherKinds(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`{"event":"transfer.success","data":{"reference":"r"}}`))
	assert.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`{"event":"charge.success","data":{}}`))
	assert.Error(t, err, "missing reference must be rejected")

	_, err = ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestInitializeTransaction(t *testing.T) {
	var got initRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer "+testSecret, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         got.Reference,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testSecret, srv.URL)
	session, err := c.InitializeTransaction(context.Background(),
		"buyer@example.com", 15000, "NGN", "event:3:ticket:7:1", "https://front.example/cb")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", session.AuthorizationURL)
	assert.Equal(t, "event:3:ticket:7:1", session.Reference)
	assert.Equal(t, uint32(15000), got.Amount)
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.Equal(t, "https://front.example/cb", got.CallbackURL)
}

func TestInitializeTransactionGatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testSecret, srv.URL)
	_, err := c.InitializeTransaction(context.Background(), "b@e.com", 100, "NGN", "r", "cb")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestInitializeTransactionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid amount",
		})
	}))
	defer srv.Close()

	c := NewClient(testSecret, srv.URL)
	_, err := c.InitializeTransaction(context.Background(), "b@e.com", 0, "NGN", "r", "cb")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGatewayUnavailable, "4xx must not look retryable")
}
