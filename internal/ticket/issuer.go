// Package ticket mints attendance credentials for confirmed
// purchases and renders them as QR codes. The payload is a pure
// function of (event, buyer, ticket type, payment reference), so
// issuing twice for the same purchase always produces the same bytes.
package ticket

import (
	"context"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// CredentialStore persists credentials under their composite key.
// Put must be idempotent: storing an existing key returns the
// originally stored credential.
type CredentialStore interface {
	Put(ctx context.Context, c *model.Credential) (*model.Credential, error)
}

// Issuer derives and persists credentials.
type Issuer struct {
	store CredentialStore
}

// NewIssuer constructs an Issuer backed by the given store.
func NewIssuer(store CredentialStore) *Issuer {
	return &Issuer{store: store}
}

// credentialPayload is the canonical QR payload. Field order is fixed
// by the struct, which keeps json.Marshal output stable across
// issuances of the same tuple.
type credentialPayload struct {
	Version      int    `json:"v"`
	EventID      uint64 `json:"event_id"`
	TicketTypeID uint64 `json:"ticket_type_id"`
	BuyerEmail   string `json:"buyer"`
	Reference    string `json:"reference"`
}

// Key builds the composite storage key for a purchase tuple:
// <eventID>_<buyerEmail>_<ticketTypeID>.
func Key(eventID uint64, buyerEmail string, ticketTypeID uint64) string {
	return fmt.Sprintf("%d_%s_%d", eventID, buyerEmail, ticketTypeID)
}

// Issue derives the credential for an attendee record and persists it
// under its composite key. Re-issuing for the same record returns the
// stored credential unchanged, which keeps retried orchestrator steps
// and on-demand re-issuance safe.
func (i *Issuer) Issue(ctx context.Context, rec *model.AttendeeRecord) (*model.Credential, error) {
	payload, err := json.Marshal(credentialPayload{
		Version:      1,
		EventID:      rec.EventID,
		TicketTypeID: rec.TicketTypeID,
		BuyerEmail:   rec.BuyerEmail,
		Reference:    rec.PaymentRef,
	})
	if err != nil {
		return nil, err
	}
	cred := &model.Credential{
		Key:          Key(rec.EventID, rec.BuyerEmail, rec.TicketTypeID),
		EventID:      rec.EventID,
		BuyerEmail:   rec.BuyerEmail,
		TicketTypeID: rec.TicketTypeID,
		PaymentRef:   rec.PaymentRef,
		Payload:      string(payload),
	}
	stored, err := i.store.Put(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("persist credential %s: %w", cred.Key, err)
	}
	return stored, nil
}

// RenderPNG encodes a credential payload as a QR PNG of the given
// pixel size. Rendering is stateless; the payload alone determines
// the image.
func RenderPNG(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, size)
}
